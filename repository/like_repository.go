package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	models "github.com/Mr-Leon909/tsutsuji-app/model"
)

type LikeRepository interface {
	CreateLike(ctx context.Context, postID, userID uuid.UUID) error
	DeleteLike(ctx context.Context, postID, userID uuid.UUID) error
	// LikedPostIDs reports which of postIDs userID has liked.
	LikedPostIDs(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type likeRepository struct {
	db *sqlx.DB
}

func NewLikeRepository(db *sqlx.DB) LikeRepository {
	return &likeRepository{db: db}
}

// CreateLike adds a new like for a post by a user
func (r *likeRepository) CreateLike(ctx context.Context, postID, userID uuid.UUID) error {
	query := `
		INSERT INTO likes (id, post_id, user_id, created_at)
		VALUES (:id, :post_id, :user_id, :created_at)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`

	like := models.Like{
		ID:        uuid.New(),
		PostID:    postID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	result, err := r.db.NamedExecContext(ctx, query, like)
	if err != nil {
		return fmt.Errorf("failed to create like: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrAlreadyLiked
	}

	return nil
}

// DeleteLike removes a like for a post by a user
func (r *likeRepository) DeleteLike(ctx context.Context, postID, userID uuid.UUID) error {
	query := r.db.Rebind(`
		DELETE FROM likes
		WHERE post_id = ? AND user_id = ?
	`)

	result, err := r.db.ExecContext(ctx, query, postID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete like: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrLikeNotFound
	}

	return nil
}

func (r *likeRepository) LikedPostIDs(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	return likedIDs(ctx, r.db, `
		SELECT post_id
		FROM likes
		WHERE user_id = ? AND post_id IN (?)
	`, userID, postIDs)
}

// likedIDs runs a batched has-liked lookup. Every requested id is present in the
// result, false unless a matching row exists.
func likedIDs(ctx context.Context, db *sqlx.DB, query string, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	result := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(query, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var liked []uuid.UUID
	err = db.SelectContext(ctx, &liked, db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch like status: %w", err)
	}

	for _, id := range ids {
		result[id] = false
	}
	for _, id := range liked {
		result[id] = true
	}

	return result, nil
}
