package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	models "github.com/Mr-Leon909/tsutsuji-app/model"
)

type CommentRepository interface {
	// ListByPost returns a post's comments oldest-first with author and like count.
	ListByPost(ctx context.Context, postID uuid.UUID) ([]models.Comment, error)
	// Create inserts the comment row and fills in its server-assigned id and timestamp.
	Create(ctx context.Context, comment *models.Comment) error
	CreateLike(ctx context.Context, commentID, userID uuid.UUID) error
	DeleteLike(ctx context.Context, commentID, userID uuid.UUID) error
	LikedCommentIDs(ctx context.Context, userID uuid.UUID, commentIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	query := r.db.Rebind(`
		SELECT c.id, c.post_id, c.user_id, c.content, c.created_at,
		       u.username AS "user.username", u.avatar_url AS "user.avatar_url",
		       (SELECT COUNT(*) FROM comment_likes cl WHERE cl.comment_id = c.id) AS likes_count
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.post_id = ?
		ORDER BY c.created_at ASC, c.id ASC
	`)

	comments := []models.Comment{}
	err := r.db.SelectContext(ctx, &comments, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}

	return comments, nil
}

// Create inserts a new comment into the database
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	query := r.db.Rebind(`
		INSERT INTO comments (id, post_id, user_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)

	comment.ID = uuid.New()
	comment.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		comment.ID,
		comment.PostID,
		comment.UserID,
		comment.Content,
		comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	return nil
}

func (r *commentRepository) CreateLike(ctx context.Context, commentID, userID uuid.UUID) error {
	query := `
		INSERT INTO comment_likes (id, comment_id, user_id, created_at)
		VALUES (:id, :comment_id, :user_id, :created_at)
		ON CONFLICT (comment_id, user_id) DO NOTHING
	`

	like := models.CommentLike{
		ID:        uuid.New(),
		CommentID: commentID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	result, err := r.db.NamedExecContext(ctx, query, like)
	if err != nil {
		return fmt.Errorf("failed to create comment like: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return ErrAlreadyLiked
	}

	return nil
}

func (r *commentRepository) DeleteLike(ctx context.Context, commentID, userID uuid.UUID) error {
	query := r.db.Rebind(`DELETE FROM comment_likes WHERE comment_id = ? AND user_id = ?`)

	result, err := r.db.ExecContext(ctx, query, commentID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete comment like: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return ErrLikeNotFound
	}

	return nil
}

func (r *commentRepository) LikedCommentIDs(ctx context.Context, userID uuid.UUID, commentIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	return likedIDs(ctx, r.db, `
		SELECT comment_id
		FROM comment_likes
		WHERE user_id = ? AND comment_id IN (?)
	`, userID, commentIDs)
}
