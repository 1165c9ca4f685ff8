package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	models "github.com/Mr-Leon909/tsutsuji-app/model"
)

type PostRepository interface {
	// List returns posts newest-first; a non-nil authorID restricts to one author.
	List(ctx context.Context, authorID *uuid.UUID) ([]models.Post, error)
	GetByID(ctx context.Context, postID uuid.UUID) (*models.Post, error)
	Create(ctx context.Context, post models.NewPost) (uuid.UUID, error)
}

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

const postSelect = `
	SELECT p.id, p.user_id, p.media_url, p.is_video, p.caption, p.created_at,
	       u.username AS "user.username", u.avatar_url AS "user.avatar_url",
	       (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id) AS likes_count,
	       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comments_count
	FROM posts p
	JOIN users u ON u.id = p.user_id
`

func (r *postRepository) List(ctx context.Context, authorID *uuid.UUID) ([]models.Post, error) {
	query := postSelect
	var args []interface{}
	if authorID != nil {
		query += ` WHERE p.user_id = ?`
		args = append(args, *authorID)
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC`

	posts := []models.Post{}
	err := r.db.SelectContext(ctx, &posts, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return posts, nil
}

func (r *postRepository) GetByID(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	query := r.db.Rebind(postSelect + ` WHERE p.id = ?`)

	var post models.Post
	err := r.db.GetContext(ctx, &post, query, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post models.NewPost) (uuid.UUID, error) {
	query := r.db.Rebind(`
		INSERT INTO posts (id, user_id, media_url, is_video, caption, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	postID := uuid.New()
	_, err := r.db.ExecContext(ctx, query,
		postID,
		post.UserID,
		post.MediaURL,
		post.IsVideo,
		post.Caption,
		time.Now().UTC(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create post: %w", err)
	}

	return postID, nil
}
