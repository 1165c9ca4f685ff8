package models

import (
	"time"

	"github.com/google/uuid"
)

const MaxCommentLength = 1000

type Comment struct {
	ID         uuid.UUID `json:"id" db:"id"`
	PostID     uuid.UUID `json:"post_id" db:"post_id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	Content    string    `json:"content" db:"content"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	User       Author    `json:"user" db:"user"`
	LikesCount int32     `json:"likes_count" db:"likes_count"`
	HasLiked   bool      `json:"has_liked" db:"-"`
}
