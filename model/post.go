package models

import (
	"time"

	"github.com/google/uuid"
)

const MaxCaptionLength = 2000

type Post struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	MediaURL      string    `json:"media_url" db:"media_url"`
	IsVideo       bool      `json:"is_video" db:"is_video"`
	Caption       *string   `json:"caption" db:"caption"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	User          Author    `json:"user" db:"user"`
	LikesCount    int32     `json:"likes_count" db:"likes_count"`
	CommentsCount int32     `json:"comments_count" db:"comments_count"`
	HasLiked      bool      `json:"has_liked" db:"-"`
}

// NewPost is the insert payload for the composer.
type NewPost struct {
	UserID   uuid.UUID
	MediaURL string
	IsVideo  bool
	Caption  *string
}
