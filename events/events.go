package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubjectPostCreated    = "tsutsuji.post.created"
	SubjectPostLiked      = "tsutsuji.post.liked"
	SubjectPostUnliked    = "tsutsuji.post.unliked"
	SubjectCommentAdded   = "tsutsuji.comment.added"
	SubjectCommentLiked   = "tsutsuji.comment.liked"
	SubjectCommentUnliked = "tsutsuji.comment.unliked"

	// SubjectAll matches every subject above.
	SubjectAll = "tsutsuji.>"
)

// Event payloads. Source names the client process that made the change.
type PostCreatedEvent struct {
	Source    string    `json:"source"`
	PostID    uuid.UUID `json:"post_id"`
	UserID    uuid.UUID `json:"user_id"`
	MediaURL  string    `json:"media_url"`
	IsVideo   bool      `json:"is_video"`
	Timestamp time.Time `json:"timestamp"`
}

type PostLikeEvent struct {
	Source    string    `json:"source"`
	PostID    uuid.UUID `json:"post_id"`
	UserID    uuid.UUID `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

type CommentAddedEvent struct {
	Source    string    `json:"source"`
	CommentID uuid.UUID `json:"comment_id"`
	PostID    uuid.UUID `json:"post_id"`
	UserID    uuid.UUID `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

type CommentLikeEvent struct {
	Source    string    `json:"source"`
	CommentID uuid.UUID `json:"comment_id"`
	UserID    uuid.UUID `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Envelope is decoded first to route a message by its source.
type Envelope struct {
	Source string    `json:"source"`
	PostID uuid.UUID `json:"post_id"`
	UserID uuid.UUID `json:"user_id"`
}
