package store

import "github.com/Mr-Leon909/tsutsuji-app/events"

// PostEvents receives post writes that reached the backend.
type PostEvents interface {
	PublishPostCreated(events.PostCreatedEvent) error
	PublishPostLiked(events.PostLikeEvent) error
	PublishPostUnliked(events.PostLikeEvent) error
}

// CommentEvents receives comment writes that reached the backend.
type CommentEvents interface {
	PublishCommentAdded(events.CommentAddedEvent) error
	PublishCommentLiked(events.CommentLikeEvent) error
	PublishCommentUnliked(events.CommentLikeEvent) error
}

type options struct {
	rollback bool
	posts    PostEvents
	comments CommentEvents
}

type Option func(*options)

// WithRollback restores the previous counter and flag when a like or unlike
// fails at the backend. Without it the optimistic patch stays in place.
func WithRollback(enabled bool) Option {
	return func(o *options) {
		o.rollback = enabled
	}
}

// WithPostEvents sets where feed writes are announced.
func WithPostEvents(p PostEvents) Option {
	return func(o *options) {
		o.posts = p
	}
}

// WithCommentEvents sets where comment writes are announced.
func WithCommentEvents(p CommentEvents) Option {
	return func(o *options) {
		o.comments = p
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
