package store

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Mr-Leon909/tsutsuji-app/events"
	models "github.com/Mr-Leon909/tsutsuji-app/model"
	"github.com/Mr-Leon909/tsutsuji-app/repository"
)

type CommentState struct {
	PostID   *uuid.UUID       `json:"post_id"`
	Comments []models.Comment `json:"comments"`
	Loading  bool             `json:"is_loading"`
	Error    string           `json:"error,omitempty"`
}

// CommentStore holds the comments of the open post.
type CommentStore struct {
	comments repository.CommentRepository
	users    repository.UserRepository
	opts     options

	mu      sync.RWMutex
	postID  *uuid.UUID
	list    []models.Comment
	loading int
	errMsg  string
	hub     hub[CommentState]
}

func NewCommentStore(comments repository.CommentRepository, users repository.UserRepository, opts ...Option) *CommentStore {
	return &CommentStore{
		comments: comments,
		users:    users,
		opts:     buildOptions(opts),
	}
}

// LoadComments replaces the list with the post's comments, oldest first.
func (s *CommentStore) LoadComments(ctx context.Context, postID uuid.UUID, viewerID *uuid.UUID) error {
	s.mu.Lock()
	s.loading++
	s.errMsg = ""
	s.publishLocked()
	s.mu.Unlock()

	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		log.Printf("Fetch comments error: %v", err)
		s.mu.Lock()
		s.loading--
		s.errMsg = msgCommentsFailed
		s.publishLocked()
		s.mu.Unlock()
		return fmt.Errorf("failed to load comments of post %s: %w", postID, err)
	}

	if viewerID != nil && len(comments) > 0 {
		ids := make([]uuid.UUID, len(comments))
		for i := range comments {
			ids[i] = comments[i].ID
		}
		liked, err := s.comments.LikedCommentIDs(ctx, *viewerID, ids)
		if err != nil {
			log.Printf("Failed to fetch comment like status for %s: %v", *viewerID, err)
		}
		for i := range comments {
			comments[i].HasLiked = liked[comments[i].ID]
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.postID = &postID
	s.list = comments
	s.loading--
	s.publishLocked()
	return nil
}

// AddComment inserts a comment and appends it to the list without a reload.
// A comment for a post other than the open one is stored but not appended.
func (s *CommentStore) AddComment(ctx context.Context, postID, userID uuid.UUID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyComment
	}
	if utf8.RuneCountInString(content) > models.MaxCommentLength {
		return nil, ErrCommentTooLong
	}

	comment := &models.Comment{
		PostID:  postID,
		UserID:  userID,
		Content: content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		log.Printf("Add comment error: %v", err)
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		log.Printf("Add comment error: comment %s stored, author lookup failed: %v", comment.ID, err)
		return nil, fmt.Errorf("failed to fetch comment author: %w", err)
	}
	comment.User = author.Author()
	comment.LikesCount = 0
	comment.HasLiked = false

	s.mu.Lock()
	if s.postID == nil || *s.postID == postID {
		s.postID = &postID
		s.list = append(s.list, *comment)
		s.publishLocked()
	}
	s.mu.Unlock()

	if s.opts.comments != nil {
		err := s.opts.comments.PublishCommentAdded(events.CommentAddedEvent{
			CommentID: comment.ID,
			PostID:    postID,
			UserID:    userID,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			log.Printf("Failed to publish comment added event: %v", err)
		}
	}

	c := *comment
	return &c, nil
}

func (s *CommentStore) LikeComment(ctx context.Context, commentID, viewerID uuid.UUID) error {
	prev := s.patch(commentID, true)

	if err := s.comments.CreateLike(ctx, commentID, viewerID); err != nil {
		log.Printf("Like comment error: comment=%s user=%s: %v", commentID, viewerID, err)
		s.revert(commentID, prev)
		return fmt.Errorf("failed to like comment: %w", err)
	}

	if s.opts.comments != nil {
		err := s.opts.comments.PublishCommentLiked(events.CommentLikeEvent{
			CommentID: commentID,
			UserID:    viewerID,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			log.Printf("Failed to publish comment liked event: %v", err)
		}
	}
	return nil
}

func (s *CommentStore) UnlikeComment(ctx context.Context, commentID, viewerID uuid.UUID) error {
	prev := s.patch(commentID, false)

	if err := s.comments.DeleteLike(ctx, commentID, viewerID); err != nil {
		log.Printf("Unlike comment error: comment=%s user=%s: %v", commentID, viewerID, err)
		s.revert(commentID, prev)
		return fmt.Errorf("failed to unlike comment: %w", err)
	}

	if s.opts.comments != nil {
		err := s.opts.comments.PublishCommentUnliked(events.CommentLikeEvent{
			CommentID: commentID,
			UserID:    viewerID,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			log.Printf("Failed to publish comment unliked event: %v", err)
		}
	}
	return nil
}

// CurrentPostID reports which post the list belongs to.
func (s *CommentStore) CurrentPostID() *uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.postID == nil {
		return nil
	}
	id := *s.postID
	return &id
}

func (s *CommentStore) Snapshot() CommentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *CommentStore) Subscribe() (<-chan CommentState, func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub.subscribe(s.snapshotLocked())
}

func (s *CommentStore) patch(commentID uuid.UUID, liked bool) *likeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.list {
		c := &s.list[i]
		if c.ID != commentID {
			continue
		}
		prev := &likeSnapshot{c.LikesCount, c.HasLiked}
		applyLike(&c.LikesCount, &c.HasLiked, liked)
		s.publishLocked()
		return prev
	}
	return nil
}

func (s *CommentStore) revert(commentID uuid.UUID, prev *likeSnapshot) {
	if !s.opts.rollback || prev == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.list {
		if s.list[i].ID == commentID {
			s.list[i].LikesCount, s.list[i].HasLiked = prev.count, prev.liked
			s.publishLocked()
			return
		}
	}
}

func (s *CommentStore) snapshotLocked() CommentState {
	state := CommentState{
		Comments: make([]models.Comment, len(s.list)),
		Loading:  s.loading > 0,
		Error:    s.errMsg,
	}
	copy(state.Comments, s.list)
	if s.postID != nil {
		id := *s.postID
		state.PostID = &id
	}
	return state
}

func (s *CommentStore) publishLocked() {
	s.hub.publish(s.snapshotLocked())
}
