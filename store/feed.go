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

type FeedState struct {
	Posts       []models.Post `json:"posts"`
	UserPosts   []models.Post `json:"user_posts"`
	CurrentPost *models.Post  `json:"current_post"`
	Loading     bool          `json:"is_loading"`
	Error       string        `json:"error,omitempty"`
}

// FeedStore holds the timeline, one profile grid and the open post.
// Likes patch all three in place before the backend confirms them.
type FeedStore struct {
	posts repository.PostRepository
	likes repository.LikeRepository
	opts  options

	mu        sync.RWMutex
	timeline  []models.Post
	userPosts []models.Post
	current   *models.Post
	loading   int
	errMsg    string
	hub       hub[FeedState]
}

func NewFeedStore(posts repository.PostRepository, likes repository.LikeRepository, opts ...Option) *FeedStore {
	return &FeedStore{
		posts: posts,
		likes: likes,
		opts:  buildOptions(opts),
	}
}

// LoadTimeline replaces the timeline with every post, newest first. With a
// viewer the has-liked flags are filled in.
func (s *FeedStore) LoadTimeline(ctx context.Context, viewerID *uuid.UUID) error {
	s.begin()

	posts, err := s.posts.List(ctx, nil)
	if err != nil {
		log.Printf("Fetch posts error: %v", err)
		s.fail(msgPostsFailed)
		return fmt.Errorf("failed to load timeline: %w", err)
	}
	s.markLiked(ctx, posts, viewerID)

	s.mu.Lock()
	s.timeline = posts
	s.finishLocked()
	s.mu.Unlock()
	return nil
}

// LoadUserPosts replaces the profile grid with one author's posts.
func (s *FeedStore) LoadUserPosts(ctx context.Context, userID uuid.UUID, viewerID *uuid.UUID) error {
	s.begin()

	posts, err := s.posts.List(ctx, &userID)
	if err != nil {
		log.Printf("Fetch user posts error: %v", err)
		s.fail(msgUserPostsFailed)
		return fmt.Errorf("failed to load posts of user %s: %w", userID, err)
	}
	s.markLiked(ctx, posts, viewerID)

	s.mu.Lock()
	s.userPosts = posts
	s.finishLocked()
	s.mu.Unlock()
	return nil
}

// LoadPost replaces the open post.
func (s *FeedStore) LoadPost(ctx context.Context, postID uuid.UUID, viewerID *uuid.UUID) error {
	s.begin()

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		log.Printf("Fetch post by id error: %v", err)
		s.fail(msgPostFailed)
		return fmt.Errorf("failed to load post %s: %w", postID, err)
	}
	single := []models.Post{*post}
	s.markLiked(ctx, single, viewerID)

	s.mu.Lock()
	s.current = &single[0]
	s.finishLocked()
	s.mu.Unlock()
	return nil
}

// markLiked sets HasLiked from one batched lookup. A failed lookup leaves the
// flags false.
func (s *FeedStore) markLiked(ctx context.Context, posts []models.Post, viewerID *uuid.UUID) {
	if viewerID == nil || len(posts) == 0 {
		return
	}
	ids := make([]uuid.UUID, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	liked, err := s.likes.LikedPostIDs(ctx, *viewerID, ids)
	if err != nil {
		log.Printf("Failed to fetch like status for %s: %v", *viewerID, err)
		return
	}
	for i := range posts {
		posts[i].HasLiked = liked[posts[i].ID]
	}
}

func (s *FeedStore) Like(ctx context.Context, postID, viewerID uuid.UUID) error {
	undo := s.patch(postID, true)

	if err := s.likes.CreateLike(ctx, postID, viewerID); err != nil {
		log.Printf("Like post error: post=%s user=%s: %v", postID, viewerID, err)
		s.revert(postID, undo)
		return fmt.Errorf("failed to like post: %w", err)
	}

	if s.opts.posts != nil {
		err := s.opts.posts.PublishPostLiked(events.PostLikeEvent{
			PostID:    postID,
			UserID:    viewerID,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			log.Printf("Failed to publish post liked event: %v", err)
		}
	}
	return nil
}

func (s *FeedStore) Unlike(ctx context.Context, postID, viewerID uuid.UUID) error {
	undo := s.patch(postID, false)

	if err := s.likes.DeleteLike(ctx, postID, viewerID); err != nil {
		log.Printf("Unlike post error: post=%s user=%s: %v", postID, viewerID, err)
		s.revert(postID, undo)
		return fmt.Errorf("failed to unlike post: %w", err)
	}

	if s.opts.posts != nil {
		err := s.opts.posts.PublishPostUnliked(events.PostLikeEvent{
			PostID:    postID,
			UserID:    viewerID,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			log.Printf("Failed to publish post unliked event: %v", err)
		}
	}
	return nil
}

// Create inserts a post and returns its id. The projections are not touched;
// the next load picks the post up.
func (s *FeedStore) Create(ctx context.Context, userID uuid.UUID, mediaURL string, isVideo bool, caption *string) (uuid.UUID, error) {
	if caption != nil {
		trimmed := strings.TrimSpace(*caption)
		if utf8.RuneCountInString(trimmed) > models.MaxCaptionLength {
			return uuid.Nil, ErrCaptionTooLong
		}
		caption = &trimmed
		if trimmed == "" {
			caption = nil
		}
	}
	if strings.TrimSpace(mediaURL) == "" {
		return uuid.Nil, ErrMissingMedia
	}

	postID, err := s.posts.Create(ctx, models.NewPost{
		UserID:   userID,
		MediaURL: mediaURL,
		IsVideo:  isVideo,
		Caption:  caption,
	})
	if err != nil {
		log.Printf("Create post error: %v", err)
		return uuid.Nil, fmt.Errorf("failed to create post: %w", err)
	}

	if s.opts.posts != nil {
		err := s.opts.posts.PublishPostCreated(events.PostCreatedEvent{
			PostID:    postID,
			UserID:    userID,
			MediaURL:  mediaURL,
			IsVideo:   isVideo,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			log.Printf("Failed to publish post created event: %v", err)
		}
	}
	return postID, nil
}

func (s *FeedStore) Snapshot() FeedState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *FeedStore) Subscribe() (<-chan FeedState, func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub.subscribe(s.snapshotLocked())
}

// likeState is a post's counter and flag in each projection before a patch.
type likeState struct {
	timeline, user, current *likeSnapshot
}

type likeSnapshot struct {
	count int32
	liked bool
}

func (s *FeedStore) patch(postID uuid.UUID, liked bool) likeState {
	s.mu.Lock()
	defer s.mu.Unlock()

	var undo likeState
	if p := findPost(s.timeline, postID); p != nil {
		undo.timeline = &likeSnapshot{p.LikesCount, p.HasLiked}
		applyLike(&p.LikesCount, &p.HasLiked, liked)
	}
	if p := findPost(s.userPosts, postID); p != nil {
		undo.user = &likeSnapshot{p.LikesCount, p.HasLiked}
		applyLike(&p.LikesCount, &p.HasLiked, liked)
	}
	if s.current != nil && s.current.ID == postID {
		undo.current = &likeSnapshot{s.current.LikesCount, s.current.HasLiked}
		applyLike(&s.current.LikesCount, &s.current.HasLiked, liked)
	}
	s.publishLocked()
	return undo
}

func (s *FeedStore) revert(postID uuid.UUID, undo likeState) {
	if !s.opts.rollback {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	restore := func(p *models.Post, prev *likeSnapshot) {
		if p == nil || prev == nil {
			return
		}
		p.LikesCount, p.HasLiked = prev.count, prev.liked
	}
	restore(findPost(s.timeline, postID), undo.timeline)
	restore(findPost(s.userPosts, postID), undo.user)
	if s.current != nil && s.current.ID == postID {
		restore(s.current, undo.current)
	}
	s.publishLocked()
}

func (s *FeedStore) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading++
	s.errMsg = ""
	s.publishLocked()
}

func (s *FeedStore) fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
	s.finishLocked()
}

func (s *FeedStore) finishLocked() {
	s.loading--
	s.publishLocked()
}

func (s *FeedStore) snapshotLocked() FeedState {
	state := FeedState{
		Posts:     clonePosts(s.timeline),
		UserPosts: clonePosts(s.userPosts),
		Loading:   s.loading > 0,
		Error:     s.errMsg,
	}
	if s.current != nil {
		p := *s.current
		state.CurrentPost = &p
	}
	return state
}

func (s *FeedStore) publishLocked() {
	s.hub.publish(s.snapshotLocked())
}

func findPost(posts []models.Post, id uuid.UUID) *models.Post {
	for i := range posts {
		if posts[i].ID == id {
			return &posts[i]
		}
	}
	return nil
}

// applyLike bumps or drops a counter, never below zero, and sets the flag.
// A flag that already matches leaves the counter alone.
func applyLike(count *int32, hasLiked *bool, liked bool) {
	if *hasLiked == liked {
		return
	}
	if liked {
		*count++
	} else if *count > 0 {
		*count--
	}
	*hasLiked = liked
}

func clonePosts(posts []models.Post) []models.Post {
	out := make([]models.Post, len(posts))
	copy(out, posts)
	return out
}
