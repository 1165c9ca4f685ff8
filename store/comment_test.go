package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	models "github.com/Mr-Leon909/tsutsuji-app/model"
)

func newCommentStore(db *memDB, opts ...Option) *CommentStore {
	return NewCommentStore(fakeComments{db}, fakeUsers{db}, opts...)
}

func findComment(t *testing.T, s *CommentStore, id uuid.UUID) models.Comment {
	t.Helper()
	for _, c := range s.Snapshot().Comments {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("comment %s not in list", id)
	return models.Comment{}
}

func TestAddCommentAppendsLocally(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	alice := db.addUser("alice", "2000-01-01")
	viewer := db.addUser("ひびき", "1996-11-13")
	post := db.addPost(alice, 0)

	rec := &recordedEvents{}
	s := newCommentStore(db, WithCommentEvents(rec))
	if err := s.LoadComments(ctx, post.ID, &viewer.ID); err != nil {
		t.Fatalf("load: %v", err)
	}
	first, err := s.AddComment(ctx, post.ID, alice.ID, "最初")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// a failed author lookup stores the row but leaves the list alone
	db.setReadError(errors.New("offline"))
	added, err := s.AddComment(ctx, post.ID, viewer.ID, "  いいね！ ")
	db.setReadError(nil)
	if err == nil {
		t.Fatal("author lookup should fail while reads are broken")
	}
	if added != nil {
		t.Fatal("no comment should be returned on failure")
	}

	added, err = s.AddComment(ctx, post.ID, viewer.ID, "  いいね！ ")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	state := s.Snapshot()
	if len(state.Comments) != 2 {
		t.Fatalf("got %d comments, want 2", len(state.Comments))
	}
	last := state.Comments[1]
	if last.ID != added.ID || last.Content != "いいね！" || last.User.Username != "ひびき" {
		t.Fatalf("unexpected appended comment %+v", last)
	}
	if last.LikesCount != 0 || last.HasLiked {
		t.Fatalf("new comment counters = %d/%v", last.LikesCount, last.HasLiked)
	}
	if state.Comments[0].ID != first.ID {
		t.Fatal("append must keep existing order")
	}
	if len(rec.subjects) != 2 {
		t.Fatalf("events = %v", rec.subjects)
	}
}

func TestAddCommentValidation(t *testing.T) {
	db := newMemDB()
	alice := db.addUser("alice", "2000-01-01")
	post := db.addPost(alice, 0)
	s := newCommentStore(db)

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"empty", "", ErrEmptyComment},
		{"blank", " \n\t", ErrEmptyComment},
		{"too long", strings.Repeat("字", models.MaxCommentLength+1), ErrCommentTooLong},
		{"at limit", strings.Repeat("字", models.MaxCommentLength), nil},
	}
	for _, tt := range tests {
		_, err := s.AddComment(context.Background(), post.ID, alice.ID, tt.content)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.wantErr)
		}
	}
	if n := len(db.comments); n != 1 {
		t.Fatalf("backend has %d comments, want 1", n)
	}
}

func TestAddCommentForOtherPostNotAppended(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	alice := db.addUser("alice", "2000-01-01")
	open := db.addPost(alice, 0)
	other := db.addPost(alice, 0)

	s := newCommentStore(db)
	if err := s.LoadComments(ctx, open.ID, nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := s.AddComment(ctx, other.ID, alice.ID, "hi"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if n := len(s.Snapshot().Comments); n != 0 {
		t.Fatalf("list for %s got %d comments", open.ID, n)
	}
}

func TestCommentLikeRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	alice := db.addUser("alice", "2000-01-01")
	viewer := db.addUser("ひびき", "1996-11-13")
	post := db.addPost(alice, 0)

	s := newCommentStore(db)
	if err := s.LoadComments(ctx, post.ID, &viewer.ID); err != nil {
		t.Fatalf("load: %v", err)
	}
	c, err := s.AddComment(ctx, post.ID, alice.ID, "hello")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.LikeComment(ctx, c.ID, viewer.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if got := findComment(t, s, c.ID); got.LikesCount != 1 || !got.HasLiked {
		t.Fatalf("after like %d/%v", got.LikesCount, got.HasLiked)
	}

	// reload from the backend agrees with the patch
	if err := s.LoadComments(ctx, post.ID, &viewer.ID); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := findComment(t, s, c.ID); got.LikesCount != 1 || !got.HasLiked {
		t.Fatalf("after reload %d/%v", got.LikesCount, got.HasLiked)
	}

	if err := s.UnlikeComment(ctx, c.ID, viewer.ID); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if got := findComment(t, s, c.ID); got.LikesCount != 0 || got.HasLiked {
		t.Fatalf("after unlike %d/%v", got.LikesCount, got.HasLiked)
	}

	if err := s.UnlikeComment(ctx, c.ID, viewer.ID); err == nil {
		t.Fatal("second unlike should fail at the backend")
	}
	if got := findComment(t, s, c.ID); got.LikesCount != 0 {
		t.Fatalf("counter went below zero: %d", got.LikesCount)
	}
}

func commentLikeCount(db *memDB, commentID uuid.UUID) int32 {
	db.mu.Lock()
	defer db.mu.Unlock()
	var n int32
	for k := range db.commentLikes {
		if k[0] == commentID {
			n++
		}
	}
	return n
}

func TestCommentDoubleLikeCountsOnce(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	alice := db.addUser("alice", "2000-01-01")
	viewer := db.addUser("ひびき", "1996-11-13")
	post := db.addPost(alice, 0)

	s := newCommentStore(db)
	if err := s.LoadComments(ctx, post.ID, &viewer.ID); err != nil {
		t.Fatalf("load: %v", err)
	}
	c, err := s.AddComment(ctx, post.ID, alice.ID, "hello")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.LikeComment(ctx, c.ID, viewer.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := s.LikeComment(ctx, c.ID, viewer.ID); err == nil {
		t.Fatal("second like should fail at the backend")
	}
	if got := findComment(t, s, c.ID); got.LikesCount != 1 || !got.HasLiked {
		t.Fatalf("after double like %d/%v", got.LikesCount, got.HasLiked)
	}
	if n := commentLikeCount(db, c.ID); n != 1 {
		t.Fatalf("backend count = %d, want 1", n)
	}

	if err := s.UnlikeComment(ctx, c.ID, viewer.ID); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if got := findComment(t, s, c.ID); got.LikesCount != 0 || got.HasLiked {
		t.Fatalf("after unlike %d/%v", got.LikesCount, got.HasLiked)
	}
	if n := commentLikeCount(db, c.ID); n != 0 {
		t.Fatalf("backend count = %d, want 0", n)
	}
}

func TestCommentLikeRollback(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	alice := db.addUser("alice", "2000-01-01")
	post := db.addPost(alice, 0)

	s := newCommentStore(db, WithRollback(true))
	c, err := s.AddComment(ctx, post.ID, alice.ID, "hello")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	db.setWriteError(errors.New("network down"))

	if err := s.LikeComment(ctx, c.ID, alice.ID); err == nil {
		t.Fatal("expected error")
	}
	if got := findComment(t, s, c.ID); got.LikesCount != 0 || got.HasLiked {
		t.Fatalf("rollback left %d/%v", got.LikesCount, got.HasLiked)
	}
}

func TestLoadCommentsFailureKeepsList(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	alice := db.addUser("alice", "2000-01-01")
	post := db.addPost(alice, 0)

	s := newCommentStore(db)
	if _, err := s.AddComment(ctx, post.ID, alice.ID, "hello"); err != nil {
		t.Fatalf("add: %v", err)
	}
	db.setReadError(errors.New("timeout"))

	if err := s.LoadComments(ctx, post.ID, nil); err == nil {
		t.Fatal("expected error")
	}
	state := s.Snapshot()
	if len(state.Comments) != 1 || state.Error != msgCommentsFailed {
		t.Fatalf("unexpected state %+v", state)
	}
}
