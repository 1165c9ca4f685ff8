package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	database "github.com/Mr-Leon909/tsutsuji-app/db"
	models "github.com/Mr-Leon909/tsutsuji-app/model"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	cfg := database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}
	if err := database.Migrate(cfg, "up"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	conn, err := database.NewConnection(cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn.DB
}

func seedUser(t *testing.T, users UserRepository, name, birthDate string) models.User {
	t.Helper()
	u := models.User{Username: name}
	if err := users.Create(context.Background(), &u, birthDate); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(newTestDB(t))
	hibiki := seedUser(t, users, "ひびき", "1996-11-13")

	got, err := users.FindByCredentials(ctx, "ひびき", "1996-11-13")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != hibiki.ID || got.Username != "ひびき" || got.AvatarURL != nil {
		t.Fatalf("got %+v, want %+v", got, hibiki)
	}

	for _, tc := range [][2]string{{"ひびき", "1996-11-14"}, {"かなで", "1996-11-13"}} {
		if _, err := users.FindByCredentials(ctx, tc[0], tc[1]); !errors.Is(err, ErrNotFound) {
			t.Errorf("FindByCredentials(%q, %q) err = %v, want ErrNotFound", tc[0], tc[1], err)
		}
	}

	if _, err := users.GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID unknown: %v", err)
	}

	// seeding twice keeps the first row
	dup := models.User{Username: "ひびき"}
	if err := users.Create(ctx, &dup, "2000-01-01"); err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if _, err := users.FindByCredentials(ctx, "ひびき", "2000-01-01"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("duplicate seed replaced the user: %v", err)
	}
}

func TestPostRepositoryCountsAndOrder(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	likes := NewLikeRepository(db)
	comments := NewCommentRepository(db)

	alice := seedUser(t, users, "alice", "2000-01-01")
	bob := seedUser(t, users, "bob", "2000-01-02")

	caption := "はじめての投稿"
	first, err := posts.Create(ctx, models.NewPost{UserID: alice.ID, MediaURL: "/uploads/a.jpg", Caption: &caption})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := posts.Create(ctx, models.NewPost{UserID: bob.ID, MediaURL: "/uploads/b.mp4", IsVideo: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, u := range []models.User{alice, bob} {
		if err := likes.CreateLike(ctx, first, u.ID); err != nil {
			t.Fatalf("like: %v", err)
		}
	}
	if err := comments.Create(ctx, &models.Comment{PostID: first, UserID: bob.ID, Content: "nice"}); err != nil {
		t.Fatalf("comment: %v", err)
	}

	all, err := posts.List(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != second || all[1].ID != first {
		t.Fatalf("unexpected order %+v", all)
	}
	if all[1].LikesCount != 2 || all[1].CommentsCount != 1 {
		t.Fatalf("counts = %d/%d, want 2/1", all[1].LikesCount, all[1].CommentsCount)
	}
	if all[1].User.Username != "alice" || all[1].Caption == nil || *all[1].Caption != caption {
		t.Fatalf("joined fields wrong: %+v", all[1])
	}
	if !all[0].IsVideo || all[0].Caption != nil {
		t.Fatalf("video post wrong: %+v", all[0])
	}

	own, err := posts.List(ctx, &bob.ID)
	if err != nil {
		t.Fatalf("list by author: %v", err)
	}
	if len(own) != 1 || own[0].ID != second {
		t.Fatalf("bob's posts = %+v", own)
	}

	one, err := posts.GetByID(ctx, first)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if one.LikesCount != 2 || one.User.Username != "alice" {
		t.Fatalf("get = %+v", one)
	}
	if _, err := posts.GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get unknown: %v", err)
	}
}

func TestLikeRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	likes := NewLikeRepository(db)

	alice := seedUser(t, users, "alice", "2000-01-01")
	liked, err := posts.Create(ctx, models.NewPost{UserID: alice.ID, MediaURL: "a.jpg"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	other, err := posts.Create(ctx, models.NewPost{UserID: alice.ID, MediaURL: "b.jpg"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := likes.CreateLike(ctx, liked, alice.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := likes.CreateLike(ctx, liked, alice.ID); !errors.Is(err, ErrAlreadyLiked) {
		t.Fatalf("second like: %v, want ErrAlreadyLiked", err)
	}

	got, err := likes.LikedPostIDs(ctx, alice.ID, []uuid.UUID{liked, other})
	if err != nil {
		t.Fatalf("liked ids: %v", err)
	}
	if !got[liked] || got[other] {
		t.Fatalf("liked ids = %v", got)
	}

	empty, err := likes.LikedPostIDs(ctx, alice.ID, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty lookup = %v, %v", empty, err)
	}

	if err := likes.DeleteLike(ctx, liked, alice.ID); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if err := likes.DeleteLike(ctx, liked, alice.ID); !errors.Is(err, ErrLikeNotFound) {
		t.Fatalf("second unlike: %v, want ErrLikeNotFound", err)
	}
}

func TestCommentRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	comments := NewCommentRepository(db)

	alice := seedUser(t, users, "alice", "2000-01-01")
	bob := seedUser(t, users, "bob", "2000-01-02")
	postID, err := posts.Create(ctx, models.NewPost{UserID: alice.ID, MediaURL: "a.jpg"})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	first := &models.Comment{PostID: postID, UserID: alice.ID, Content: "first"}
	second := &models.Comment{PostID: postID, UserID: bob.ID, Content: "second"}
	for _, c := range []*models.Comment{first, second} {
		if err := comments.Create(ctx, c); err != nil {
			t.Fatalf("create comment: %v", err)
		}
		if c.ID == uuid.Nil || c.CreatedAt.IsZero() {
			t.Fatalf("server fields not set: %+v", c)
		}
	}

	if err := comments.CreateLike(ctx, second.ID, alice.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := comments.CreateLike(ctx, second.ID, alice.ID); !errors.Is(err, ErrAlreadyLiked) {
		t.Fatalf("second like: %v", err)
	}

	list, err := comments.ListByPost(ctx, postID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("unexpected order %+v", list)
	}
	if list[1].LikesCount != 1 || list[1].User.Username != "bob" {
		t.Fatalf("second comment = %+v", list[1])
	}

	liked, err := comments.LikedCommentIDs(ctx, alice.ID, []uuid.UUID{first.ID, second.ID})
	if err != nil {
		t.Fatalf("liked ids: %v", err)
	}
	if liked[first.ID] || !liked[second.ID] {
		t.Fatalf("liked = %v", liked)
	}

	if err := comments.DeleteLike(ctx, second.ID, alice.ID); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if err := comments.DeleteLike(ctx, second.ID, alice.ID); !errors.Is(err, ErrLikeNotFound) {
		t.Fatalf("second unlike: %v", err)
	}
}
