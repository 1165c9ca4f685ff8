package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	models "github.com/Mr-Leon909/tsutsuji-app/model"
	"github.com/Mr-Leon909/tsutsuji-app/repository"
)

// memDB is an in-memory backend shared by the fake repositories below.
type memDB struct {
	mu           sync.Mutex
	users        map[uuid.UUID]models.User
	birthDates   map[uuid.UUID]string
	posts        []models.Post
	likes        map[[2]uuid.UUID]bool
	comments     []models.Comment
	commentLikes map[[2]uuid.UUID]bool
	clock        time.Time

	failWrites error
	failReads  error
}

func newMemDB() *memDB {
	return &memDB{
		users:        make(map[uuid.UUID]models.User),
		birthDates:   make(map[uuid.UUID]string),
		likes:        make(map[[2]uuid.UUID]bool),
		commentLikes: make(map[[2]uuid.UUID]bool),
		clock:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memDB) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

func (m *memDB) addUser(name, birthDate string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := models.User{ID: uuid.New(), Username: name, CreatedAt: m.tick()}
	m.users[u.ID] = u
	m.birthDates[u.ID] = birthDate
	return u
}

func (m *memDB) addPost(author models.User, likes int) models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := models.Post{
		ID:        uuid.New(),
		UserID:    author.ID,
		MediaURL:  "https://example.com/" + author.Username + ".jpg",
		CreatedAt: m.tick(),
		User:      author.Author(),
	}
	m.posts = append(m.posts, p)
	for i := 0; i < likes; i++ {
		m.likes[[2]uuid.UUID{p.ID, uuid.New()}] = true
	}
	return p
}

func (m *memDB) likeCount(postID uuid.UUID) int32 {
	var n int32
	for k := range m.likes {
		if k[0] == postID {
			n++
		}
	}
	return n
}

func (m *memDB) decorate(p models.Post) models.Post {
	p.LikesCount = m.likeCount(p.ID)
	for _, c := range m.comments {
		if c.PostID == p.ID {
			p.CommentsCount++
		}
	}
	return p
}

type fakeUsers struct{ db *memDB }

func (f fakeUsers) FindByCredentials(ctx context.Context, username, birthDate string) (*models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failReads != nil {
		return nil, f.db.failReads
	}
	for id, u := range f.db.users {
		if u.Username == username && f.db.birthDates[id] == birthDate {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakeUsers) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failReads != nil {
		return nil, f.db.failReads
	}
	u, ok := f.db.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (f fakeUsers) Create(ctx context.Context, user *models.User, birthDate string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.users[user.ID] = *user
	f.db.birthDates[user.ID] = birthDate
	return nil
}

type fakePosts struct{ db *memDB }

func (f fakePosts) List(ctx context.Context, authorID *uuid.UUID) ([]models.Post, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failReads != nil {
		return nil, f.db.failReads
	}
	var out []models.Post
	for _, p := range f.db.posts {
		if authorID == nil || p.UserID == *authorID {
			out = append(out, f.db.decorate(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakePosts) GetByID(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failReads != nil {
		return nil, f.db.failReads
	}
	for _, p := range f.db.posts {
		if p.ID == postID {
			d := f.db.decorate(p)
			return &d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakePosts) Create(ctx context.Context, post models.NewPost) (uuid.UUID, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failWrites != nil {
		return uuid.Nil, f.db.failWrites
	}
	author, ok := f.db.users[post.UserID]
	if !ok {
		return uuid.Nil, errors.New("foreign key violation")
	}
	p := models.Post{
		ID:        uuid.New(),
		UserID:    post.UserID,
		MediaURL:  post.MediaURL,
		IsVideo:   post.IsVideo,
		Caption:   post.Caption,
		CreatedAt: f.db.tick(),
		User:      author.Author(),
	}
	f.db.posts = append(f.db.posts, p)
	return p.ID, nil
}

type fakeLikes struct{ db *memDB }

func (f fakeLikes) CreateLike(ctx context.Context, postID, userID uuid.UUID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failWrites != nil {
		return f.db.failWrites
	}
	key := [2]uuid.UUID{postID, userID}
	if f.db.likes[key] {
		return repository.ErrAlreadyLiked
	}
	f.db.likes[key] = true
	return nil
}

func (f fakeLikes) DeleteLike(ctx context.Context, postID, userID uuid.UUID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failWrites != nil {
		return f.db.failWrites
	}
	key := [2]uuid.UUID{postID, userID}
	if !f.db.likes[key] {
		return repository.ErrLikeNotFound
	}
	delete(f.db.likes, key)
	return nil
}

func (f fakeLikes) LikedPostIDs(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make(map[uuid.UUID]bool, len(postIDs))
	for _, id := range postIDs {
		out[id] = f.db.likes[[2]uuid.UUID{id, userID}]
	}
	return out, nil
}

type fakeComments struct{ db *memDB }

func (f fakeComments) ListByPost(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failReads != nil {
		return nil, f.db.failReads
	}
	var out []models.Comment
	for _, c := range f.db.comments {
		if c.PostID != postID {
			continue
		}
		for k := range f.db.commentLikes {
			if k[0] == c.ID {
				c.LikesCount++
			}
		}
		c.User = f.db.users[c.UserID].Author()
		out = append(out, c)
	}
	return out, nil
}

func (f fakeComments) Create(ctx context.Context, comment *models.Comment) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failWrites != nil {
		return f.db.failWrites
	}
	comment.ID = uuid.New()
	comment.CreatedAt = f.db.tick()
	f.db.comments = append(f.db.comments, *comment)
	return nil
}

func (f fakeComments) CreateLike(ctx context.Context, commentID, userID uuid.UUID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failWrites != nil {
		return f.db.failWrites
	}
	key := [2]uuid.UUID{commentID, userID}
	if f.db.commentLikes[key] {
		return repository.ErrAlreadyLiked
	}
	f.db.commentLikes[key] = true
	return nil
}

func (f fakeComments) DeleteLike(ctx context.Context, commentID, userID uuid.UUID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failWrites != nil {
		return f.db.failWrites
	}
	key := [2]uuid.UUID{commentID, userID}
	if !f.db.commentLikes[key] {
		return repository.ErrLikeNotFound
	}
	delete(f.db.commentLikes, key)
	return nil
}

func (f fakeComments) LikedCommentIDs(ctx context.Context, userID uuid.UUID, commentIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make(map[uuid.UUID]bool, len(commentIDs))
	for _, id := range commentIDs {
		out[id] = f.db.commentLikes[[2]uuid.UUID{id, userID}]
	}
	return out, nil
}

func (m *memDB) setWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = err
}

func (m *memDB) setReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReads = err
}
