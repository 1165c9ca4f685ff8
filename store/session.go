package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	models "github.com/Mr-Leon909/tsutsuji-app/model"
	"github.com/Mr-Leon909/tsutsuji-app/persist"
	"github.com/Mr-Leon909/tsutsuji-app/repository"
)

// SessionCodec turns the signed-in user into the persisted record and back.
type SessionCodec interface {
	Encode(user models.User) ([]byte, error)
	Decode(data []byte) (*models.User, error)
}

type SessionState struct {
	User    *models.User `json:"user"`
	Loading bool         `json:"is_loading"`
	Error   string       `json:"error,omitempty"`
}

// SessionStore holds the authenticated identity of this client.
type SessionStore struct {
	users     repository.UserRepository
	persister persist.Persister
	codec     SessionCodec

	mu      sync.RWMutex
	user    *models.User
	loading int
	errMsg  string
	hub     hub[SessionState]
}

func NewSessionStore(users repository.UserRepository, persister persist.Persister, codec SessionCodec) *SessionStore {
	return &SessionStore{
		users:     users,
		persister: persister,
		codec:     codec,
	}
}

// Authenticate looks up a user by username and birth date. Unknown users and
// wrong birth dates both fail with ErrInvalidCredentials.
func (s *SessionStore) Authenticate(ctx context.Context, username, birthDate string) (*models.User, error) {
	s.mu.Lock()
	s.loading++
	s.errMsg = ""
	s.publishLocked()
	s.mu.Unlock()

	user, err := s.lookup(ctx, strings.TrimSpace(username), birthDate)

	s.mu.Lock()
	s.loading--
	if err != nil {
		s.errMsg = msgLoginFailed
		if errors.Is(err, ErrInvalidCredentials) {
			s.errMsg = msgInvalidCredentials
		}
		s.publishLocked()
		s.mu.Unlock()
		return nil, err
	}
	s.user = user
	s.publishLocked()
	s.mu.Unlock()

	if err := s.save(ctx, *user); err != nil {
		log.Printf("Failed to persist session for %s: %v", user.Username, err)
	}

	log.Printf("User %s signed in", user.Username)
	return cloneUser(user), nil
}

func (s *SessionStore) lookup(ctx context.Context, username, birthDate string) (*models.User, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}
	date, err := NormalizeBirthDate(birthDate)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByCredentials(ctx, username, date)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		log.Printf("Login error: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	return user, nil
}

func (s *SessionStore) save(ctx context.Context, user models.User) error {
	if s.persister == nil {
		return nil
	}
	data, err := s.codec.Encode(user)
	if err != nil {
		return err
	}
	return s.persister.Save(ctx, persist.Key, data)
}

// End clears the in-memory identity and the persisted record.
func (s *SessionStore) End(ctx context.Context) error {
	s.mu.Lock()
	s.user = nil
	s.errMsg = ""
	s.publishLocked()
	s.mu.Unlock()

	if s.persister == nil {
		return nil
	}
	if err := s.persister.Delete(ctx, persist.Key); err != nil {
		log.Printf("Failed to clear persisted session: %v", err)
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Restore loads the persisted identity at startup. A record that cannot be
// decoded, or whose user no longer exists, is discarded. It never fails.
func (s *SessionStore) Restore(ctx context.Context) *models.User {
	if s.persister == nil {
		return nil
	}

	data, err := s.persister.Load(ctx, persist.Key)
	if errors.Is(err, persist.ErrNotFound) {
		return nil
	}
	if err != nil {
		log.Printf("Failed to load stored user: %v", err)
		return nil
	}

	user, err := s.codec.Decode(data)
	if err != nil {
		log.Printf("Failed to parse stored user: %v", err)
		s.discard(ctx)
		return nil
	}

	if _, err := s.users.GetByID(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("Stored user %s no longer exists", user.ID)
			s.discard(ctx)
			return nil
		}
		log.Printf("Failed to verify stored user %s: %v", user.ID, err)
	}

	s.mu.Lock()
	s.user = user
	s.publishLocked()
	s.mu.Unlock()

	log.Printf("Restored session for %s", user.Username)
	return cloneUser(user)
}

func (s *SessionStore) discard(ctx context.Context) {
	if err := s.persister.Delete(ctx, persist.Key); err != nil {
		log.Printf("Failed to remove stored user: %v", err)
	}
}

// Current returns the signed-in user, or nil.
func (s *SessionStore) Current() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.user)
}

func (s *SessionStore) Snapshot() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe delivers the current state and every later change until cancel
// is called.
func (s *SessionStore) Subscribe() (<-chan SessionState, func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub.subscribe(s.snapshotLocked())
}

func (s *SessionStore) snapshotLocked() SessionState {
	return SessionState{
		User:    cloneUser(s.user),
		Loading: s.loading > 0,
		Error:   s.errMsg,
	}
}

func (s *SessionStore) publishLocked() {
	s.hub.publish(s.snapshotLocked())
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

var birthDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"20060102",
	"2006-1-2",
	"2006/1/2",
	"2006年1月2日",
	time.RFC3339,
}

// NormalizeBirthDate returns the date in YYYY-MM-DD form.
func NormalizeBirthDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range birthDateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized birth date %q", raw)
}
