package persist

import (
	"context"
	"errors"
)

// Key is the slot the signed-in user is stored under.
const Key = "user"

var ErrNotFound = errors.New("persisted value not found")

// Persister is a small key-value store that survives process restarts.
type Persister interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
