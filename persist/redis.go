package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPersister keeps values under prefixed redis keys.
type RedisPersister struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisPersister wraps an existing client. A zero ttl keeps keys forever.
func NewRedisPersister(client *redis.Client, prefix string, ttl time.Duration) *RedisPersister {
	return &RedisPersister{client: client, prefix: prefix, ttl: ttl}
}

func (p *RedisPersister) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := p.client.Get(ctx, p.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, nil
}

func (p *RedisPersister) Save(ctx context.Context, key string, value []byte) error {
	if err := p.client.Set(ctx, p.prefix+key, value, p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (p *RedisPersister) Delete(ctx context.Context, key string) error {
	if err := p.client.Del(ctx, p.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
