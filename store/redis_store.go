package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"go.pilab.hu/eduflow/domain"
	autherr "go.pilab.hu/eduflow/errors"
)

// RedisStore is a CredentialStore backed by Redis, for shared or kiosk
// deployments where the client state lives off the local disk.
type RedisStore struct {
	client *redis.Client
	prefix string // Optional prefix for keys
}

// NewRedisStore creates a new [RedisStore] instance.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

// redisKey returns the Redis key holding the session record.
func (r *RedisStore) redisKey() string {
	return fmt.Sprintf("%s:credentials:session", r.prefix)
}

// Save implements CredentialStore.Save.
func (r *RedisStore) Save(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	if err := r.client.Set(ctx, r.redisKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save session record in Redis: %w", err)
	}

	return nil
}

// Load implements CredentialStore.Load.
func (r *RedisStore) Load(ctx context.Context) (*domain.Session, error) {
	data, err := r.client.Get(ctx, r.redisKey()).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read session record from Redis: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, autherr.NewCorruptedState("stored session record is not valid JSON")
	}

	return &session, nil
}

// Clear implements CredentialStore.Clear.
func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.redisKey()).Err(); err != nil {
		return fmt.Errorf("failed to delete session record from Redis: %w", err)
	}

	return nil
}

// Close closes the underlying Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
