package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/snagtrack/snag/pkg/apperr"
	"github.com/snagtrack/snag/pkg/auth"
)

const sessionKeyPrefix = "session:"

// RedisSessionStore persists sessions in redis keyed by token hash.
// Expiry is enforced twice: redis evicts the key at the TTL, and the
// resolver checks the stored ExpiresAt against the clock.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore creates a session store over an existing client
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// NewRedisClient connects to redis and verifies the connection
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Put implements auth.SessionStore
func (s *RedisSessionStore) Put(ctx context.Context, tokenHash string, session auth.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+tokenHash, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Get implements auth.SessionStore
func (s *RedisSessionStore) Get(ctx context.Context, tokenHash string) (*auth.Session, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+tokenHash).Result()
	if err == redis.Nil {
		return nil, apperr.New(apperr.KindUnauthorized, "unknown session")
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var session auth.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		// Corrupt entries are dropped rather than served
		s.client.Del(ctx, sessionKeyPrefix+tokenHash)
		return nil, apperr.New(apperr.KindUnauthorized, "unknown session")
	}
	return &session, nil
}

// Delete implements auth.SessionStore
func (s *RedisSessionStore) Delete(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+tokenHash).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
