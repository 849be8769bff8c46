package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"studentportal/internal/security"
)

const redisKeyPrefix = "studentportal:token:"

// RedisStore keeps sealed tokens in Redis with a TTL, so replicas behind a
// load balancer share sessions.
type RedisStore struct {
	client *redis.Client
	sealer *security.Sealer
	ttl    time.Duration
}

// NewRedisStore connects using a redis:// URL and pings the server.
func NewRedisStore(ctx context.Context, redisURL string, sealer *security.Sealer, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{client: client, sealer: sealer, ttl: ttl}, nil
}

func (s *RedisStore) key(sessionID string) string {
	return redisKeyPrefix + sessionID
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (string, error) {
	sealed, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}

	token, err := s.sealer.Open(sealed)
	if err != nil {
		log.Printf("Discarding unreadable token for session %s", sessionID)
		return "", s.Clear(ctx, sessionID)
	}
	return token, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID, token string) error {
	sealed, err := s.sealer.Seal(token)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(sessionID), sealed, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
