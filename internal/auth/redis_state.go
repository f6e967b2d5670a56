package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "oauth_state:"

// RedisStateStore shares pending states between broker instances. Expiry is
// delegated to Redis and consumption uses GETDEL, so a value validates at most
// once across all instances.
type RedisStateStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStateStore(client redis.UniversalClient, ttl time.Duration) *RedisStateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &RedisStateStore{client: client, ttl: ttl}
}

func (s *RedisStateStore) Issue(ctx context.Context) (string, error) {
	logger := slog.With("component", "state_store", "operation", "issue", "backend", "redis")

	state, err := generateState()
	if err != nil {
		logger.Error("Failed to generate random bytes for state token", "error", err)
		return "", err
	}

	stored, err := s.client.SetNX(ctx, stateKeyPrefix+state, "1", s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to store state token: %w", err)
	}
	if !stored {
		return "", fmt.Errorf("state token collision")
	}

	logger.Debug("OAuth state token generated and stored", "ttl_seconds", s.ttl.Seconds())

	return state, nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}

	_, err := s.client.GetDel(ctx, stateKeyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume state token: %w", err)
	}
	return true, nil
}

func (s *RedisStateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
