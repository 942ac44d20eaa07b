package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shopify-video-layer/internal/domain"

	"github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "oauth_state:"

// NewRedisClient parses a redis:// URL, falling back to treating it as a
// bare host:port.
func NewRedisClient(redisURL string) *redis.Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return redis.NewClient(&redis.Options{Addr: redisURL})
	}
	return redis.NewClient(opt)
}

// RedisStateStore keeps OAuth state tokens in Redis with a TTL so every
// replica can redeem a state issued by another.
type RedisStateStore struct {
	rdb redis.Cmdable
	now func() time.Time
}

// NewRedisStateStore creates a new OAuth state store backed by redis.
func NewRedisStateStore(rdb redis.Cmdable) *RedisStateStore {
	return &RedisStateStore{rdb: rdb, now: time.Now}
}

func (s *RedisStateStore) Save(ctx context.Context, state *domain.OAuthState) error {
	ttl := time.Duration(0)
	if !state.ExpiresAt.IsZero() {
		ttl = state.ExpiresAt.Sub(s.now())
		if ttl < time.Second {
			ttl = time.Second
		}
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode oauth state: %w", err)
	}

	if err := s.rdb.Set(ctx, stateKeyPrefix+state.State, raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: failed to save oauth state: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (*domain.OAuthState, error) {
	raw, err := s.rdb.GetDel(ctx, stateKeyPrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read oauth state: %v", domain.ErrPersistenceFailure, err)
	}

	var st domain.OAuthState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("failed to decode oauth state: %w", err)
	}
	if st.Expired(s.now()) {
		return nil, nil
	}
	return &st, nil
}
