package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"trustforge/internal/ratelimit/models"
)

// stateTTL bounds how long abandoned limiter state lingers in Redis. It must
// exceed the longest window so pruning semantics are unaffected.
const stateTTL = 2 * models.HourWindow

// RedisStore persists limiter state as a single JSON value per subject key.
// Load and Save are a plain GET/SET with no transaction, which preserves the
// documented check-then-record race across concurrent contexts.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context, key string) (models.State, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return models.State{}, nil
	}
	if err != nil {
		return models.State{}, fmt.Errorf("load rate limit state: %w", err)
	}

	var state models.State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return models.State{}, fmt.Errorf("decode rate limit state: %w", err)
	}
	return state, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, state models.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode rate limit state: %w", err)
	}
	if err := s.client.Set(ctx, key, raw, stateTTL).Err(); err != nil {
		return fmt.Errorf("save rate limit state: %w", err)
	}
	return nil
}
