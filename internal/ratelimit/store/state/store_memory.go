// Package state provides StateStore implementations: an in-memory store for
// tests and single-process runs, and a Redis store for durable deployments.
package state

import (
	"context"
	"sync"
	"time"

	"trustforge/internal/ratelimit/models"
)

// MemoryStore keeps limiter state in process memory. Suitable for tests and
// for hosts where durability across restarts is not required.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]models.State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]models.State),
	}
}

func (s *MemoryStore) Load(ctx context.Context, key string) (models.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[key]
	if !ok {
		return models.State{}, nil
	}
	// Copy the slices so callers cannot mutate stored state in place.
	return models.State{
		MinuteTimestamps: append([]time.Time(nil), state.MinuteTimestamps...),
		HourTimestamps:   append([]time.Time(nil), state.HourTimestamps...),
	}, nil
}

func (s *MemoryStore) Save(ctx context.Context, key string, state models.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = state
	return nil
}
