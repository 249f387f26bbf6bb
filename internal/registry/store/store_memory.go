package store

import (
	"context"
	"sort"
	"sync"

	"trustforge/internal/registry"
	"trustforge/pkg/platform/sentinel"
)

// MemoryStore keeps credential records in process memory. Used by tests and
// single-node deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]registry.Record
}

// NewMemory constructs an empty in-memory credential store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]registry.Record),
	}
}

func (s *MemoryStore) Save(_ context.Context, record registry.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; ok {
		return sentinel.ErrConflict
	}
	s.records[record.ID] = record
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (registry.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return registry.Record{}, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *MemoryStore) Update(_ context.Context, record registry.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.records[record.ID] = record
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, owner string) ([]registry.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]registry.Record, 0)
	for _, record := range s.records {
		if record.Owner == owner {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

func (s *MemoryStore) CountByOwner(_ context.Context, owner string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, record := range s.records {
		if record.Owner == owner {
			count++
		}
	}
	return count, nil
}
