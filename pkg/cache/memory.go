package cache

import (
	"context"
	"sync"

	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
	"github.com/chainsafe/tornado-prover/pkg/events"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[events.CacheKey][]events.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[events.CacheKey][]events.Record)}
}

func (s *MemoryStore) Load(_ context.Context, key events.CacheKey) ([]events.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]events.Record{}, s.logs[key]...), nil
}

func (s *MemoryStore) Append(_ context.Context, key events.CacheKey, records []events.Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkAppend(key, events.LastBlock(s.logs[key]), records); err != nil {
		return apperrors.StorageError(err, "rejected cache append")
	}
	s.logs[key] = append(s.logs[key], records...)
	return nil
}

func (s *MemoryStore) Cursor(_ context.Context, key events.CacheKey) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return events.LastBlock(s.logs[key]), nil
}

func (s *MemoryStore) Reset(_ context.Context, key events.CacheKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, key)
	return nil
}
