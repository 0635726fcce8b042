package intake

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"clerk/pkg/platform/sentinel"
)

// MemoryStore keeps snapshots in process memory. It favors clarity over
// performance and is the default backend for tests and demos.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]Snapshot)}
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if snap, ok := s.snapshots[id]; ok {
		return snap, nil
	}
	return Snapshot{}, fmt.Errorf("snapshot %s: %w", id, sentinel.ErrNotFound)
}

func (s *MemoryStore) Save(_ context.Context, snapshot Snapshot) error {
	if snapshot.ID == "" {
		return fmt.Errorf("snapshot id is required: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.ID] = snapshot
	return nil
}
