package store

import (
	"context"
	"sync"

	"github.com/danphilibin/ticket-waitlist/internal/model"
)

// MemoryStore implements Store with an in-memory slice. The default
// archive backend; records do not survive a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	ticks []model.TickRecord
}

// NewMemoryStore creates a new in-memory archive.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) AppendTick(_ context.Context, rec *model.TickRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	s.ticks = append(s.ticks, *rec)
	return nil
}

func (s *MemoryStore) RecentTicks(_ context.Context, limit int) ([]model.TickRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit > len(s.ticks) {
		limit = len(s.ticks)
	}

	// Newest first.
	out := make([]model.TickRecord, 0, limit)
	for i := len(s.ticks) - 1; i >= len(s.ticks)-limit; i-- {
		out = append(out, s.ticks[i])
	}
	return out, nil
}

func (s *MemoryStore) LatestTick(_ context.Context) (*model.TickRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.ticks) == 0 {
		return nil, nil
	}
	rec := s.ticks[len(s.ticks)-1]
	return &rec, nil
}
