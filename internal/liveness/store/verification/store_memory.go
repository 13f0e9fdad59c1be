// Package verification persists the per-user "verified" flag set when a
// liveness session completes.
package verification

import (
	"context"
	"fmt"
	"sync"

	"livecheck/internal/liveness/models"
	id "livecheck/pkg/domain"
	"livecheck/pkg/platform/sentinel"
)

// InMemoryStore keeps verifications in memory for tests/dev.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[id.UserID]models.Verification
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{items: make(map[id.UserID]models.Verification)}
}

// MarkVerified stores v, replacing any earlier verification for the user.
func (s *InMemoryStore) MarkVerified(_ context.Context, v models.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[v.UserID] = v
	return nil
}

func (s *InMemoryStore) FindByUser(_ context.Context, userID id.UserID) (*models.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[userID]
	if !ok {
		return nil, fmt.Errorf("verification not found: %w", sentinel.ErrNotFound)
	}
	return &v, nil
}
