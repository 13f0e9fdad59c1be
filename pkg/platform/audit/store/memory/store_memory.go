package memory

import (
	"context"
	"sync"

	id "livecheck/pkg/domain"
	audit "livecheck/pkg/platform/audit"
)

// defaultMaxPerUser bounds per-user history so a long-running process without
// Postgres does not grow without limit.
const defaultMaxPerUser = 256

// InMemoryStore keeps the most recent audit events per user.
type InMemoryStore struct {
	mu         sync.RWMutex
	maxPerUser int
	events     map[id.UserID][]audit.Event
}

type Option func(*InMemoryStore)

// WithMaxPerUser overrides the per-user retention; n <= 0 is ignored.
func WithMaxPerUser(n int) Option {
	return func(s *InMemoryStore) {
		if n > 0 {
			s.maxPerUser = n
		}
	}
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		maxPerUser: defaultMaxPerUser,
		events:     make(map[id.UserID][]audit.Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := append(s.events[event.UserID], event)
	if over := len(events) - s.maxPerUser; over > 0 {
		events = append(events[:0:0], events[over:]...)
	}
	s.events[event.UserID] = events
	return nil
}

// ListByUser returns a copy of the retained events, oldest first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[userID]...), nil
}
