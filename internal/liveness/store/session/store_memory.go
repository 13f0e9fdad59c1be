package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	lsession "livecheck/internal/liveness/session"
	id "livecheck/pkg/domain"
	"livecheck/pkg/platform/sentinel"
)

// Error Contract:
// - Return sentinel.ErrNotFound when the session does not exist
// - Return nil for successful operations
//
// InMemoryStore keeps live sessions in process memory. Sessions hold an
// evaluator with frame history, so they are never serialized.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*lsession.Session
}

func New() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[id.SessionID]*lsession.Session)}
}

func (s *InMemoryStore) Save(_ context.Context, sess *lsession.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, sessionID id.SessionID) (*lsession.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess, nil
	}
	return nil, fmt.Errorf("liveness session not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("liveness session not found: %w", sentinel.ErrNotFound)
	}
	delete(s.sessions, sessionID)
	return nil
}

// PurgeInactive removes sessions whose last activity is before cutoff and
// returns them.
func (s *InMemoryStore) PurgeInactive(_ context.Context, cutoff time.Time) ([]*lsession.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged []*lsession.Session
	for sessionID, sess := range s.sessions {
		if sess.LastActivity().Before(cutoff) {
			purged = append(purged, sess)
			delete(s.sessions, sessionID)
		}
	}
	return purged, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}
