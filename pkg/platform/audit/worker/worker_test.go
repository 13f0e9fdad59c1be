package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "livecheck/pkg/domain"
	audit "livecheck/pkg/platform/audit"
)

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (s *recordingSink) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func TestWorker_ForwardsUntilInboxClosed(t *testing.T) {
	sink := &recordingSink{}
	inbox := make(chan audit.Event, 2)
	userID := id.UserID(uuid.New())
	inbox <- audit.Event{UserID: userID, Action: string(audit.EventLivenessSessionStarted)}
	inbox <- audit.Event{UserID: userID, Action: string(audit.EventLivenessVerified)}
	close(inbox)

	err := NewWorker(sink, inbox, nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.events, 2)
	assert.Equal(t, string(audit.EventLivenessVerified), sink.events[1].Action)
}

func TestWorker_SinkErrorDoesNotStop(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	inbox := make(chan audit.Event, 1)
	inbox <- audit.Event{Action: string(audit.EventLivenessVerified)}
	close(inbox)

	require.NoError(t, NewWorker(sink, inbox, nil).Run(context.Background()))
}

func TestWorker_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := NewWorker(&recordingSink{}, make(chan audit.Event), nil).Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
