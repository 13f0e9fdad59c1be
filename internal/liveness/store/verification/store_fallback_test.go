package verification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livecheck/internal/liveness/models"
	id "livecheck/pkg/domain"
	"livecheck/pkg/platform/circuit"
	"livecheck/pkg/platform/sentinel"
)

// flakyStore wraps an in-memory store and fails every call while down is set.
type flakyStore struct {
	mu   sync.Mutex
	down bool
	*InMemoryStore
}

var errUnavailable = errors.New("connection refused")

func (f *flakyStore) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *flakyStore) isDown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.down
}

func (f *flakyStore) MarkVerified(ctx context.Context, v models.Verification) error {
	if f.isDown() {
		return errUnavailable
	}
	return f.InMemoryStore.MarkVerified(ctx, v)
}

func (f *flakyStore) FindByUser(ctx context.Context, userID id.UserID) (*models.Verification, error) {
	if f.isDown() {
		return nil, errUnavailable
	}
	return f.InMemoryStore.FindByUser(ctx, userID)
}

func newFallbackFixture() (*FallbackStore, *flakyStore, *circuit.Breaker) {
	primary := &flakyStore{InMemoryStore: NewInMemory()}
	breaker := circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
	store := NewFallback(primary, breaker, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return store, primary, breaker
}

func verification() models.Verification {
	return models.Verification{
		UserID:     id.UserID(uuid.New()),
		SessionID:  id.NewSessionID(),
		VerifiedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFallbackStore_HealthyPrimary(t *testing.T) {
	ctx := context.Background()
	store, primary, breaker := newFallbackFixture()
	v := verification()

	require.NoError(t, store.MarkVerified(ctx, v))

	got, err := primary.InMemoryStore.FindByUser(ctx, v.UserID)
	require.NoError(t, err)
	assert.Equal(t, v.SessionID, got.SessionID)
	assert.False(t, breaker.IsOpen())

	_, err = store.FindByUser(ctx, id.UserID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestFallbackStore_ErrorsBeforeCircuitOpens(t *testing.T) {
	ctx := context.Background()
	store, primary, breaker := newFallbackFixture()
	primary.setDown(true)

	err := store.MarkVerified(ctx, verification())
	assert.ErrorIs(t, err, errUnavailable)
	assert.False(t, breaker.IsOpen())
}

func TestFallbackStore_ServesFromMemoryWhileOpen(t *testing.T) {
	ctx := context.Background()
	store, primary, breaker := newFallbackFixture()
	primary.setDown(true)
	v := verification()

	_ = store.MarkVerified(ctx, verification())
	require.NoError(t, store.MarkVerified(ctx, v), "second failure opens the circuit and is absorbed")
	assert.True(t, breaker.IsOpen())

	got, err := store.FindByUser(ctx, v.UserID)
	require.NoError(t, err)
	assert.Equal(t, v.SessionID, got.SessionID)

	primary.setDown(false)
	got, err = store.FindByUser(ctx, v.UserID)
	require.NoError(t, err, "verification written during the outage is still visible")
	assert.Equal(t, v.SessionID, got.SessionID)
	assert.False(t, breaker.IsOpen())
}
