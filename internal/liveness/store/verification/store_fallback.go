package verification

import (
	"context"
	"errors"
	"log/slog"

	"livecheck/internal/liveness/models"
	id "livecheck/pkg/domain"
	"livecheck/pkg/platform/circuit"
	"livecheck/pkg/platform/sentinel"
)

// Store is the contract shared by every verification backend.
type Store interface {
	MarkVerified(ctx context.Context, v models.Verification) error
	FindByUser(ctx context.Context, userID id.UserID) (*models.Verification, error)
}

// FallbackStore writes through to a durable primary and mirrors every
// verification in memory. While the breaker is open, primary failures are
// answered from the in-memory copy so completed sessions are not lost.
type FallbackStore struct {
	primary  Store
	fallback *InMemoryStore
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewFallback(primary Store, breaker *circuit.Breaker, logger *slog.Logger) *FallbackStore {
	if breaker == nil {
		breaker = circuit.New("verification-store")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackStore{
		primary:  primary,
		fallback: NewInMemory(),
		breaker:  breaker,
		logger:   logger,
	}
}

func (s *FallbackStore) MarkVerified(ctx context.Context, v models.Verification) error {
	_ = s.fallback.MarkVerified(ctx, v)

	if err := s.primary.MarkVerified(ctx, v); err != nil {
		if s.recordFailure(ctx, err) {
			return nil
		}
		return err
	}
	s.recordSuccess(ctx)
	return nil
}

func (s *FallbackStore) FindByUser(ctx context.Context, userID id.UserID) (*models.Verification, error) {
	v, err := s.primary.FindByUser(ctx, userID)
	switch {
	case err == nil:
		s.recordSuccess(ctx)
		return v, nil
	case errors.Is(err, sentinel.ErrNotFound):
		s.recordSuccess(ctx)
		// A verification written during an outage may exist only in memory.
		if mirrored, ferr := s.fallback.FindByUser(ctx, userID); ferr == nil {
			return mirrored, nil
		}
		return nil, err
	default:
		if s.recordFailure(ctx, err) {
			return s.fallback.FindByUser(ctx, userID)
		}
		return nil, err
	}
}

func (s *FallbackStore) recordFailure(ctx context.Context, err error) bool {
	useFallback, change := s.breaker.RecordFailure()
	if change.Opened {
		s.logger.ErrorContext(ctx, "verification store circuit opened, serving from memory",
			"breaker", s.breaker.Name(),
			"error", err,
		)
	} else {
		s.logger.WarnContext(ctx, "verification store call failed",
			"breaker", s.breaker.Name(),
			"degraded", useFallback,
			"error", err,
		)
	}
	return useFallback
}

func (s *FallbackStore) recordSuccess(ctx context.Context) {
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "verification store circuit closed", "breaker", s.breaker.Name())
	}
}
