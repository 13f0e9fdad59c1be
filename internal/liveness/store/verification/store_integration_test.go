//go:build integration

package verification_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"livecheck/internal/liveness/models"
	"livecheck/internal/liveness/store/verification"
	id "livecheck/pkg/domain"
	"livecheck/pkg/platform/sentinel"
	"livecheck/pkg/testutil/containers"
)

type verificationStore interface {
	MarkVerified(ctx context.Context, v models.Verification) error
	FindByUser(ctx context.Context, userID id.UserID) (*models.Verification, error)
}

type StoreSuite struct {
	suite.Suite
	stores map[string]verificationStore
}

func TestStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	rc := containers.NewRedisContainer(s.T())
	pg := containers.NewPostgresContainer(s.T())

	pgStore := verification.NewPostgres(pg.DB)
	s.Require().NoError(pgStore.EnsureSchema(context.Background()))

	s.stores = map[string]verificationStore{
		"redis":    verification.NewRedis(rc.Client.Client),
		"postgres": pgStore,
	}
}

func (s *StoreSuite) TestRoundTrip() {
	ctx := context.Background()
	for name, store := range s.stores {
		s.Run(name, func() {
			userID := id.UserID(uuid.New())

			_, err := store.FindByUser(ctx, userID)
			s.ErrorIs(err, sentinel.ErrNotFound)

			v := models.Verification{
				UserID:     userID,
				SessionID:  id.NewSessionID(),
				VerifiedAt: time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC),
			}
			s.Require().NoError(store.MarkVerified(ctx, v))
			s.Require().NoError(store.MarkVerified(ctx, v))

			got, err := store.FindByUser(ctx, userID)
			s.Require().NoError(err)
			s.Equal(v.SessionID, got.SessionID)
			s.True(v.VerifiedAt.Equal(got.VerifiedAt))
		})
	}
}

func (s *StoreSuite) TestRedisTTL() {
	rc := containers.NewRedisContainer(s.T())
	store := verification.NewRedis(rc.Client.Client, verification.WithTTL(time.Minute))
	userID := id.UserID(uuid.New())
	s.Require().NoError(store.MarkVerified(context.Background(), models.Verification{
		UserID: userID, SessionID: id.NewSessionID(), VerifiedAt: time.Now(),
	}))

	ttl, err := rc.Client.TTL(context.Background(), "liveness:verified:"+userID.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}
