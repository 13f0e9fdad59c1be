//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "livecheck/pkg/domain"
	audit "livecheck/pkg/platform/audit"
	"livecheck/pkg/testutil/containers"
)

type StoreSuite struct {
	suite.Suite
	store *Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	pg := containers.NewPostgresContainer(s.T())
	s.store = New(pg.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *StoreSuite) TestAppendAndList() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: base,
		UserID:    userID,
		SessionID: "s-1",
		Action:    string(audit.EventLivenessSessionStarted),
		Platform:  "iOS",
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: base.Add(time.Minute),
		UserID:    userID,
		SessionID: "s-1",
		Action:    string(audit.EventLivenessVerified),
	}))

	events, err := s.store.ListByUser(ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventLivenessSessionStarted), events[0].Action)
	s.Equal(audit.CategoryOperations, events[0].Category)
	s.Equal("iOS", events[0].Platform)
	s.Equal(audit.CategoryCompliance, events[1].Category)
}
