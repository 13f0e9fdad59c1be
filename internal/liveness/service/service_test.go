package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks SessionStore,VerificationStore,AuditPublisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"livecheck/internal/liveness/models"
	"livecheck/internal/liveness/service/mocks"
	"livecheck/internal/liveness/session"
	id "livecheck/pkg/domain"
	dErrors "livecheck/pkg/domain-errors"
	audit "livecheck/pkg/platform/audit"
	"livecheck/pkg/platform/sentinel"
	"livecheck/pkg/requestcontext"
)

const iPhoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type ServiceSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	sessions      *mocks.MockSessionStore
	verifications *mocks.MockVerificationStore
	auditor       *mocks.MockAuditPublisher
	service       *Service
	userID        id.UserID

	mu       sync.Mutex
	events   []audit.Event
	verified chan audit.Event
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.sessions = mocks.NewMockSessionStore(s.ctrl)
	s.verifications = mocks.NewMockVerificationStore(s.ctrl)
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)
	s.userID = id.UserID(uuid.New())
	s.events = nil
	s.verified = make(chan audit.Event, 1)

	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event audit.Event) error {
			s.mu.Lock()
			s.events = append(s.events, event)
			s.mu.Unlock()
			if event.Action == string(audit.EventLivenessVerified) {
				s.verified <- event
			}
			return nil
		}).AnyTimes()

	svc, err := New(s.sessions, s.verifications,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.auditor),
		WithConfig(Config{
			GestureOrder:     []models.GestureKind{models.GestureSmile},
			MinFrameInterval: 0,
			CompletionDelay:  0,
			SessionTTL:       time.Hour,
		}),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) ctxAt(t time.Time) context.Context {
	ctx := requestcontext.WithTime(context.Background(), t)
	ctx = requestcontext.WithClientMetadata(ctx, "10.1.2.3", iPhoneUA)
	return requestcontext.WithRequestID(ctx, "req-123")
}

func (s *ServiceSuite) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action
	}
	return out
}

// startSession runs StartSession and captures the stored session.
func (s *ServiceSuite) startSession(ctx context.Context) *session.Session {
	var stored *session.Session
	s.sessions.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, sess *session.Session) error {
			stored = sess
			return nil
		})
	_, err := s.service.StartSession(ctx, s.userID, 375)
	s.Require().NoError(err)
	s.Require().NotNil(stored)
	return stored
}

func smileFrame(p float64) models.Frame {
	return models.Frame{Faces: []models.FaceMeasurement{{
		Bounds:                  models.Rect{MinX: 87.5, MinY: 112.5, Width: 200, Height: 200},
		LeftEyeOpenProbability:  0.9,
		RightEyeOpenProbability: 0.9,
		SmilingProbability:      p,
	}}}
}

func (s *ServiceSuite) TestNew() {
	s.Run("nil session store returns error", func() {
		_, err := New(nil, s.verifications)
		s.ErrorContains(err, "session store is required")
	})

	s.Run("nil verification store returns error", func() {
		_, err := New(s.sessions, nil)
		s.ErrorContains(err, "verification store is required")
	})

	s.Run("empty gesture order falls back to default", func() {
		svc, err := New(s.sessions, s.verifications, WithConfig(Config{}))
		s.Require().NoError(err)
		s.Equal(models.DefaultGestureOrder, svc.config.GestureOrder)
	})
}

func (s *ServiceSuite) TestStartSession() {
	s.Run("rejects narrow viewport", func() {
		_, err := s.service.StartSession(s.ctxAt(t0), s.userID, 320)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("rejects anonymous caller", func() {
		_, err := s.service.StartSession(s.ctxAt(t0), id.UserID{}, 375)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("store failure is internal", func() {
		s.sessions.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("boom"))
		_, err := s.service.StartSession(s.ctxAt(t0), s.userID, 375)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("creates session and emits audit", func() {
		s.sessions.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
		view, err := s.service.StartSession(s.ctxAt(t0), s.userID, 375)
		s.Require().NoError(err)

		s.Equal(s.userID, view.UserID)
		s.Equal(t0, view.CreatedAt)
		s.Contains(view.Platform, "iPhone")
		s.Equal(models.NewSequenceState([]models.GestureKind{models.GestureSmile}), view.State)
		s.Equal(models.HeadlinePositionFace, view.Prompt.Headline)

		s.Contains(s.actions(), string(audit.EventLivenessSessionStarted))
		s.mu.Lock()
		last := s.events[len(s.events)-1]
		s.mu.Unlock()
		s.Equal("req-123", last.RequestID)
		s.Equal("10.1.2.3", last.ClientIP)
	})
}

func (s *ServiceSuite) TestSubmitFrame() {
	s.Run("unknown session is not found", func() {
		sessionID := id.NewSessionID()
		s.sessions.EXPECT().FindByID(gomock.Any(), sessionID).
			Return(nil, errors.Join(errors.New("missing"), sentinel.ErrNotFound))
		_, err := s.service.SubmitFrame(s.ctxAt(t0), s.userID, sessionID, smileFrame(0))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("another user's session is forbidden", func() {
		sess := session.New(id.NewSessionID(), id.UserID(uuid.New()))
		s.sessions.EXPECT().FindByID(gomock.Any(), sess.ID).Return(sess, nil)
		_, err := s.service.SubmitFrame(s.ctxAt(time.Now()), s.userID, sess.ID, smileFrame(0))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Contains(s.actions(), string(audit.EventLivenessAccessDenied))
	})

	s.Run("idle session is expired", func() {
		sess := s.startSession(s.ctxAt(t0))
		s.sessions.EXPECT().FindByID(gomock.Any(), sess.ID).Return(sess, nil)
		s.sessions.EXPECT().Delete(gomock.Any(), sess.ID).Return(nil)
		_, err := s.service.SubmitFrame(s.ctxAt(t0.Add(2*time.Hour)), s.userID, sess.ID, smileFrame(0))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestCompletionMarksVerifiedOnce() {
	ctx := s.ctxAt(t0)
	sess := s.startSession(ctx)
	s.sessions.EXPECT().FindByID(gomock.Any(), sess.ID).Return(sess, nil).Times(2)

	s.verifications.EXPECT().MarkVerified(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, v models.Verification) error {
			s.Equal(s.userID, v.UserID)
			s.Equal(sess.ID, v.SessionID)
			s.Equal(t0, v.VerifiedAt)
			return nil
		}).Times(1)

	result, err := s.service.SubmitFrame(ctx, s.userID, sess.ID, smileFrame(0.95))
	s.Require().NoError(err)
	s.Equal(models.VerdictGestureSatisfied, result.Verdict)
	s.True(result.State.Complete)
	s.Equal(100.0, result.State.ProgressFill)
	s.Equal(models.HeadlineComplete, result.Prompt.Headline)

	select {
	case event := <-s.verified:
		s.Equal(s.userID, event.UserID)
	case <-time.After(time.Second):
		s.FailNow("verified event not emitted")
	}

	_, err = s.service.SubmitFrame(ctx, s.userID, sess.ID, smileFrame(0.95))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestResetSession() {
	ctx := s.ctxAt(t0)
	sess := s.startSession(ctx)
	s.sessions.EXPECT().FindByID(gomock.Any(), sess.ID).Return(sess, nil).Times(2)

	result, err := s.service.SubmitFrame(ctx, s.userID, sess.ID, smileFrame(0.1))
	s.Require().NoError(err)
	s.Equal(models.PresenceYes, result.State.FaceDetected)

	view, err := s.service.ResetSession(ctx, s.userID, sess.ID)
	s.Require().NoError(err)
	s.Equal(models.PresenceNo, view.State.FaceDetected)
	s.Zero(view.State.ProgressFill)
	s.Contains(s.actions(), string(audit.EventLivenessSessionReset))
}

func (s *ServiceSuite) TestVerificationStatus() {
	s.Run("not verified", func() {
		s.verifications.EXPECT().FindByUser(gomock.Any(), s.userID).Return(nil, sentinel.ErrNotFound)
		status, err := s.service.VerificationStatus(context.Background(), s.userID)
		s.Require().NoError(err)
		s.False(status.Verified)
	})

	s.Run("verified", func() {
		v := &models.Verification{UserID: s.userID, SessionID: id.NewSessionID(), VerifiedAt: t0}
		s.verifications.EXPECT().FindByUser(gomock.Any(), s.userID).Return(v, nil)
		status, err := s.service.VerificationStatus(context.Background(), s.userID)
		s.Require().NoError(err)
		s.True(status.Verified)
		s.Equal(t0, status.VerifiedAt)
		s.Equal(v.SessionID, status.SessionID)
	})

	s.Run("store failure", func() {
		s.verifications.EXPECT().FindByUser(gomock.Any(), s.userID).Return(nil, errors.New("redis down"))
		_, err := s.service.VerificationStatus(context.Background(), s.userID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestPurgeExpired() {
	stale := session.New(id.NewSessionID(), s.userID, session.WithCreatedAt(t0))
	s.sessions.EXPECT().PurgeInactive(gomock.Any(), t0.Add(2*time.Hour).Add(-time.Hour)).
		Return([]*session.Session{stale}, nil)

	n, err := s.service.PurgeExpired(s.ctxAt(t0.Add(2 * time.Hour)))
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Contains(s.actions(), string(audit.EventLivenessSessionExpired))
}

func (s *ServiceSuite) TestDescribePlatform() {
	s.Equal("unknown", describePlatform(""))
	label := describePlatform(iPhoneUA)
	s.Contains(label, "Safari")
	s.Contains(label, "iPhone")
}
