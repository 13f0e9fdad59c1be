package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"livecheck/internal/liveness/geometry"
	"livecheck/internal/liveness/models"
	"livecheck/internal/liveness/session"
	id "livecheck/pkg/domain"
	dErrors "livecheck/pkg/domain-errors"
	audit "livecheck/pkg/platform/audit"
	"livecheck/pkg/platform/sentinel"
	"livecheck/pkg/requestcontext"
)

// SessionView is the read-only projection of a session returned to callers.
type SessionView struct {
	ID        id.SessionID
	UserID    id.UserID
	Platform  string
	CreatedAt time.Time
	State     models.SequenceState
	Prompt    models.Prompt
}

// FrameResult is the outcome of submitting one frame.
type FrameResult struct {
	Verdict models.Verdict
	Skipped bool
	State   models.SequenceState
	Prompt  models.Prompt
}

// VerificationStatus reports whether a user has passed liveness.
type VerificationStatus struct {
	Verified   bool
	VerifiedAt time.Time
	SessionID  id.SessionID
}

// StartSession opens a new liveness session for userID. viewportWidth is the
// client's screen width, used to centre the preview area.
func (s *Service) StartSession(ctx context.Context, userID id.UserID, viewportWidth float64) (view *SessionView, err error) {
	ctx, span := s.tracer.Start(ctx, "liveness.StartSession")
	defer func() { endSpan(span, err) }()

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if viewportWidth < geometry.PreviewSide {
		return nil, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("viewport_width must be at least %.0f", geometry.PreviewSide))
	}

	platform := describePlatform(requestcontext.UserAgent(ctx))
	sess := session.New(id.NewSessionID(), userID,
		session.WithGestureOrder(s.config.GestureOrder),
		session.WithPreview(geometry.PreviewRect(viewportWidth)),
		session.WithMinFrameInterval(s.config.MinFrameInterval),
		session.WithCompletionDelay(s.config.CompletionDelay),
		session.WithOnComplete(s.onSessionComplete),
		session.WithLogger(s.logger),
		session.WithPlatform(platform),
		session.WithCreatedAt(requestcontext.Now(ctx)),
	)
	span.SetAttributes(attribute.String("liveness.session_id", sess.ID.String()))

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save liveness session")
	}

	s.metrics.IncSessionsStarted()
	s.logAudit(ctx, audit.Event{
		UserID:    userID,
		SessionID: sess.ID.String(),
		Action:    string(audit.EventLivenessSessionStarted),
		ClientIP:  requestcontext.ClientIP(ctx),
		Platform:  platform,
	}, "platform", platform)

	return viewOf(sess), nil
}

// SubmitFrame feeds one detector frame into the user's session.
func (s *Service) SubmitFrame(ctx context.Context, userID id.UserID, sessionID id.SessionID, frame models.Frame) (result *FrameResult, err error) {
	ctx, span := s.tracer.Start(ctx, "liveness.SubmitFrame", trace.WithAttributes(
		attribute.String("liveness.session_id", sessionID.String()),
		attribute.Int("liveness.faces", len(frame.Faces)),
	))
	defer func() { endSpan(span, err) }()
	start := time.Now()

	sess, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	res, err := sess.HandleFrame(ctx, frame)
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeConflict, "liveness session already complete")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to process frame")
	}
	s.metrics.ObserveFrame(string(res.Verdict), res.Skipped, start)
	span.SetAttributes(
		attribute.String("liveness.verdict", string(res.Verdict)),
		attribute.Bool("liveness.skipped", res.Skipped),
	)

	for _, t := range res.Transitions {
		if t == models.FaceTooBigYes {
			s.logAudit(ctx, audit.Event{
				UserID:    userID,
				SessionID: sessionID.String(),
				Action:    string(audit.EventLivenessFaceTooClose),
			})
		}
	}

	return &FrameResult{
		Verdict: res.Verdict,
		Skipped: res.Skipped,
		State:   res.State,
		Prompt:  models.PromptFor(res.State),
	}, nil
}

// GetSession returns the current state of the user's session.
func (s *Service) GetSession(ctx context.Context, userID id.UserID, sessionID id.SessionID) (view *SessionView, err error) {
	ctx, span := s.tracer.Start(ctx, "liveness.GetSession")
	defer func() { endSpan(span, err) }()

	sess, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return viewOf(sess), nil
}

// ResetSession restarts the user's session from the first gesture.
func (s *Service) ResetSession(ctx context.Context, userID id.UserID, sessionID id.SessionID) (view *SessionView, err error) {
	ctx, span := s.tracer.Start(ctx, "liveness.ResetSession")
	defer func() { endSpan(span, err) }()

	sess, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Reset(ctx); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeConflict, "liveness session already complete")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset session")
	}

	s.metrics.IncSessionResets()
	s.logAudit(ctx, audit.Event{
		UserID:    userID,
		SessionID: sessionID.String(),
		Action:    string(audit.EventLivenessSessionReset),
		Reason:    "explicit",
	})
	return viewOf(sess), nil
}

// VerificationStatus reports whether userID has completed a liveness session.
func (s *Service) VerificationStatus(ctx context.Context, userID id.UserID) (status *VerificationStatus, err error) {
	ctx, span := s.tracer.Start(ctx, "liveness.VerificationStatus")
	defer func() { endSpan(span, err) }()

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	v, err := s.verifications.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &VerificationStatus{Verified: false}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification status")
	}
	return &VerificationStatus{Verified: true, VerifiedAt: v.VerifiedAt, SessionID: v.SessionID}, nil
}

// PurgeExpired drops sessions idle for longer than the session TTL.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	cutoff := requestcontext.Now(ctx).Add(-s.config.SessionTTL)
	purged, err := s.sessions.PurgeInactive(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge liveness sessions")
	}
	for _, sess := range purged {
		s.logAudit(ctx, audit.Event{
			UserID:    sess.UserID,
			SessionID: sess.ID.String(),
			Action:    string(audit.EventLivenessSessionExpired),
		})
	}
	s.metrics.IncSessionsExpired(len(purged))
	s.syncActiveSessions(ctx)
	return len(purged), nil
}

// sessionCounter is implemented by stores that can report their size.
type sessionCounter interface {
	Count(ctx context.Context) (int, error)
}

// syncActiveSessions corrects drift in the active-session gauge, which is
// otherwise maintained incrementally.
func (s *Service) syncActiveSessions(ctx context.Context) {
	counter, ok := s.sessions.(sessionCounter)
	if !ok {
		return
	}
	n, err := counter.Count(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "count liveness sessions", "error", err)
		return
	}
	s.metrics.SetActiveSessions(n)
}

// RunJanitor purges expired sessions every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := s.PurgeExpired(ctx); err != nil {
				s.logger.ErrorContext(ctx, "liveness session purge failed", "error", err)
			} else if n > 0 {
				s.logger.InfoContext(ctx, "purged expired liveness sessions", "count", n)
			}
		}
	}
}

// onSessionComplete runs once per session after the completion delay.
func (s *Service) onSessionComplete(ctx context.Context, sess *session.Session) {
	completedAt := sess.CompletedAt()
	err := s.verifications.MarkVerified(ctx, models.Verification{
		UserID:     sess.UserID,
		SessionID:  sess.ID,
		VerifiedAt: completedAt,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to mark user verified",
			"user_id", sess.UserID.String(),
			"session_id", sess.ID.String(),
			"error", err,
		)
		return
	}

	s.metrics.IncSessionsCompleted(completedAt.Sub(sess.CreatedAt))
	s.logAudit(ctx, audit.Event{
		Timestamp: completedAt,
		UserID:    sess.UserID,
		SessionID: sess.ID.String(),
		Action:    string(audit.EventLivenessVerified),
		Platform:  sess.Platform,
	})
}

func (s *Service) load(ctx context.Context, userID id.UserID, sessionID id.SessionID) (*session.Session, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "liveness session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load liveness session")
	}
	if sess.UserID != userID {
		s.logAudit(ctx, audit.Event{
			UserID:    userID,
			SessionID: sessionID.String(),
			Action:    string(audit.EventLivenessAccessDenied),
			Reason:    "session_owner_mismatch",
			ClientIP:  requestcontext.ClientIP(ctx),
		})
		return nil, dErrors.New(dErrors.CodeForbidden, "liveness session belongs to another user")
	}
	if s.config.SessionTTL > 0 && requestcontext.Now(ctx).Sub(sess.LastActivity()) > s.config.SessionTTL {
		if err := s.sessions.Delete(ctx, sessionID); err == nil {
			s.metrics.IncSessionsExpired(1)
		}
		return nil, dErrors.New(dErrors.CodeNotFound, "liveness session expired")
	}
	return sess, nil
}

func viewOf(sess *session.Session) *SessionView {
	state := sess.Snapshot()
	return &SessionView{
		ID:        sess.ID,
		UserID:    sess.UserID,
		Platform:  sess.Platform,
		CreatedAt: sess.CreatedAt,
		State:     state,
		Prompt:    models.PromptFor(state),
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}
