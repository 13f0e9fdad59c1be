package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"livecheck/internal/liveness/metrics"
	"livecheck/internal/liveness/models"
	"livecheck/internal/liveness/session"
	id "livecheck/pkg/domain"
	audit "livecheck/pkg/platform/audit"
	"livecheck/pkg/requestcontext"
)

type SessionStore interface {
	Save(ctx context.Context, sess *session.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*session.Session, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
	PurgeInactive(ctx context.Context, cutoff time.Time) ([]*session.Session, error)
}

type VerificationStore interface {
	MarkVerified(ctx context.Context, v models.Verification) error
	FindByUser(ctx context.Context, userID id.UserID) (*models.Verification, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config holds the collaborator-side knobs of a liveness session. The
// geometry and gesture thresholds are fixed and not part of it.
type Config struct {
	GestureOrder     []models.GestureKind
	MinFrameInterval time.Duration
	CompletionDelay  time.Duration
	SessionTTL       time.Duration
}

func DefaultConfig() Config {
	return Config{
		GestureOrder:     models.DefaultGestureOrder,
		MinFrameInterval: session.DefaultMinFrameInterval,
		CompletionDelay:  session.DefaultCompletionDelay,
		SessionTTL:       10 * time.Minute,
	}
}

// Service hosts liveness sessions for authenticated users and records the
// verified flag when a session completes.
type Service struct {
	sessions       SessionStore
	verifications  VerificationStore
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	config         Config
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if len(cfg.GestureOrder) == 0 {
			cfg.GestureOrder = models.DefaultGestureOrder
		}
		s.config = cfg
	}
}

func New(sessions SessionStore, verifications VerificationStore, opts ...Option) (*Service, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if verifications == nil {
		return nil, errors.New("verification store is required")
	}

	svc := &Service{
		sessions:      sessions,
		verifications: verifications,
		logger:        slog.Default(),
		tracer:        otel.Tracer("livecheck/internal/liveness/service"),
		config:        DefaultConfig(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// logAudit writes a structured audit log line and emits the event. Audit
// failures never fail the calling operation.
func (s *Service) logAudit(ctx context.Context, event audit.Event, attributes ...any) {
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.RequestID != "" {
		attributes = append(attributes, "request_id", event.RequestID)
	}
	attributes = append(attributes,
		"user_id", event.UserID.String(),
		"session_id", event.SessionID,
		"event", event.Action,
		"log_type", "audit",
	)
	if s.logger != nil {
		s.logger.InfoContext(ctx, event.Action, attributes...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"event", event.Action,
			"error", err,
		)
	}
}
