// Package session runs one liveness attempt: it owns the evaluator and the
// sequence state, serializes frames and reports completion once.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"livecheck/internal/liveness/evaluator"
	"livecheck/internal/liveness/geometry"
	"livecheck/internal/liveness/models"
	"livecheck/internal/liveness/sequence"
	id "livecheck/pkg/domain"
	"livecheck/pkg/platform/sentinel"
	"livecheck/pkg/requestcontext"
)

const (
	// DefaultMinFrameInterval matches the detector's 125 ms minimum detection interval.
	DefaultMinFrameInterval = 125 * time.Millisecond
	DefaultCompletionDelay  = time.Second
)

// CompletionFunc is invoked once per session, CompletionDelay after the
// sequence completes. ctx is detached from the request that completed it.
type CompletionFunc func(ctx context.Context, s *Session)

// Result describes what one frame did to the session.
type Result struct {
	Verdict     models.Verdict
	Transitions []models.Transition
	Skipped     bool
	State       models.SequenceState
}

// Session is safe for concurrent use; frames are applied one at a time in
// arrival order, each against the state left by the previous frame.
type Session struct {
	ID        id.SessionID
	UserID    id.UserID
	Platform  string
	CreatedAt time.Time

	minFrameInterval time.Duration
	completionDelay  time.Duration
	onComplete       CompletionFunc
	logger           *slog.Logger

	mu           sync.Mutex
	evaluator    *evaluator.Evaluator
	state        models.SequenceState
	lastFrameAt  time.Time
	lastActivity time.Time
	completedAt  time.Time
	completeOnce sync.Once
}

type config struct {
	order            []models.GestureKind
	preview          models.Rect
	minFrameInterval time.Duration
	completionDelay  time.Duration
	onComplete       CompletionFunc
	logger           *slog.Logger
	platform         string
	now              time.Time
}

type Option func(*config)

func WithGestureOrder(order []models.GestureKind) Option {
	return func(c *config) {
		if len(order) > 0 {
			c.order = order
		}
	}
}

func WithPreview(preview models.Rect) Option {
	return func(c *config) {
		c.preview = preview
	}
}

// WithMinFrameInterval drops frames that arrive sooner than d after the last
// accepted frame. Zero disables throttling.
func WithMinFrameInterval(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.minFrameInterval = d
		}
	}
}

func WithCompletionDelay(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.completionDelay = d
		}
	}
}

func WithOnComplete(fn CompletionFunc) Option {
	return func(c *config) {
		c.onComplete = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func WithPlatform(platform string) Option {
	return func(c *config) {
		c.platform = platform
	}
}

// WithCreatedAt pins the creation time. Defaults to time.Now.
func WithCreatedAt(t time.Time) Option {
	return func(c *config) {
		c.now = t
	}
}

func New(sessionID id.SessionID, userID id.UserID, opts ...Option) *Session {
	cfg := config{
		order:            models.DefaultGestureOrder,
		preview:          geometry.PreviewRect(geometry.PreviewSide),
		minFrameInterval: DefaultMinFrameInterval,
		completionDelay:  DefaultCompletionDelay,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.now.IsZero() {
		cfg.now = time.Now()
	}

	return &Session{
		ID:               sessionID,
		UserID:           userID,
		Platform:         cfg.platform,
		CreatedAt:        cfg.now,
		minFrameInterval: cfg.minFrameInterval,
		completionDelay:  cfg.completionDelay,
		onComplete:       cfg.onComplete,
		logger:           cfg.logger,
		evaluator:        evaluator.New(cfg.preview),
		state:            models.NewSequenceState(cfg.order),
		lastActivity:     cfg.now,
	}
}

// HandleFrame evaluates frame against the current state and applies the
// resulting transitions. Frames after completion fail with
// sentinel.ErrInvalidState.
func (s *Session) HandleFrame(ctx context.Context, frame models.Frame) (Result, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Complete {
		return Result{State: s.state.Clone()}, sentinel.ErrInvalidState
	}

	s.lastActivity = now
	if s.minFrameInterval > 0 && !s.lastFrameAt.IsZero() && now.Sub(s.lastFrameAt) < s.minFrameInterval {
		return Result{Skipped: true, State: s.state.Clone()}, nil
	}
	s.lastFrameAt = now

	gesture, _ := s.state.CurrentGesture()
	verdict := s.evaluator.Evaluate(frame, s.state)
	if verdict == models.VerdictGestureSatisfied && gesture == models.GestureNod {
		s.logger.DebugContext(ctx, "nod detected",
			"session_id", s.ID.String(),
			"roll_samples", s.evaluator.History(),
		)
	}
	transitions := sequence.TransitionsFor(verdict, s.state)
	for _, t := range transitions {
		s.state = sequence.Reduce(s.state, t)
		if t == models.FaceDetectedNo {
			s.evaluator.Reset()
		}
	}

	if s.state.Complete {
		s.completedAt = now
		s.scheduleCompletion(ctx)
	}

	return Result{
		Verdict:     verdict,
		Transitions: transitions,
		State:       s.state.Clone(),
	}, nil
}

// Reset restarts the sequence from the first gesture, as if the face was lost.
func (s *Session) Reset(ctx context.Context) (models.SequenceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Complete {
		return s.state.Clone(), sentinel.ErrInvalidState
	}
	s.state = sequence.Reduce(s.state, models.FaceDetectedNo)
	s.evaluator.Reset()
	s.lastFrameAt = time.Time{}
	s.lastActivity = requestcontext.Now(ctx)
	return s.state.Clone(), nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() models.SequenceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// LastActivity is the time of the last frame or reset, or creation.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// CompletedAt is zero until the sequence completes.
func (s *Session) CompletedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedAt
}

// scheduleCompletion must be called with s.mu held.
func (s *Session) scheduleCompletion(ctx context.Context) {
	s.completeOnce.Do(func() {
		s.logger.InfoContext(ctx, "liveness sequence complete",
			"session_id", s.ID.String(),
			"user_id", s.UserID.String(),
		)
		if s.onComplete == nil {
			return
		}
		detached := context.WithoutCancel(ctx)
		time.AfterFunc(s.completionDelay, func() {
			s.onComplete(detached, s)
		})
	})
}
