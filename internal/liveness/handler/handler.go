package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"livecheck/internal/liveness/models"
	"livecheck/internal/liveness/service"
	"livecheck/internal/platform/metrics"
	"livecheck/internal/platform/middleware"
	id "livecheck/pkg/domain"
	dErrors "livecheck/pkg/domain-errors"
	"livecheck/pkg/platform/httputil"
	"livecheck/pkg/requestcontext"
)

const (
	maxBodyBytes          = 64 << 10
	defaultRequestTimeout = 30 * time.Second
)

// Service defines the liveness operations exposed over HTTP.
type Service interface {
	StartSession(ctx context.Context, userID id.UserID, viewportWidth float64) (*service.SessionView, error)
	GetSession(ctx context.Context, userID id.UserID, sessionID id.SessionID) (*service.SessionView, error)
	SubmitFrame(ctx context.Context, userID id.UserID, sessionID id.SessionID, frame models.Frame) (*service.FrameResult, error)
	ResetSession(ctx context.Context, userID id.UserID, sessionID id.SessionID) (*service.SessionView, error)
	VerificationStatus(ctx context.Context, userID id.UserID) (*service.VerificationStatus, error)
}

// Handler serves the liveness REST and WebSocket endpoints.
type Handler struct {
	liveness       Service
	jwtValidator   middleware.JWTValidator
	logger         *slog.Logger
	metrics        *metrics.Metrics
	upgrader       websocket.Upgrader
	requestTimeout time.Duration
	stream         streamTimings
}

type Option func(*Handler)

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.requestTimeout = d
		}
	}
}

// WithCheckOrigin restricts which origins may open frame streams. The default
// accepts any origin; streams are authenticated by bearer token.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Handler) {
		h.upgrader.CheckOrigin = fn
	}
}

func New(liveness Service, jwtValidator middleware.JWTValidator, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		liveness:       liveness,
		jwtValidator:   jwtValidator,
		logger:         logger,
		requestTimeout: defaultRequestTimeout,
		stream:         defaultStreamTimings,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the liveness routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.ClientMetadata)
		r.Use(middleware.RequestTime)
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		r.Get("/liveness/sessions/{sessionID}/stream", h.handleStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(h.requestTimeout))
			r.Post("/liveness/sessions", h.handleStartSession)
			r.Get("/liveness/sessions/{sessionID}", h.handleGetSession)
			r.Post("/liveness/sessions/{sessionID}/frames", h.handleSubmitFrame)
			r.Post("/liveness/sessions/{sessionID}/reset", h.handleResetSession)
			r.Get("/me/verification", h.handleVerificationStatus)
		})
	})
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req StartSessionRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, err, "invalid start session request")
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(ctx, w, err, "invalid start session request")
		return
	}

	view, err := h.liveness.StartSession(ctx, requestcontext.UserID(ctx), req.ViewportWidth)
	if err != nil {
		h.writeError(ctx, w, err, "failed to start liveness session")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toSessionResponse(view))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(ctx, w, err, "invalid session id")
		return
	}

	view, err := h.liveness.GetSession(ctx, requestcontext.UserID(ctx), sessionID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load liveness session")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(view))
}

func (h *Handler) handleSubmitFrame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(ctx, w, err, "invalid session id")
		return
	}
	var req FrameRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, err, "invalid frame request")
		return
	}

	result, err := h.liveness.SubmitFrame(ctx, requestcontext.UserID(ctx), sessionID, req.ToFrame())
	if err != nil {
		h.writeError(ctx, w, err, "failed to submit frame")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFrameResponse(result))
}

func (h *Handler) handleResetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(ctx, w, err, "invalid session id")
		return
	}

	view, err := h.liveness.ResetSession(ctx, requestcontext.UserID(ctx), sessionID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to reset liveness session")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(view))
}

func (h *Handler) handleVerificationStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := h.liveness.VerificationStatus(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(ctx, w, err, "failed to load verification status")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toVerificationResponse(status))
}

// writeError logs client errors at warn and everything else at error.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	attrs := []any{
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
