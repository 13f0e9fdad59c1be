package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	id "livecheck/pkg/domain"
	dErrors "livecheck/pkg/domain-errors"
	"livecheck/pkg/platform/httputil"
	"livecheck/pkg/requestcontext"
)

type streamTimings struct {
	writeWait    time.Duration
	idleTimeout  time.Duration
	pingInterval time.Duration
}

var defaultStreamTimings = streamTimings{
	writeWait:    5 * time.Second,
	idleTimeout:  60 * time.Second,
	pingInterval: 30 * time.Second,
}

// handleStream upgrades to a WebSocket and feeds each inbound JSON frame into
// the session. Every frame gets exactly one reply. The server closes the
// stream once the sequence completes.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(ctx, w, err, "invalid session id")
		return
	}

	view, err := h.liveness.GetSession(ctx, userID, sessionID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to open frame stream")
		return
	}
	if view.State.Complete {
		h.writeError(ctx, w, dErrors.New(dErrors.CodeConflict, "liveness session already complete"), "failed to open frame stream")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		h.logger.WarnContext(ctx, "websocket upgrade failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	defer conn.Close()

	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()

	h.logger.InfoContext(ctx, "frame stream opened",
		"session_id", sessionID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	h.serveStream(ctx, conn, userID, sessionID)
}

func (h *Handler) serveStream(ctx context.Context, conn *websocket.Conn, userID id.UserID, sessionID id.SessionID) {
	conn.SetReadLimit(maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(h.stream.idleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.stream.idleTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(conn, done)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.WarnContext(ctx, "frame stream read failed",
					"session_id", sessionID.String(),
					"error", err,
				)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.stream.idleTimeout))

		var req FrameRequest
		if err := json.Unmarshal(message, &req); err != nil {
			if !h.writeStreamError(conn, dErrors.New(dErrors.CodeBadRequest, "invalid JSON frame")) {
				return
			}
			continue
		}

		// Each frame carries its own arrival time so throttling sees real gaps.
		frameCtx := requestcontext.WithTime(ctx, time.Now())
		result, err := h.liveness.SubmitFrame(frameCtx, userID, sessionID, req.ToFrame())
		if err != nil {
			h.logger.WarnContext(ctx, "frame stream submit failed",
				"session_id", sessionID.String(),
				"error", err,
			)
			h.writeStreamError(conn, err)
			h.closeStream(conn, closeCodeFor(err), string(dErrors.CodeOf(err)))
			return
		}

		if err := h.writeStreamJSON(conn, toFrameResponse(result)); err != nil {
			return
		}
		if result.State.Complete {
			h.closeStream(conn, websocket.CloseNormalClosure, "verification complete")
			return
		}
	}
}

func (h *Handler) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.stream.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.stream.writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) writeStreamJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(h.stream.writeWait))
	return conn.WriteJSON(v)
}

// writeStreamError reports whether the connection is still writable.
func (h *Handler) writeStreamError(conn *websocket.Conn, err error) bool {
	_, body := httputil.NewErrorBody(err)
	return h.writeStreamJSON(conn, body) == nil
}

func (h *Handler) closeStream(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(h.stream.writeWait))
}

func closeCodeFor(err error) int {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal:
		return websocket.CloseInternalServerErr
	case dErrors.CodeConflict:
		return websocket.CloseNormalClosure
	default:
		return websocket.ClosePolicyViolation
	}
}
