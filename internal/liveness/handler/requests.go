package handler

import (
	"time"

	"livecheck/internal/liveness/models"
	"livecheck/internal/liveness/service"
	dErrors "livecheck/pkg/domain-errors"
)

type StartSessionRequest struct {
	ViewportWidth float64 `json:"viewport_width"`
}

func (r *StartSessionRequest) Validate() error {
	if r.ViewportWidth <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "viewport_width is required")
	}
	return nil
}

// FrameRequest carries detector output verbatim. Any face count and any
// bounds are a legal frame; the evaluator classifies them. Payload size is
// bounded by maxBodyBytes.
type FrameRequest struct {
	Faces []models.FaceMeasurement `json:"faces"`
}

func (r *FrameRequest) ToFrame() models.Frame {
	return models.Frame{Faces: r.Faces}
}

type SessionResponse struct {
	SessionID string               `json:"session_id"`
	Platform  string               `json:"platform,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	State     models.SequenceState `json:"state"`
	Prompt    models.Prompt        `json:"prompt"`
}

type FrameResponse struct {
	Verdict models.Verdict       `json:"verdict,omitempty"`
	Skipped bool                 `json:"skipped"`
	State   models.SequenceState `json:"state"`
	Prompt  models.Prompt        `json:"prompt"`
}

type VerificationResponse struct {
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	SessionID  string     `json:"session_id,omitempty"`
}

func toSessionResponse(v *service.SessionView) SessionResponse {
	return SessionResponse{
		SessionID: v.ID.String(),
		Platform:  v.Platform,
		CreatedAt: v.CreatedAt,
		State:     v.State,
		Prompt:    v.Prompt,
	}
}

func toFrameResponse(r *service.FrameResult) FrameResponse {
	return FrameResponse{
		Verdict: r.Verdict,
		Skipped: r.Skipped,
		State:   r.State,
		Prompt:  r.Prompt,
	}
}

func toVerificationResponse(s *service.VerificationStatus) VerificationResponse {
	if !s.Verified {
		return VerificationResponse{}
	}
	verifiedAt := s.VerifiedAt
	return VerificationResponse{
		Verified:   true,
		VerifiedAt: &verifiedAt,
		SessionID:  s.SessionID.String(),
	}
}
