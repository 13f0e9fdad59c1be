package audit

import (
	"context"
	"time"

	id "livecheck/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance, such as a
	// user becoming verified.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to fraud monitoring.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	SessionID string
	Action    string
	Reason    string
	RequestID string
	ClientIP  string
	Platform  string
}

type AuditEvent string

const (
	EventLivenessSessionStarted AuditEvent = "liveness_session_started"
	EventLivenessSessionReset   AuditEvent = "liveness_session_reset"
	EventLivenessSessionExpired AuditEvent = "liveness_session_expired"
	EventLivenessFaceTooClose   AuditEvent = "liveness_face_too_close"
	EventLivenessAccessDenied   AuditEvent = "liveness_access_denied"
	EventLivenessVerified       AuditEvent = "liveness_verified"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventLivenessVerified: CategoryCompliance,

	EventLivenessAccessDenied: CategorySecurity,
	EventLivenessFaceTooClose: CategorySecurity,

	EventLivenessSessionStarted: CategoryOperations,
	EventLivenessSessionReset:   CategoryOperations,
	EventLivenessSessionExpired: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Appender persists or forwards a single event.
type Appender interface {
	Append(ctx context.Context, event Event) error
}

// Store is an Appender that can also be queried per user.
type Store interface {
	Appender
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
