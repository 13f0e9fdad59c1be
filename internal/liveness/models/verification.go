package models

import (
	"time"

	id "livecheck/pkg/domain"
)

// Verification records that a user passed a liveness session.
type Verification struct {
	UserID     id.UserID
	SessionID  id.SessionID
	VerifiedAt time.Time
}
