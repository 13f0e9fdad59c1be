package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"livecheck/internal/liveness/models"
	id "livecheck/pkg/domain"
	"livecheck/pkg/platform/sentinel"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS liveness_verifications (
	user_id     UUID PRIMARY KEY,
	session_id  UUID NOT NULL,
	verified_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore persists verifications in the liveness_verifications table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the liveness_verifications table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create verification schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkVerified(ctx context.Context, v models.Verification) error {
	query := `
		INSERT INTO liveness_verifications (user_id, session_id, verified_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			verified_at = EXCLUDED.verified_at
	`
	_, err := s.db.ExecContext(ctx, query, uuid.UUID(v.UserID), uuid.UUID(v.SessionID), v.VerifiedAt)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByUser(ctx context.Context, userID id.UserID) (*models.Verification, error) {
	var (
		sessionID uuid.UUID
		v         = models.Verification{UserID: userID}
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, verified_at FROM liveness_verifications WHERE user_id = $1`,
		uuid.UUID(userID),
	).Scan(&sessionID, &v.VerifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("verification not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find verification: %w", err)
	}
	v.SessionID = id.SessionID(sessionID)
	return &v, nil
}
