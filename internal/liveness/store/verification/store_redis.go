package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"livecheck/internal/liveness/models"
	id "livecheck/pkg/domain"
	"livecheck/pkg/platform/sentinel"
)

const verifiedKeyPrefix = "liveness:verified:"

type redisRecord struct {
	SessionID  string    `json:"session_id"`
	VerifiedAt time.Time `json:"verified_at"`
}

// RedisStore keeps one JSON record per user under liveness:verified:<user_id>.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

// WithTTL expires verifications after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) MarkVerified(ctx context.Context, v models.Verification) error {
	payload, err := json.Marshal(redisRecord{
		SessionID:  v.SessionID.String(),
		VerifiedAt: v.VerifiedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	if err := s.client.Set(ctx, verifiedKeyPrefix+v.UserID.String(), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store verification: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByUser(ctx context.Context, userID id.UserID) (*models.Verification, error) {
	raw, err := s.client.Get(ctx, verifiedKeyPrefix+userID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("verification not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load verification: %w", err)
	}

	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode verification: %w", err)
	}
	sessionID, err := id.ParseSessionID(rec.SessionID)
	if err != nil {
		return nil, fmt.Errorf("decode verification session id: %w", err)
	}
	return &models.Verification{
		UserID:     userID,
		SessionID:  sessionID,
		VerifiedAt: rec.VerifiedAt,
	}, nil
}
