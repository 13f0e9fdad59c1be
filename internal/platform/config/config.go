package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "livecheck/pkg/platform/strings"
)

// Verification store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Server captures process level configuration.
type Server struct {
	Addr            string
	LogLevel        string
	ShutdownTimeout time.Duration
	JWT             JWTConfig
	Redis           RedisConfig
	DatabaseURL     string
	Kafka           KafkaConfig
	Liveness        LivenessConfig
}

type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// RedisConfig is empty-URL when Redis is not configured.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the audit event sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Partitions        int
	ReplicationFactor int
}

type LivenessConfig struct {
	// Gestures is the raw gesture order; empty means the default order.
	Gestures          []string
	MinFrameInterval  time.Duration
	CompletionDelay   time.Duration
	SessionTTL        time.Duration
	JanitorInterval   time.Duration
	VerificationStore string
	VerificationTTL   time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:     envString("LIVECHECK_ADDR", ":8080"),
		LogLevel: envString("LOG_LEVEL", "info"),
		JWT: JWTConfig{
			// Use a default for development - should be overridden in production
			SigningKey: envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     envString("JWT_ISSUER", "livecheck"),
			Audience:   envString("JWT_AUDIENCE", "livecheck"),
		},
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Kafka: KafkaConfig{
			Brokers: envList("KAFKA_BROKERS"),
			Topic:   envString("KAFKA_AUDIT_TOPIC", "livecheck.audit"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Liveness: LivenessConfig{
			Gestures:          envList("LIVENESS_GESTURES"),
			VerificationStore: strings.ToLower(envString("LIVENESS_VERIFICATION_STORE", StoreMemory)),
		},
	}

	var err error
	durations := []struct {
		dst *time.Duration
		key string
		def time.Duration
	}{
		{&cfg.ShutdownTimeout, "SHUTDOWN_TIMEOUT", 15 * time.Second},
		{&cfg.Redis.DialTimeout, "REDIS_DIAL_TIMEOUT", 5 * time.Second},
		{&cfg.Redis.ReadTimeout, "REDIS_READ_TIMEOUT", 3 * time.Second},
		{&cfg.Redis.WriteTimeout, "REDIS_WRITE_TIMEOUT", 3 * time.Second},
		{&cfg.Liveness.MinFrameInterval, "LIVENESS_MIN_FRAME_INTERVAL", 125 * time.Millisecond},
		{&cfg.Liveness.CompletionDelay, "LIVENESS_COMPLETION_DELAY", time.Second},
		{&cfg.Liveness.SessionTTL, "LIVENESS_SESSION_TTL", 10 * time.Minute},
		{&cfg.Liveness.JanitorInterval, "LIVENESS_JANITOR_INTERVAL", time.Minute},
		{&cfg.Liveness.VerificationTTL, "LIVENESS_VERIFICATION_TTL", 0},
	}
	for _, d := range durations {
		if *d.dst, err = envDuration(d.key, d.def); err != nil {
			return Server{}, err
		}
	}

	ints := []struct {
		dst *int
		key string
		def int
	}{
		{&cfg.Redis.PoolSize, "REDIS_POOL_SIZE", 10},
		{&cfg.Redis.MinIdleConns, "REDIS_MIN_IDLE_CONNS", 2},
		{&cfg.Kafka.Partitions, "KAFKA_AUDIT_PARTITIONS", 3},
		{&cfg.Kafka.ReplicationFactor, "KAFKA_AUDIT_REPLICATION_FACTOR", 1},
	}
	for _, i := range ints {
		if *i.dst, err = envInt(i.key, i.def); err != nil {
			return Server{}, err
		}
	}

	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c Server) validate() error {
	switch c.Liveness.VerificationStore {
	case StoreMemory:
	case StoreRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("LIVENESS_VERIFICATION_STORE=redis requires REDIS_URL")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("LIVENESS_VERIFICATION_STORE=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown LIVENESS_VERIFICATION_STORE %q", c.Liveness.VerificationStore)
	}
	if c.Liveness.SessionTTL <= 0 {
		return fmt.Errorf("LIVENESS_SESSION_TTL must be positive")
	}
	if c.Liveness.JanitorInterval <= 0 {
		return fmt.Errorf("LIVENESS_JANITOR_INTERVAL must be positive")
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// envList splits a comma separated variable, dropping empty items.
func envList(key string) []string {
	return pstrings.SplitList(os.Getenv(key))
}
