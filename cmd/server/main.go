package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	jwttoken "livecheck/internal/jwt_token"
	"livecheck/internal/liveness/handler"
	livenessmetrics "livecheck/internal/liveness/metrics"
	"livecheck/internal/liveness/models"
	"livecheck/internal/liveness/service"
	sessionstore "livecheck/internal/liveness/store/session"
	verificationstore "livecheck/internal/liveness/store/verification"
	"livecheck/internal/platform/config"
	"livecheck/internal/platform/httpserver"
	"livecheck/internal/platform/logger"
	"livecheck/internal/platform/metrics"
	"livecheck/internal/platform/middleware"
	platformredis "livecheck/internal/platform/redis"
	audit "livecheck/pkg/platform/audit"
	auditpublisher "livecheck/pkg/platform/audit/publisher"
	"livecheck/pkg/platform/audit/publishers/kafka"
	auditmemory "livecheck/pkg/platform/audit/store/memory"
	auditpostgres "livecheck/pkg/platform/audit/store/postgres"
	auditworker "livecheck/pkg/platform/audit/worker"
	"livecheck/pkg/platform/circuit"
	"livecheck/pkg/platform/httputil"
)

const (
	auditBufferSize = 1024
	outboxSize      = 1024
)

func main() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run wires dependencies and blocks until SIGINT/SIGTERM. Business logic
// lives in internal/liveness.
func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	order := models.DefaultGestureOrder
	if len(cfg.Liveness.Gestures) > 0 {
		if order, err = models.ParseGestureOrder(cfg.Liveness.Gestures); err != nil {
			return fmt.Errorf("LIVENESS_GESTURES: %w", err)
		}
	}

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		if db, err = openDB(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
		defer db.Close()
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	verifications, err := newVerificationStore(ctx, cfg, db, redisClient, log)
	if err != nil {
		return err
	}

	auditStore, err := newAuditStore(ctx, db)
	if err != nil {
		return err
	}

	publisherOpts := []auditpublisher.Option{
		auditpublisher.WithAsyncBuffer(auditBufferSize),
		auditpublisher.WithLogger(log),
	}
	var (
		outbox     chan audit.Event
		workerDone = make(chan error, 1)
	)
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := kafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer sink.Close()
		if err := sink.EnsureTopic(ctx, int32(cfg.Kafka.Partitions), int16(cfg.Kafka.ReplicationFactor)); err != nil {
			return err
		}
		outbox = make(chan audit.Event, outboxSize)
		publisherOpts = append(publisherOpts, auditpublisher.WithOutbox(outbox))
		// The worker outlives the signal context so buffered events drain on shutdown.
		go func() {
			workerDone <- auditworker.NewWorker(sink, outbox, log).Run(context.WithoutCancel(ctx))
		}()
		log.Info("forwarding audit events to kafka", "topic", cfg.Kafka.Topic)
	} else {
		workerDone <- nil
	}
	publisher := auditpublisher.NewPublisher(auditStore, publisherOpts...)

	livenessService, err := service.New(sessionstore.New(), verifications,
		service.WithLogger(log),
		service.WithAuditPublisher(publisher),
		service.WithMetrics(livenessmetrics.New()),
		service.WithConfig(service.Config{
			GestureOrder:     order,
			MinFrameInterval: cfg.Liveness.MinFrameInterval,
			CompletionDelay:  cfg.Liveness.CompletionDelay,
			SessionTTL:       cfg.Liveness.SessionTTL,
		}),
	)
	if err != nil {
		return err
	}

	httpMetrics := metrics.New()
	jwtService := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Latency(httpMetrics))
	router.Get("/healthz", healthz(db, redisClient, log))
	router.Handle("/metrics", promhttp.Handler())
	handler.New(livenessService, jwttoken.NewJWTServiceAdapter(jwtService), log,
		handler.WithMetrics(httpMetrics),
	).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting livecheck", "addr", cfg.Addr, "gestures", order)
		return httpserver.Run(gctx, srv, cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		return ignoreCanceled(livenessService.RunJanitor(gctx, cfg.Liveness.JanitorInterval))
	})
	err = g.Wait()

	publisher.Close()
	if outbox != nil {
		close(outbox)
	}
	if werr := <-workerDone; werr != nil {
		log.Error("audit worker stopped", "error", werr)
	}
	log.Info("livecheck stopped")
	return err
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// newVerificationStore builds the configured backend. Durable backends are
// wrapped so an outage degrades to the in-memory mirror.
func newVerificationStore(ctx context.Context, cfg config.Server, db *sql.DB, redisClient *platformredis.Client, log *slog.Logger) (service.VerificationStore, error) {
	var primary verificationstore.Store
	switch cfg.Liveness.VerificationStore {
	case config.StoreRedis:
		primary = verificationstore.NewRedis(redisClient.Client, verificationstore.WithTTL(cfg.Liveness.VerificationTTL))
	case config.StorePostgres:
		store := verificationstore.NewPostgres(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("verification schema: %w", err)
		}
		primary = store
	default:
		return verificationstore.NewInMemory(), nil
	}
	breaker := circuit.New("verification-store-" + cfg.Liveness.VerificationStore)
	return verificationstore.NewFallback(primary, breaker, log), nil
}

func newAuditStore(ctx context.Context, db *sql.DB) (audit.Store, error) {
	if db == nil {
		return auditmemory.NewInMemoryStore(), nil
	}
	store := auditpostgres.New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("audit schema: %w", err)
	}
	return store, nil
}

func healthz(db *sql.DB, redisClient *platformredis.Client, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				status["postgres"] = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				status["redis"] = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		if code != http.StatusOK {
			status["status"] = "degraded"
			log.WarnContext(ctx, "health check failed", "details", status)
		}
		httputil.WriteJSON(w, code, status)
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
