package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	accountrepo "pds-auth/internal/account/repository"
	"pds-auth/internal/audit"
	auditrepo "pds-auth/internal/audit/repository"
	"pds-auth/internal/config"
	"pds-auth/internal/db"
	"pds-auth/internal/db/migrate"
	healthhandler "pds-auth/internal/health/handler"
	identityhandler "pds-auth/internal/identity/handler"
	identity "pds-auth/internal/identity/service"
	"pds-auth/internal/logging"
	"pds-auth/internal/metrics"
	"pds-auth/internal/policy/engine"
	profilerepo "pds-auth/internal/profile/repository"
	"pds-auth/internal/security"
	"pds-auth/internal/server"
	"pds-auth/internal/server/middleware"
	sessionrepo "pds-auth/internal/session/repository"
	"pds-auth/internal/telemetry"
	telemetryotel "pds-auth/internal/telemetry/otel"
	"pds-auth/internal/telemetry/producer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := migrate.Up(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied")
	}

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer conn.Close()

	accessSecret, refreshSecret, err := signingSecrets(cfg, logger)
	if err != nil {
		return err
	}
	tokens, err := security.NewTokenIssuer(accessSecret, refreshSecret, cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	sessions, sessionsPing, closeSessions := openSessionStore(cfg, conn)
	defer closeSessions()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()

	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		logger.Info("publishing auth events to kafka", "topic", cfg.TelemetryKafkaTopic)
	}

	guard, err := engine.NewRoleGuard(ctx)
	if err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	audits := auditrepo.NewPostgresRepository(conn)
	m := metrics.New()
	svc := identity.NewAuthService(
		accountrepo.NewPostgresRepository(conn),
		profilerepo.NewPostgresRepository(conn),
		sessions,
		security.NewHasher(cfg.BcryptCost),
		tokens,
	)
	authHandler := identityhandler.NewAuthHandler(svc,
		identityhandler.CookieConfig{Secure: cfg.IsProduction(), MaxAge: cfg.RefreshTTL()},
		identityhandler.Deps{
			Audit:   audit.NewLogger(audits, middleware.ClientIP),
			Events:  telemetry.Multi(emitters...),
			Metrics: m,
			Reader:  audits,
		},
	)

	pingers := map[string]healthhandler.Pinger{"postgres": conn}
	if sessionsPing != nil {
		pingers["redis"] = sessionsPing
	}
	e := server.New(&server.Deps{
		Logger:    logger,
		Auth:      authHandler,
		Health:    healthhandler.NewServer(pingers, guard),
		Resolver:  svc,
		Guard:     guard,
		Metrics:   m,
		TraceName: cfg.ServiceName + "/http",
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "session_store", cfg.SessionStore)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http: %w", err)
		}
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}

	// let in-flight async emits finish before closing their sinks
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := kafkaProducer.Close(); err != nil {
		logger.Error("kafka close", "error", err)
	}
	otelCtx, otelCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer otelCancel()
	_ = providers.Shutdown(otelCtx)
	logger.Info("server stopped")
	return nil
}

// openSessionStore returns the configured session store, its readiness check (nil when it shares
// the Postgres pool) and a close function.
func openSessionStore(cfg *config.Config, conn *sql.DB) (identity.SessionRepo, healthhandler.Pinger, func()) {
	if cfg.SessionStore == config.SessionStoreRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := sessionrepo.NewRedisRepository(rdb, cfg.RedisKeyPrefix)
		return store, healthhandler.PingFunc(store.Ping), func() { _ = rdb.Close() }
	}
	return sessionrepo.NewPostgresRepository(conn), nil, func() {}
}

// signingSecrets resolves both JWT secrets. Outside production a missing secret is replaced by a
// random one, so tokens do not survive a restart.
func signingSecrets(cfg *config.Config, logger *slog.Logger) ([]byte, []byte, error) {
	access, err := secretOrRandom(cfg.JWTAccessSecret, cfg.IsProduction())
	if err != nil {
		return nil, nil, fmt.Errorf("JWT_ACCESS_SECRET: %w", err)
	}
	refresh, err := secretOrRandom(cfg.JWTRefreshSecret, cfg.IsProduction())
	if err != nil {
		return nil, nil, fmt.Errorf("JWT_REFRESH_SECRET: %w", err)
	}
	if cfg.JWTAccessSecret == "" || cfg.JWTRefreshSecret == "" {
		logger.Warn("using random JWT signing secrets; set JWT_ACCESS_SECRET and JWT_REFRESH_SECRET")
	}
	return access, refresh, nil
}

func secretOrRandom(s string, production bool) ([]byte, error) {
	b, err := security.LoadSecret(s)
	if err == nil || !errors.Is(err, security.ErrEmptySecret) || production {
		return b, err
	}
	b = make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
