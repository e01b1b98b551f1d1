// Worker periodically deletes expired refresh sessions from the configured session store.
// Reads are already expiry-filtered, so this only reclaims space.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"pds-auth/internal/config"
	"pds-auth/internal/db"
	"pds-auth/internal/logging"
	sessionrepo "pds-auth/internal/session/repository"
)

// sweepTimeout bounds one DeleteExpired pass.
const sweepTimeout = time.Minute

type expiredSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel).With("component", "session-sweeper")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store expiredSweeper
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		store = sessionrepo.NewRedisRepository(rdb, cfg.RedisKeyPrefix)
	default:
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("db", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		store = sessionrepo.NewPostgresRepository(conn)
	}

	interval := cfg.SweepEvery()
	logger.Info("worker started", "store", cfg.SessionStore, "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		sweep(ctx, logger, store)
		select {
		case <-ctx.Done():
			logger.Info("worker stopped")
			return
		case <-ticker.C:
		}
	}
}

func sweep(ctx context.Context, logger *slog.Logger, store expiredSweeper) {
	sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()
	n, err := store.DeleteExpired(sweepCtx, time.Now().UTC())
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("sweep failed", "removed", n, "error", err)
		}
		return
	}
	if n > 0 {
		logger.Info("expired sessions removed", "count", n)
	}
}
