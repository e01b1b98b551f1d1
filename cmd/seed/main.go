// seed creates the initial administrator account. Run after migrations.
// Idempotent: does nothing if SEED_ADMIN_EMAIL already exists.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	accountdomain "pds-auth/internal/account/domain"
	accountrepo "pds-auth/internal/account/repository"
	"pds-auth/internal/config"
	"pds-auth/internal/db"
	"pds-auth/internal/logging"
	profiledomain "pds-auth/internal/profile/domain"
	profilerepo "pds-auth/internal/profile/repository"
	"pds-auth/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel).With("component", "seed")
	slog.SetDefault(logger)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is not set; create a .env or set DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		cancel()
		logger.Error("db", "error", err)
		os.Exit(1)
	}
	err = seedAdmin(ctx, logger, accountrepo.NewPostgresRepository(conn), profilerepo.NewPostgresRepository(conn),
		security.NewHasher(cfg.BcryptCost), cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	_ = conn.Close()
	cancel()
	if err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

// seedAdmin creates an active administrator for email unless one already exists.
func seedAdmin(ctx context.Context, logger *slog.Logger, accounts accountrepo.Repository, profiles profilerepo.Repository,
	hasher *security.Hasher, email, password string) error {
	if len(password) < 8 {
		return errors.New("SEED_ADMIN_PASSWORD must be set (at least 8 characters)")
	}
	existing, err := accounts.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup admin: %w", err)
	}
	if existing != nil {
		logger.Info("administrator already exists, skipping", "email", email)
		return nil
	}

	hash, err := hasher.Hash([]byte(password))
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	admin := &accountdomain.Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         accountdomain.RoleAdministrator,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := admin.Validate(); err != nil {
		return fmt.Errorf("admin account: %w", err)
	}
	if err := accounts.Create(ctx, admin); err != nil {
		if errors.Is(err, accountrepo.ErrDuplicateEmail) {
			logger.Info("administrator already exists, skipping", "email", email)
			return nil
		}
		return fmt.Errorf("create admin: %w", err)
	}
	if err := profiles.Upsert(ctx, &profiledomain.Profile{
		AccountID: admin.ID,
		FirstName: "System",
		LastName:  "Administrator",
		UpdatedAt: now,
	}); err != nil {
		logger.Warn("administrator profile not created", "email", admin.Email, "error", err)
	}
	logger.Info("created administrator", "email", admin.Email, "account_id", admin.ID)
	return nil
}
