package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pds-auth/internal/db"
	"pds-auth/internal/session/domain"
)

const tokenHashConstraint = "sessions_refresh_token_hash_key"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	return insertSession(ctx, r.db, s)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSession(ctx context.Context, ex execer, s *domain.Session) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO sessions (id, account_id, refresh_token_hash, expires_at, created_at) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.AccountID, s.TokenHash, s.ExpiresAt, s.CreatedAt)
	if db.IsUniqueViolation(err, tokenHashConstraint) {
		return ErrTokenCollision
	}
	return err
}

// FindByTokenHash returns the session for hash if it expires after now, or nil.
func (r *PostgresRepository) FindByTokenHash(ctx context.Context, hash string, now time.Time) (*domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, refresh_token_hash, expires_at, created_at FROM sessions
		 WHERE refresh_token_hash = $1 AND expires_at > $2`, hash, now,
	).Scan(&s.ID, &s.AccountID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// DeleteByTokenHash deletes the session for hash. Missing rows are ignored.
func (r *PostgresRepository) DeleteByTokenHash(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE refresh_token_hash = $1`, hash)
	return err
}

// DeleteAllByAccount deletes every session of the account.
func (r *PostgresRepository) DeleteAllByAccount(ctx context.Context, accountID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Rotate deletes the old row and inserts next in one transaction. DELETE ... RETURNING takes the row
// lock, so a concurrent rotation of the same hash blocks until this one commits and then sees no row.
func (r *PostgresRepository) Rotate(ctx context.Context, oldHash string, next *domain.Session, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		accountID string
		expiresAt time.Time
	)
	err = tx.QueryRowContext(ctx,
		`DELETE FROM sessions WHERE refresh_token_hash = $1 RETURNING account_id, expires_at`, oldHash,
	).Scan(&accountID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	if !expiresAt.After(now) || accountID != next.AccountID {
		// The stale row is gone either way; keep the deletion.
		if err := tx.Commit(); err != nil {
			return err
		}
		return ErrSessionNotFound
	}
	// A failed insert must not bring the old row back.
	if _, err := tx.ExecContext(ctx, `SAVEPOINT rotate_insert`); err != nil {
		return err
	}
	if insErr := insertSession(ctx, tx, next); insErr != nil {
		if _, err := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT rotate_insert`); err != nil {
			return errors.Join(fmt.Errorf("insert rotated session: %w", insErr), err)
		}
		if err := tx.Commit(); err != nil {
			return errors.Join(fmt.Errorf("insert rotated session: %w", insErr), err)
		}
		return fmt.Errorf("insert rotated session: %w", insErr)
	}
	return tx.Commit()
}

// DeleteExpired deletes sessions that expired at or before now.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
