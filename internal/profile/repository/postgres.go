package repository

import (
	"context"
	"database/sql"
	"errors"

	"pds-auth/internal/profile/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a profile repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByAccountID returns the profile for accountID, or nil if not found.
func (r *PostgresRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.Profile, error) {
	var (
		p           domain.Profile
		first, last sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT account_id, first_name, last_name, updated_at FROM profiles WHERE account_id = $1`, accountID,
	).Scan(&p.AccountID, &first, &last, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.FirstName = first.String
	p.LastName = last.String
	return &p, nil
}

// Upsert creates or replaces the profile row. Empty names are stored as NULL.
func (r *PostgresRepository) Upsert(ctx context.Context, p *domain.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (account_id, first_name, last_name, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE
		SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, updated_at = EXCLUDED.updated_at`,
		p.AccountID, nullString(p.FirstName), nullString(p.LastName), p.UpdatedAt)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
