package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pds-auth/internal/account/domain"
	"pds-auth/internal/db"
	"pds-auth/internal/db/migrate"
)

func openTestDB(t *testing.T) *PostgresRepository {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}
	if err := migrate.Up(dsn); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("migrate up: %v", err)
	}
	conn, err := db.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewPostgresRepository(conn)
}

func newAccount() *domain.Account {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Account{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		Role:         domain.RoleEmployee,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestPostgresRepository_CreateAndGet(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	a := newAccount()
	require.NoError(t, repo.Create(ctx, a))

	got, err := repo.GetByEmail(ctx, a.Email)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, domain.RoleEmployee, got.Role)

	byID, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, a.Email, byID.Email)

	dup := newAccount()
	dup.Email = a.Email
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicateEmail)
}

func TestPostgresRepository_NotFound(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	got, err := repo.GetByID(ctx, "not-a-uuid")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.GetByID(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.GetByEmail(ctx, "nobody-"+uuid.NewString()+"@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresRepository_SetActiveAndPassword(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	a := newAccount()
	require.NoError(t, repo.Create(ctx, a))

	updated, err := repo.SetActive(ctx, a.ID, false, time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.False(t, updated.Active)

	require.NoError(t, repo.UpdatePasswordHash(ctx, a.ID, "new-hash", time.Now().UTC()))
	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	missing, err := repo.SetActive(ctx, uuid.NewString(), true, time.Now().UTC())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
