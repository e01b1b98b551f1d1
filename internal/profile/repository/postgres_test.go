package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountdomain "pds-auth/internal/account/domain"
	accountrepo "pds-auth/internal/account/repository"
	"pds-auth/internal/db"
	"pds-auth/internal/db/migrate"
	"pds-auth/internal/profile/domain"
)

func TestPostgresRepository_Upsert(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}
	require.NoError(t, migrate.Up(dsn))
	conn, err := db.Open(context.Background(), dsn)
	require.NoError(t, err)
	defer conn.Close()
	ctx := context.Background()

	now := time.Now().UTC()
	acc := &accountdomain.Account{
		ID: uuid.NewString(), Email: uuid.NewString() + "@example.com", PasswordHash: "h",
		Role: accountdomain.RoleTeacher, Active: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, accountrepo.NewPostgresRepository(conn).Create(ctx, acc))

	repo := NewPostgresRepository(conn)
	missing, err := repo.GetByAccountID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Upsert(ctx, &domain.Profile{AccountID: acc.ID, FirstName: "Ada", UpdatedAt: now}))
	got, err := repo.GetByAccountID(ctx, acc.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada", got.FirstName)
	assert.Empty(t, got.LastName)

	require.NoError(t, repo.Upsert(ctx, &domain.Profile{AccountID: acc.ID, FirstName: "Ada", LastName: "Lovelace", UpdatedAt: now}))
	got, err = repo.GetByAccountID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", got.LastName)
}
