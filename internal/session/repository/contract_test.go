package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pds-auth/internal/session/domain"
)

// storeFactory builds a fresh store plus an account id that the store accepts as an owner.
type storeFactory func(t *testing.T) (Repository, func() string)

func memoryFactory(t *testing.T) (Repository, func() string) {
	return NewMemoryRepository(), uuid.NewString
}

func redisFactory(t *testing.T) (Repository, func() string) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisRepository(rdb, "test"), uuid.NewString
}

func newSession(accountID string, now time.Time) *domain.Session {
	return &domain.Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		TokenHash: uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func runStoreContract(t *testing.T, factory storeFactory) {
	ctx := context.Background()
	// Millisecond precision keeps Redis round-trips exact.
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("create and find", func(t *testing.T) {
		repo, newAccount := factory(t)
		s := newSession(newAccount(), now)
		require.NoError(t, repo.Create(ctx, s))

		got, err := repo.FindByTokenHash(ctx, s.TokenHash, now)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, s.ID, got.ID)
		assert.Equal(t, s.AccountID, got.AccountID)
		assert.True(t, got.ExpiresAt.Equal(s.ExpiresAt))

		assert.ErrorIs(t, repo.Create(ctx, s), ErrTokenCollision)
	})

	t.Run("expired rows are absent", func(t *testing.T) {
		repo, newAccount := factory(t)
		s := newSession(newAccount(), now)
		require.NoError(t, repo.Create(ctx, s))

		got, err := repo.FindByTokenHash(ctx, s.TokenHash, s.ExpiresAt)
		require.NoError(t, err)
		assert.Nil(t, got)

		err = repo.Rotate(ctx, s.TokenHash, newSession(s.AccountID, now), s.ExpiresAt.Add(time.Second))
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		repo, newAccount := factory(t)
		s := newSession(newAccount(), now)
		require.NoError(t, repo.Create(ctx, s))
		require.NoError(t, repo.DeleteByTokenHash(ctx, s.TokenHash))
		require.NoError(t, repo.DeleteByTokenHash(ctx, s.TokenHash))
		require.NoError(t, repo.DeleteByTokenHash(ctx, "never-existed"))

		got, err := repo.FindByTokenHash(ctx, s.TokenHash, now)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete all by account", func(t *testing.T) {
		repo, newAccount := factory(t)
		owner, other := newAccount(), newAccount()
		a, b, c := newSession(owner, now), newSession(owner, now), newSession(other, now)
		for _, s := range []*domain.Session{a, b, c} {
			require.NoError(t, repo.Create(ctx, s))
		}

		n, err := repo.DeleteAllByAccount(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		for _, s := range []*domain.Session{a, b} {
			got, err := repo.FindByTokenHash(ctx, s.TokenHash, now)
			require.NoError(t, err)
			assert.Nil(t, got)
		}
		got, err := repo.FindByTokenHash(ctx, c.TokenHash, now)
		require.NoError(t, err)
		assert.NotNil(t, got)

		n, err = repo.DeleteAllByAccount(ctx, owner)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("rotate replaces", func(t *testing.T) {
		repo, newAccount := factory(t)
		old := newSession(newAccount(), now)
		require.NoError(t, repo.Create(ctx, old))
		next := newSession(old.AccountID, now)

		require.NoError(t, repo.Rotate(ctx, old.TokenHash, next, now))

		got, err := repo.FindByTokenHash(ctx, old.TokenHash, now)
		require.NoError(t, err)
		assert.Nil(t, got)
		got, err = repo.FindByTokenHash(ctx, next.TokenHash, now)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, next.ID, got.ID)

		assert.ErrorIs(t, repo.Rotate(ctx, old.TokenHash, newSession(old.AccountID, now), now), ErrSessionNotFound)

		// Rotated session is still revocable through the account.
		n, err := repo.DeleteAllByAccount(ctx, old.AccountID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("rotate collision consumes old", func(t *testing.T) {
		repo, newAccount := factory(t)
		owner := newAccount()
		old, existing := newSession(owner, now), newSession(owner, now)
		require.NoError(t, repo.Create(ctx, old))
		require.NoError(t, repo.Create(ctx, existing))

		next := newSession(owner, now)
		next.TokenHash = existing.TokenHash
		assert.ErrorIs(t, repo.Rotate(ctx, old.TokenHash, next, now), ErrTokenCollision)

		got, err := repo.FindByTokenHash(ctx, old.TokenHash, now)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("concurrent rotate has one winner", func(t *testing.T) {
		repo, newAccount := factory(t)
		old := newSession(newAccount(), now)
		require.NoError(t, repo.Create(ctx, old))

		const n = 8
		var (
			wg       sync.WaitGroup
			wins     atomic.Int32
			notFound atomic.Int32
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := repo.Rotate(ctx, old.TokenHash, newSession(old.AccountID, now), now)
				switch err {
				case nil:
					wins.Add(1)
				case ErrSessionNotFound:
					notFound.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
		assert.Equal(t, int32(n-1), notFound.Load())
	})

	t.Run("delete expired", func(t *testing.T) {
		repo, newAccount := factory(t)
		owner := newAccount()
		live, stale := newSession(owner, now), newSession(owner, now)
		stale.ExpiresAt = now.Add(time.Minute)
		require.NoError(t, repo.Create(ctx, live))
		require.NoError(t, repo.Create(ctx, stale))

		// Shared databases may hold other expired rows, so only a lower bound is exact.
		n, err := repo.DeleteExpired(ctx, now.Add(2*time.Minute))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))

		got, err := repo.FindByTokenHash(ctx, live.TokenHash, now)
		require.NoError(t, err)
		assert.NotNil(t, got)
		got, err = repo.FindByTokenHash(ctx, stale.TokenHash, now)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestMemoryRepository(t *testing.T) {
	runStoreContract(t, memoryFactory)
}

func TestRedisRepository(t *testing.T) {
	runStoreContract(t, redisFactory)
}

func TestRedisRepository_KeysExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	repo := NewRedisRepository(rdb, "")
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	s := newSession(uuid.NewString(), now)
	require.NoError(t, repo.Create(ctx, s))
	assert.True(t, mr.Exists("pds:session:"+s.TokenHash))
	assert.True(t, mr.Exists("pds:account:"+s.AccountID+":sessions"))

	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists("pds:session:"+s.TokenHash))

	got, err := repo.FindByTokenHash(ctx, s.TokenHash, now)
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, repo.Ping(ctx))
}

func TestRedisRepository_IndexFollowsSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	repo := NewRedisRepository(rdb, "")
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	owner := uuid.NewString()
	indexKey := "pds:account:" + owner + ":sessions"
	old, kept := newSession(owner, now), newSession(owner, now)
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, kept))

	next := newSession(owner, now)
	require.NoError(t, repo.Rotate(ctx, old.TokenHash, next, now))
	members, err := rdb.SMembers(ctx, indexKey).Result()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{kept.TokenHash, next.TokenHash}, members)

	require.NoError(t, repo.DeleteByTokenHash(ctx, next.TokenHash))
	require.NoError(t, repo.DeleteByTokenHash(ctx, next.TokenHash))
	members, err = rdb.SMembers(ctx, indexKey).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{kept.TokenHash}, members)
	assert.False(t, mr.Exists("pds:session:"+next.TokenHash))
}
