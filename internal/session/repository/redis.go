package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"pds-auth/internal/session/domain"
)

// Layout:
//
//	<prefix>:session:<hash>           hash {id, account_id, expires_at, created_at}, PEXPIREAT expires_at
//	<prefix>:account:<id>:sessions    set of token hashes owned by the account
//
// Timestamps are unix milliseconds.

const createSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "id", ARGV[1], "account_id", ARGV[2], "expires_at", ARGV[3], "created_at", ARGV[4])
redis.call("PEXPIREAT", KEYS[1], ARGV[3])
redis.call("SADD", KEYS[2], ARGV[5])
return 1
`

var createSessionLua = redis.NewScript(createSessionScript)

// KEYS: old session, new session, account index. ARGV: old hash, new hash, id, account_id,
// expires_at, created_at, now.
// Returns 1 on success, 0 when the old session is absent, expired or owned by another account,
// -1 when the new hash already exists (old session is still consumed). A foreign owner's index
// entry is left for DeleteExpired to prune.
const rotateSessionScript = `
local owner = redis.call("HGET", KEYS[1], "account_id")
if not owner then
  return 0
end
local expires_at = tonumber(redis.call("HGET", KEYS[1], "expires_at") or "0")
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[3], ARGV[1])
if expires_at <= tonumber(ARGV[7]) or owner ~= ARGV[4] then
  return 0
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return -1
end
redis.call("HSET", KEYS[2], "id", ARGV[3], "account_id", ARGV[4], "expires_at", ARGV[5], "created_at", ARGV[6])
redis.call("PEXPIREAT", KEYS[2], ARGV[5])
redis.call("SADD", KEYS[3], ARGV[2])
return 1
`

var rotateSessionLua = redis.NewScript(rotateSessionScript)

// KEYS: session, owner's account index (read before the call). ARGV: hash, expected owner.
const deleteSessionScript = `
local owner = redis.call("HGET", KEYS[1], "account_id")
redis.call("DEL", KEYS[1])
if owner and owner == ARGV[2] then
  redis.call("SREM", KEYS[2], ARGV[1])
end
return 1
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// RedisRepository stores sessions in Redis. Rotation runs as a single Lua script so it is atomic
// with respect to every other command.
type RedisRepository struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisRepository returns a session repository backed by rdb with keys namespaced under prefix.
func NewRedisRepository(rdb redis.UniversalClient, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "pds"
	}
	return &RedisRepository{redis: rdb, prefix: prefix}
}

func (r *RedisRepository) sessionKey(hash string) string {
	return r.prefix + ":session:" + hash
}

func (r *RedisRepository) accountPrefix() string { return r.prefix + ":account:" }

const accountSuffix = ":sessions"

func (r *RedisRepository) accountKey(accountID string) string {
	return r.accountPrefix() + accountID + accountSuffix
}

func millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// Create stores s. Returns ErrTokenCollision if the hash is already present.
func (r *RedisRepository) Create(ctx context.Context, s *domain.Session) error {
	n, err := createSessionLua.Run(ctx, r.redis,
		[]string{r.sessionKey(s.TokenHash), r.accountKey(s.AccountID)},
		s.ID, s.AccountID, millis(s.ExpiresAt), millis(s.CreatedAt), s.TokenHash,
	).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenCollision
	}
	return nil
}

// FindByTokenHash returns the session for hash if it expires after now, or nil.
func (r *RedisRepository) FindByTokenHash(ctx context.Context, hash string, now time.Time) (*domain.Session, error) {
	fields, err := r.redis.HGetAll(ctx, r.sessionKey(hash)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	s, err := decodeSession(hash, fields)
	if err != nil {
		return nil, err
	}
	if !s.ActiveAt(now) {
		return nil, nil
	}
	return s, nil
}

func decodeSession(hash string, fields map[string]string) (*domain.Session, error) {
	exp, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, errors.New("session: corrupt expires_at")
	}
	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, errors.New("session: corrupt created_at")
	}
	return &domain.Session{
		ID:        fields["id"],
		AccountID: fields["account_id"],
		TokenHash: hash,
		ExpiresAt: time.UnixMilli(exp).UTC(),
		CreatedAt: time.UnixMilli(created).UTC(),
	}, nil
}

// DeleteByTokenHash deletes the session and its index entry. Missing keys are ignored.
func (r *RedisRepository) DeleteByTokenHash(ctx context.Context, hash string) error {
	key := r.sessionKey(hash)
	owner, err := r.redis.HGet(ctx, key, "account_id").Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	return deleteSessionLua.Run(ctx, r.redis,
		[]string{key, r.accountKey(owner)}, hash, owner,
	).Err()
}

// DeleteAllByAccount deletes every session listed in the account index and the index itself.
func (r *RedisRepository) DeleteAllByAccount(ctx context.Context, accountID string) (int64, error) {
	accountKey := r.accountKey(accountID)
	hashes, err := r.redis.SMembers(ctx, accountKey).Result()
	if err != nil {
		return 0, err
	}
	if len(hashes) == 0 {
		return 0, nil
	}
	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = r.sessionKey(h)
	}
	var del *redis.IntCmd
	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, keys...)
		pipe.SRem(ctx, accountKey, toAny(hashes)...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return del.Val(), nil
}

// Rotate consumes oldHash and stores next in one script invocation.
func (r *RedisRepository) Rotate(ctx context.Context, oldHash string, next *domain.Session, now time.Time) error {
	n, err := rotateSessionLua.Run(ctx, r.redis,
		[]string{r.sessionKey(oldHash), r.sessionKey(next.TokenHash), r.accountKey(next.AccountID)},
		oldHash, next.TokenHash, next.ID, next.AccountID, millis(next.ExpiresAt), millis(next.CreatedAt),
		millis(now),
	).Int()
	if err != nil {
		return err
	}
	switch n {
	case 1:
		return nil
	case -1:
		return ErrTokenCollision
	default:
		return ErrSessionNotFound
	}
}

// DeleteExpired prunes index entries whose session key is gone. Session keys themselves expire via
// PEXPIREAT, so the returned count is the number of stale index entries removed.
func (r *RedisRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	iter := r.redis.Scan(ctx, 0, r.accountPrefix()+"*"+accountSuffix, 100).Iterator()
	for iter.Next(ctx) {
		accountKey := iter.Val()
		hashes, err := r.redis.SMembers(ctx, accountKey).Result()
		if err != nil {
			return removed, err
		}
		for _, h := range hashes {
			fields, err := r.redis.HGetAll(ctx, r.sessionKey(h)).Result()
			if err != nil {
				return removed, err
			}
			if len(fields) > 0 {
				s, err := decodeSession(h, fields)
				if err == nil && s.ActiveAt(now) {
					continue
				}
				if err := r.redis.Del(ctx, r.sessionKey(h)).Err(); err != nil {
					return removed, err
				}
			}
			if err := r.redis.SRem(ctx, accountKey, h).Err(); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, iter.Err()
}

// Ping reports whether Redis is reachable.
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.redis.Ping(ctx).Err()
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
