package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps storage failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned when no live session exists for a token hash.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionCorrupt is returned when a stored session blob cannot be decoded.
var ErrSessionCorrupt = errors.New("session corrupt")

const deleteSessionScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
end
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// deleteUserSessionsScript removes every indexed session and the index itself.
const deleteUserSessionsScript = `
local hashes = redis.call("SMEMBERS", KEYS[1])
local deleted = 0
for _, hash in ipairs(hashes) do
  deleted = deleted + redis.call("DEL", ARGV[1] .. hash)
end
redis.call("DEL", KEYS[1])
return deleted
`

var deleteUserSessionsLua = redis.NewScript(deleteUserSessionsScript)

// Store is a Redis-backed session store that handles persistence, lazy
// expiration, and per-user revocation.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace; now defaults to time.Now.
func NewStore(redis redis.UniversalClient, prefix string, now func() time.Time) *Store {
	if prefix == "" {
		prefix = "sess"
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		redis:  redis,
		prefix: prefix,
		now:    now,
	}
}

func (s *Store) key(tokenHash string) string {
	return s.prefix + ":" + tokenHash
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

// Save persists a [Session] and indexes it under its user. The record TTL is
// the session's remaining lifetime.
//
//	Performance: 1 MULTI/EXEC (SET + SADD + PEXPIRE).
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.TokenHash == "" || sess.UserID == "" {
		return errors.New("session requires token hash and user id")
	}
	ttl := sess.TTL(s.now())
	if ttl <= 0 {
		return errors.New("session already expired")
	}

	data, err := Encode(sess)
	if err != nil {
		return err
	}

	sessionKey := s.key(sess.TokenHash)
	userKey := s.userKey(sess.UserID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey, data, ttl)
		pipe.SAdd(ctx, userKey, sess.TokenHash)
		pipe.PExpire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get retrieves a live session by token hash. Expired records are deleted
// and reported as [ErrSessionNotFound].
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, tokenHash string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	sess.TokenHash = tokenHash

	if sess.Expired(s.now()) {
		if _, err := s.deleteSessionAndIndex(ctx, tokenHash, sess.UserID); err != nil {
			return nil, err
		}
		return nil, ErrSessionNotFound
	}

	return sess, nil
}

// Delete removes a session and its index entry. Deleting a missing session
// is not an error; the boolean reports whether a record was removed.
func (s *Store) Delete(ctx context.Context, tokenHash string) (bool, error) {
	data, err := s.redis.Get(ctx, s.key(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		// Unreadable record: drop it without touching any index.
		if err := s.redis.Del(ctx, s.key(tokenHash)).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return true, nil
	}

	return s.deleteSessionAndIndex(ctx, tokenHash, sess.UserID)
}

// DeleteAllForUser removes every session indexed for userID in one script
// and returns the number of session records deleted.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	n, err := deleteUserSessionsLua.Run(
		ctx,
		s.redis,
		[]string{s.userKey(userID)},
		s.prefix+":",
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(n), nil
}

// CountForUser returns the number of token hashes indexed for userID. The
// index may briefly include hashes whose records already expired.
func (s *Store) CountForUser(ctx context.Context, userID string) (int, error) {
	n, err := s.redis.SCard(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(n), nil
}

func (s *Store) deleteSessionAndIndex(ctx context.Context, tokenHash, userID string) (bool, error) {
	existed, err := deleteSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(tokenHash), s.userKey(userID)},
		tokenHash,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return existed == 1, nil
}

// Ping measures one round trip to Redis.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
