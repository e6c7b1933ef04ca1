package locking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a thin adapter over a shared key-value store with server-side
// atomic conditional writes. Every method is a single round trip; a
// read-then-write implementation would reintroduce the race the lock
// protocol exists to prevent.
type Store interface {
	// TryCreate sets key=token with the given expiry only if key is absent.
	TryCreate(ctx context.Context, key, token string, ttl time.Duration) (bool, error)

	// CompareAndDelete deletes key only if its current value equals token.
	CompareAndDelete(ctx context.Context, key, token string) (bool, error)

	// CompareAndExtend resets the expiry only if the current value equals token.
	CompareAndExtend(ctx context.Context, key, token string, ttl time.Duration) (bool, error)

	// Get returns the current token and remaining TTL, ok=false if absent.
	Get(ctx context.Context, key string) (token string, remaining time.Duration, ok bool, err error)

	// ListKeys returns all keys matching the given prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// getWithTTLScript reads value and remaining TTL in one atomic round trip.
var getWithTTLScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
  return {}
end
local t = redis.call("PTTL", KEYS[1])
return {v, t}
`)

// compareAndDeleteScript deletes the key only when the caller still owns it.
var compareAndDeleteScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// compareAndExtendScript refreshes the expiry only when the caller still owns it.
var compareAndExtendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisStore implements Store on a Redis connection.
type RedisStore struct {
	rdb redis.UniversalClient
}

// NewRedisStore constructs a RedisStore bound to the given client.
func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// TryCreate issues SET key token NX PX ttl.
func (s *RedisStore) TryCreate(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock store: set-if-absent %q: %w", key, err)
	}
	return ok, nil
}

// CompareAndDelete runs the guarded DEL script.
func (s *RedisStore) CompareAndDelete(ctx context.Context, key, token string) (bool, error) {
	n, err := compareAndDeleteScript.Run(ctx, s.rdb, []string{key}, token).Int64()
	if err != nil {
		return false, fmt.Errorf("lock store: compare-and-delete %q: %w", key, err)
	}
	return n == 1, nil
}

// CompareAndExtend runs the guarded PEXPIRE script.
func (s *RedisStore) CompareAndExtend(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	n, err := compareAndExtendScript.Run(ctx, s.rdb, []string{key}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("lock store: compare-and-extend %q: %w", key, err)
	}
	return n == 1, nil
}

// Get returns the current holder token and the remaining TTL for key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, time.Duration, bool, error) {
	res, err := getWithTTLScript.Run(ctx, s.rdb, []string{key}).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", 0, false, nil
		}
		return "", 0, false, fmt.Errorf("lock store: get %q: %w", key, err)
	}
	if len(res) < 2 {
		return "", 0, false, nil
	}

	token, _ := res[0].(string)
	ttlMs, _ := res[1].(int64)

	var remaining time.Duration
	if ttlMs > 0 {
		remaining = time.Duration(ttlMs) * time.Millisecond
	}
	return token, remaining, true, nil
}

// ListKeys scans for keys with the given prefix.
func (s *RedisStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("lock store: scan %q: %w", prefix, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
