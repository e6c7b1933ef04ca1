package locking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/logger"
)

var (
	// ErrContention is returned when a lock could not be acquired after all
	// retry attempts. Callers should retry later with backoff, not loop.
	ErrContention = errors.New("lock contention: resource is held by another caller")

	ErrResourceRequired = errors.New("lock resource is required")
)

// Options control one acquisition attempt sequence.
type Options struct {
	// TTL is the automatic expiry of the lock. It must exceed the expected
	// critical-section duration with margin: if the critical section outlives
	// the TTL another caller may acquire the same key while the first is
	// still executing.
	TTL time.Duration

	// MaxAttempts bounds the number of acquisition races. Each failed attempt
	// is a distinct race, not a queue position; no fairness is guaranteed.
	MaxAttempts int

	// BaseDelay is the unit of the linear backoff: attempt n sleeps n*BaseDelay.
	BaseDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 30 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 100 * time.Millisecond
	}
	return o
}

// SleepFunc is injected so tests can run the retry loop without real delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Lease proves ownership of an acquired lock. Release is safe to call once
// on every path; a false result only means cleanup already happened.
type Lease struct {
	Resource string
	Token    string

	manager *Manager
}

// Release gives the lock back via compare-and-delete with the lease token.
func (l *Lease) Release(ctx context.Context) (bool, error) {
	return l.manager.Release(ctx, l.Resource, l.Token)
}

// Extend prolongs the lease by ttl without changing the token.
func (l *Lease) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	return l.manager.Extend(ctx, l.Resource, l.Token, ttl)
}

// Manager implements the distributed lock protocol: acquire with retry and
// linear backoff, token-verified release and extend, and TTL-based crash
// recovery. It keeps no local lock state; the Store is the single source of
// truth for who may proceed.
type Manager struct {
	store  Store
	logger *logger.Logger
	prefix string
	sleep  SleepFunc
	stats  Stats
}

// NewManager constructs a Manager over the given store. prefix namespaces
// every lock key (e.g. "lock:").
func NewManager(store Store, log *logger.Logger, prefix string) *Manager {
	return &Manager{
		store:  store,
		logger: log,
		prefix: prefix,
		sleep:  defaultSleep,
	}
}

// WithSleep replaces the backoff sleeper; used by tests to avoid real delays.
func (m *Manager) WithSleep(sleep SleepFunc) *Manager {
	if sleep != nil {
		m.sleep = sleep
	}
	return m
}

// Acquire obtains the lock for resource or fails with ErrContention after
// opts.MaxAttempts races. The returned lease token is a fresh random UUID,
// unguessable and unique per acquisition attempt.
func (m *Manager) Acquire(ctx context.Context, resource string, opts Options) (*Lease, error) {
	if strings.TrimSpace(resource) == "" {
		return nil, ErrResourceRequired
	}
	opts = opts.withDefaults()

	token := uuid.NewString()
	key := m.prefix + resource

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		created, err := m.store.TryCreate(ctx, key, token, opts.TTL)
		if err != nil {
			return nil, err
		}
		if created {
			m.stats.acquired.Add(1)
			m.logger.Debug(ctx, "lock_acquired", "Acquired distributed lock", map[string]any{
				"resource": resource,
				"attempt":  attempt,
				"ttl_ms":   opts.TTL.Milliseconds(),
			})
			return &Lease{Resource: resource, Token: token, manager: m}, nil
		}

		// last attempt lost the race: no point sleeping before failing
		if attempt == opts.MaxAttempts {
			break
		}
		if err := m.sleep(ctx, time.Duration(attempt)*opts.BaseDelay); err != nil {
			return nil, err
		}
	}

	m.stats.contended.Add(1)
	m.logger.Debug(ctx, "lock_contended", "Failed to acquire lock after retries", map[string]any{
		"resource": resource,
		"attempts": opts.MaxAttempts,
	})
	return nil, fmt.Errorf("%w: %s", ErrContention, resource)
}

// Release deletes the lock only if token still owns it. A false result means
// the lock already expired or was taken over; callers treat that as cleanup
// having already happened.
func (m *Manager) Release(ctx context.Context, resource, token string) (bool, error) {
	deleted, err := m.store.CompareAndDelete(ctx, m.prefix+resource, token)
	if err != nil {
		return false, err
	}
	if deleted {
		m.stats.released.Add(1)
	} else {
		m.stats.expired.Add(1)
		m.logger.Debug(ctx, "lock_release_noop", "Lock was already expired or stolen on release", map[string]any{
			"resource": resource,
		})
	}
	return deleted, nil
}

// Extend resets the expiry without changing the token. Only the current
// holder succeeds. Never called automatically: a caller whose critical
// section may run long must invoke it explicitly.
func (m *Manager) Extend(ctx context.Context, resource, token string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, fmt.Errorf("lock extend: ttl must be positive")
	}
	return m.store.CompareAndExtend(ctx, m.prefix+resource, token, ttl)
}

// IsLocked reports whether resource is currently held and its remaining TTL.
func (m *Manager) IsLocked(ctx context.Context, resource string) (bool, time.Duration, error) {
	_, remaining, ok, err := m.store.Get(ctx, m.prefix+resource)
	if err != nil {
		return false, 0, err
	}
	return ok, remaining, nil
}

// WithLock acquires resource, runs body, and releases on every path. Release
// failures are logged, not returned: the body's outcome wins.
func (m *Manager) WithLock(ctx context.Context, resource string, opts Options, body func(ctx context.Context) error) error {
	lease, err := m.Acquire(ctx, resource, opts)
	if err != nil {
		return err
	}
	defer func() {
		// release even when the caller's ctx was cancelled mid-body;
		// otherwise the lock lingers until TTL expiry
		releaseCtx := context.WithoutCancel(ctx)
		if _, rerr := lease.Release(releaseCtx); rerr != nil {
			m.logger.Error(releaseCtx, "lock_release_failed", "Failed to release lock", rerr, map[string]any{
				"resource": resource,
			})
		}
	}()

	return body(ctx)
}
