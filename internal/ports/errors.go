package ports

import "errors"

// Service-level error taxonomy. Each kind carries a distinct, stable message
// so callers and tests branch with errors.Is instead of parsing text.
var (
	// ErrNotFound: the booking row is missing or already terminal.
	// Terminal for the calling request.
	ErrNotFound = errors.New("booking not found")

	// ErrConflict: the current state does not satisfy the precondition for
	// the requested transition. Not retryable with the same arguments.
	ErrConflict = errors.New("booking state conflict")

	// ErrUnauthorized: the actor does not own the booking.
	ErrUnauthorized = errors.New("actor not authorized for booking")

	// ErrNoDriversAvailable: every candidate was locked or the list was
	// empty. Transient; safe to retry after a delay.
	ErrNoDriversAvailable = errors.New("no drivers available")

	// ErrLockContention: the lock could not be acquired after retries.
	// Retry later with backoff, not in an immediate loop.
	ErrLockContention = errors.New("lock contention")

	// ErrStoreUnavailable: the durable store or lock store is unreachable.
	// Fatal for the current request.
	ErrStoreUnavailable = errors.New("store unavailable")
)
