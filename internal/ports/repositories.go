package ports

import (
	"context"
	"time"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/booking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/driver"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BookingRepository defines the methods for managing booking data. Every
// mutation is a conditional write (`WHERE status = expected`) as a
// defense-in-depth check; the distributed lock remains the primary guard.
type BookingRepository interface {
	Create(ctx context.Context, b *booking.Booking) error
	GetByID(ctx context.Context, id string) (*booking.Booking, error)

	// Assign sets driver_id and moves PENDING -> ASSIGNED.
	Assign(ctx context.Context, bookingID, driverID string, assignedAt time.Time) error

	// Accept moves ASSIGNED -> ACCEPTED for the assigned driver.
	Accept(ctx context.Context, bookingID, driverID string, acceptedAt time.Time) error

	// Complete moves ACCEPTED -> COMPLETED and records the actual fare.
	Complete(ctx context.Context, bookingID string, actualFare float64, completedAt time.Time) error

	// Cancel moves any non-terminal state -> CANCELLED and stores the reason.
	Cancel(ctx context.Context, bookingID, reason string, cancelledAt time.Time) error
}

// Candidate is one entry of the ranked list produced by the geospatial
// candidate source, already ordered by distance then rating.
type Candidate struct {
	DriverID   string  `json:"driver_id"`
	DistanceKM float64 `json:"distance_km"`
	Rating     float64 `json:"rating"`
}

// CandidateFinder is the geospatial candidate source consumed by the
// assignment walk. Results are stable for the duration of one attempt; no
// consistency is required across calls.
type CandidateFinder interface {
	FindCandidates(ctx context.Context, pickupLat, pickupLng float64, vt booking.VehicleType, radiusKm float64, limit int) ([]Candidate, error)
}

// DriverRepository defines the methods for managing driver data.
type DriverRepository interface {
	Create(ctx context.Context, d *driver.Driver) error
	GetByID(ctx context.Context, driverID string) (*driver.Driver, error)

	// SetStatusUnlessBusy applies an externally reported availability value
	// but never overwrites BUSY; a busy driver belongs to the active booking
	// flow and reports ErrConflict.
	SetStatusUnlessBusy(ctx context.Context, driverID string, status driver.Status) error

	// SetStatusIf flips the availability flag only when the current value
	// matches from; reports ErrConflict otherwise.
	SetStatusIf(ctx context.Context, driverID string, from, to driver.Status) error

	// IncrementCountersOnComplete adds one ride and the earnings delta.
	IncrementCountersOnComplete(ctx context.Context, driverID string, earnings float64) error
}

// EventSink receives fire-and-forget notifications after each successful
// transition. Delivery is best-effort; the state machine never rolls back on
// sink failure.
type EventSink interface {
	BookingStatusChanged(ctx context.Context, b *booking.Booking, correlationID string) error
}
