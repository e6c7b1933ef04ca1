package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/booking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/driver"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// ----- in-memory test doubles for the ports layer -----

// fakeUOW runs the function directly; the in-memory repos are transactional
// enough for these scenarios.
type fakeUOW struct{}

func (fakeUOW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memBookingRepo mirrors the conditional-write contract of the SQL repo.
type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*booking.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[string]*booking.Booking)}
}

func (r *memBookingRepo) Create(ctx context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *memBookingRepo) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, ports.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) Assign(ctx context.Context, bookingID, driverID string, assignedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return fmt.Errorf("booking %s: %w", bookingID, ports.ErrNotFound)
	}
	if b.Status == booking.StatusAssigned && b.DriverID != nil && *b.DriverID == driverID {
		return nil
	}
	if b.Status != booking.StatusPending {
		return fmt.Errorf("assign requires PENDING, booking %s is %s: %w", bookingID, b.Status, ports.ErrConflict)
	}
	b.DriverID = &driverID
	b.Status = booking.StatusAssigned
	b.AssignedAt = &assignedAt
	return nil
}

func (r *memBookingRepo) Accept(ctx context.Context, bookingID, driverID string, acceptedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return fmt.Errorf("booking %s: %w", bookingID, ports.ErrNotFound)
	}
	if b.Status == booking.StatusAccepted && b.DriverID != nil && *b.DriverID == driverID {
		return nil
	}
	if b.DriverID == nil || *b.DriverID != driverID {
		return fmt.Errorf("booking %s is not assigned to driver %s: %w", bookingID, driverID, ports.ErrConflict)
	}
	if b.Status != booking.StatusAssigned {
		return fmt.Errorf("accept requires ASSIGNED, booking %s is %s: %w", bookingID, b.Status, ports.ErrConflict)
	}
	b.Status = booking.StatusAccepted
	b.AcceptedAt = &acceptedAt
	return nil
}

func (r *memBookingRepo) Complete(ctx context.Context, bookingID string, actualFare float64, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return fmt.Errorf("booking %s: %w", bookingID, ports.ErrNotFound)
	}
	if b.Status == booking.StatusCompleted {
		return nil
	}
	if b.Status != booking.StatusAccepted {
		return fmt.Errorf("complete requires ACCEPTED, booking %s is %s: %w", bookingID, b.Status, ports.ErrConflict)
	}
	b.Status = booking.StatusCompleted
	b.ActualFare = &actualFare
	b.CompletedAt = &completedAt
	return nil
}

func (r *memBookingRepo) Cancel(ctx context.Context, bookingID, reason string, cancelledAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return fmt.Errorf("booking %s: %w", bookingID, ports.ErrNotFound)
	}
	if b.Status == booking.StatusCancelled {
		return nil
	}
	if b.Status == booking.StatusCompleted {
		return fmt.Errorf("booking %s is already completed: %w", bookingID, ports.ErrConflict)
	}
	b.Status = booking.StatusCancelled
	b.CancelledAt = &cancelledAt
	if reason != "" {
		b.CancellationReason = &reason
	}
	return nil
}

// memDriverRepo doubles as the candidate source: candidates come back in
// insertion order, which stands in for the distance-then-rating ranking.
type memDriverRepo struct {
	mu      sync.Mutex
	order   []string
	drivers map[string]*driver.Driver
}

func newMemDriverRepo() *memDriverRepo {
	return &memDriverRepo{drivers: make(map[string]*driver.Driver)}
}

func (r *memDriverRepo) Create(ctx context.Context, d *driver.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.drivers[d.ID] = &cp
	r.order = append(r.order, d.ID)
	return nil
}

func (r *memDriverRepo) GetByID(ctx context.Context, driverID string) (*driver.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[driverID]
	if !ok {
		return nil, fmt.Errorf("driver %s: %w", driverID, ports.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (r *memDriverRepo) SetStatusUnlessBusy(ctx context.Context, driverID string, status driver.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[driverID]
	if !ok {
		return fmt.Errorf("driver %s: %w", driverID, ports.ErrNotFound)
	}
	if d.Status == driver.StatusBusy {
		return fmt.Errorf("driver %s is BUSY: %w", driverID, ports.ErrConflict)
	}
	d.Status = status
	return nil
}

func (r *memDriverRepo) SetStatusIf(ctx context.Context, driverID string, from, to driver.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[driverID]
	if !ok {
		return fmt.Errorf("driver %s: %w", driverID, ports.ErrNotFound)
	}
	if d.Status != from {
		return fmt.Errorf("driver %s is %s, expected %s: %w", driverID, d.Status, from, ports.ErrConflict)
	}
	d.Status = to
	return nil
}

func (r *memDriverRepo) IncrementCountersOnComplete(ctx context.Context, driverID string, earnings float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[driverID]
	if !ok {
		return fmt.Errorf("driver %s: %w", driverID, ports.ErrNotFound)
	}
	d.TotalRides++
	d.TotalEarnings += earnings
	return nil
}

func (r *memDriverRepo) FindCandidates(ctx context.Context, pickupLat, pickupLng float64, vt booking.VehicleType, radiusKm float64, limit int) ([]ports.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ports.Candidate
	for i, id := range r.order {
		d := r.drivers[id]
		if d.Status != driver.StatusOnline || d.VehicleType != vt {
			continue
		}
		out = append(out, ports.Candidate{
			DriverID:   id,
			DistanceKM: float64(i + 1),
			Rating:     d.Rating,
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// recordingSink captures published transitions in order.
type recordingSink struct {
	mu       sync.Mutex
	statuses []string
}

func (s *recordingSink) BookingStatusChanged(ctx context.Context, b *booking.Booking, correlationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, b.Status.String())
	return nil
}

func (s *recordingSink) published() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.statuses...)
}
