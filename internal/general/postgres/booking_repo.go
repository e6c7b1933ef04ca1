package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/booking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// BookingRepo persists bookings using pgx and plain SQL.
//
// Every mutation re-checks the row status under FOR UPDATE before writing.
// The distributed lock is the primary guard; the status check here is the
// second line of defense against writers that bypassed the lock.
type BookingRepo struct{}

// NewBookingRepo constructs a new BookingRepo.
func NewBookingRepo() ports.BookingRepository {
	return &BookingRepo{}
}

// Create inserts a new booking row and writes an initial BOOKING_REQUESTED event.
func (repo *BookingRepo) Create(ctx context.Context, b *booking.Booking) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	// insert only the columns we actually have values for at creation time
	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (
			booking_number, rider_id, vehicle_type, status,
			pickup_latitude, pickup_longitude, pickup_address,
			dropoff_latitude, dropoff_longitude, dropoff_address,
			estimated_fare
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at, requested_at
	`,
		b.BookingNumber,
		b.RiderID,
		b.VehicleType.String(),
		b.Status.String(), // typically "PENDING"
		b.PickupLatitude,
		b.PickupLongitude,
		b.PickupAddress,
		b.DropoffLatitude,
		b.DropoffLongitude,
		b.DropoffAddress,
		b.EstimatedFare,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt, &b.RequestedAt)
	if err != nil {
		return err
	}

	eventData := map[string]any{
		"new_status":     b.Status.String(),
		"estimated_fare": b.EstimatedFare,
	}
	return insertBookingEvent(ctx, tx, b.ID, "BOOKING_REQUESTED", eventData)
}

// GetByID fetches a booking by primary key (uuid).
func (repo *BookingRepo) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var out booking.Booking
	var vehicleType, status string

	// fetch all columns
	err = tx.QueryRow(ctx, `
		SELECT
			id, created_at, updated_at, booking_number, rider_id, driver_id,
			vehicle_type, status,
			pickup_latitude, pickup_longitude, pickup_address,
			dropoff_latitude, dropoff_longitude, dropoff_address,
			estimated_fare, actual_fare,
			requested_at, assigned_at, accepted_at, completed_at, cancelled_at,
			cancellation_reason
		FROM bookings
		WHERE id = $1
	`, id).Scan(
		&out.ID, &out.CreatedAt, &out.UpdatedAt, &out.BookingNumber, &out.RiderID, &out.DriverID,
		&vehicleType, &status,
		&out.PickupLatitude, &out.PickupLongitude, &out.PickupAddress,
		&out.DropoffLatitude, &out.DropoffLongitude, &out.DropoffAddress,
		&out.EstimatedFare, &out.ActualFare,
		&out.RequestedAt, &out.AssignedAt, &out.AcceptedAt, &out.CompletedAt, &out.CancelledAt,
		&out.CancellationReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("booking %s: %w", id, ports.ErrNotFound)
		}
		return nil, err
	}
	out.VehicleType = booking.VehicleType(vehicleType)
	out.Status = booking.Status(status)

	return &out, nil
}

// Assign sets driver_id, stamps assigned_at, moves status to ASSIGNED.
func (repo *BookingRepo) Assign(ctx context.Context, bookingID, driverID string, assignedAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	var existingDriver *string
	err = tx.QueryRow(ctx, `
		SELECT status, driver_id
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, bookingID).Scan(&current, &existingDriver)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("booking %s: %w", bookingID, ports.ErrNotFound)
		}
		return err
	}

	// idempotent success if already assigned to the same driver
	if current == booking.StatusAssigned.String() && existingDriver != nil && *existingDriver == driverID {
		return nil
	}

	// only allow from PENDING -> ASSIGNED
	if current != booking.StatusPending.String() {
		return fmt.Errorf("assign requires PENDING, booking %s is %s: %w", bookingID, current, ports.ErrConflict)
	}

	_, err = tx.Exec(ctx, `
		UPDATE bookings
		SET driver_id = $1,
		    status = 'ASSIGNED',
		    assigned_at = $2,
		    updated_at = now()
		WHERE id = $3
	`, driverID, assignedAt, bookingID)
	if err != nil {
		return err
	}

	eventData := map[string]any{
		"old_status":  current,
		"new_status":  booking.StatusAssigned.String(),
		"driver_id":   driverID,
		"assigned_at": assignedAt.UTC().Format(time.RFC3339),
	}
	return insertBookingEvent(ctx, tx, bookingID, "DRIVER_ASSIGNED", eventData)
}

// Accept stamps accepted_at and moves ASSIGNED -> ACCEPTED for the assigned driver.
func (repo *BookingRepo) Accept(ctx context.Context, bookingID, driverID string, acceptedAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	var existingDriver *string
	err = tx.QueryRow(ctx, `
		SELECT status, driver_id
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, bookingID).Scan(&current, &existingDriver)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("booking %s: %w", bookingID, ports.ErrNotFound)
		}
		return err
	}

	// idempotent success
	if current == booking.StatusAccepted.String() && existingDriver != nil && *existingDriver == driverID {
		return nil
	}

	// only the assigned driver may accept
	if existingDriver == nil || *existingDriver != driverID {
		return fmt.Errorf("booking %s is not assigned to driver %s: %w", bookingID, driverID, ports.ErrConflict)
	}

	// only allow from ASSIGNED -> ACCEPTED
	if current != booking.StatusAssigned.String() {
		return fmt.Errorf("accept requires ASSIGNED, booking %s is %s: %w", bookingID, current, ports.ErrConflict)
	}

	_, err = tx.Exec(ctx, `
		UPDATE bookings
		SET status = 'ACCEPTED',
		    accepted_at = $1,
		    updated_at = now()
		WHERE id = $2
	`, acceptedAt, bookingID)
	if err != nil {
		return err
	}

	eventData := map[string]any{
		"old_status":  current,
		"new_status":  booking.StatusAccepted.String(),
		"driver_id":   driverID,
		"accepted_at": acceptedAt.UTC().Format(time.RFC3339),
	}
	return insertBookingEvent(ctx, tx, bookingID, "BOOKING_ACCEPTED", eventData)
}

// Complete finalizes a booking with the actual fare, stamps completed_at, moves to COMPLETED.
func (repo *BookingRepo) Complete(ctx context.Context, bookingID string, actualFare float64, completedAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	err = tx.QueryRow(ctx, `
		SELECT status
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, bookingID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("booking %s: %w", bookingID, ports.ErrNotFound)
		}
		return err
	}

	// idempotent success
	if current == booking.StatusCompleted.String() {
		return nil
	}

	// only allow from ACCEPTED -> COMPLETED
	if current != booking.StatusAccepted.String() {
		return fmt.Errorf("complete requires ACCEPTED, booking %s is %s: %w", bookingID, current, ports.ErrConflict)
	}

	_, err = tx.Exec(ctx, `
		UPDATE bookings
		SET status = 'COMPLETED',
		    actual_fare = $1,
		    completed_at = $2,
		    updated_at = now()
		WHERE id = $3
	`, actualFare, completedAt, bookingID)
	if err != nil {
		return err
	}

	eventData := map[string]any{
		"old_status":   current,
		"new_status":   booking.StatusCompleted.String(),
		"actual_fare":  actualFare,
		"completed_at": completedAt.UTC().Format(time.RFC3339),
	}
	return insertBookingEvent(ctx, tx, bookingID, "BOOKING_COMPLETED", eventData)
}

// Cancel sets cancellation_reason, stamps cancelled_at, moves to CANCELLED.
func (repo *BookingRepo) Cancel(ctx context.Context, bookingID, reason string, cancelledAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	err = tx.QueryRow(ctx, `
		SELECT status
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, bookingID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("booking %s: %w", bookingID, ports.ErrNotFound)
		}
		return err
	}

	// idempotent success
	if current == booking.StatusCancelled.String() {
		return nil
	}

	// cannot cancel a completed booking
	if current == booking.StatusCompleted.String() {
		return fmt.Errorf("booking %s is already completed: %w", bookingID, ports.ErrConflict)
	}

	_, err = tx.Exec(ctx, `
		UPDATE bookings
		SET status = 'CANCELLED',
		    cancellation_reason = $1,
		    cancelled_at = $2,
		    updated_at = now()
		WHERE id = $3
	`, reason, cancelledAt, bookingID)
	if err != nil {
		return err
	}

	eventData := map[string]any{
		"old_status":   current,
		"new_status":   booking.StatusCancelled.String(),
		"reason":       reason,
		"cancelled_at": cancelledAt.UTC().Format(time.RFC3339),
	}
	return insertBookingEvent(ctx, tx, bookingID, "BOOKING_CANCELLED", eventData)
}

// --- helpers ---

// insertBookingEvent writes a row into booking_events with encoded event_data.
func insertBookingEvent(ctx context.Context, tx pgx.Tx, bookingID, eventType string, eventData any) error {
	body, err := json.Marshal(eventData)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_events (booking_id, event_type, event_data)
		VALUES ($1, $2, $3::jsonb)
	`, bookingID, eventType, string(body))
	return err
}
