package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/booking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/driver"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// DriverRepo persists drivers using pgx and plain SQL. It also serves as the
// geospatial candidate source for the assignment walk.
type DriverRepo struct{}

// NewDriverRepo constructs a new DriverRepo.
func NewDriverRepo() *DriverRepo {
	return &DriverRepo{}
}

var _ ports.DriverRepository = (*DriverRepo)(nil)
var _ ports.CandidateFinder = (*DriverRepo)(nil)

// Create inserts a new driver row.
func (repo *DriverRepo) Create(ctx context.Context, d *driver.Driver) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO drivers (id, license_number, vehicle_type, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at, rating, total_rides, total_earnings
	`,
		d.ID,
		d.LicenseNumber,
		d.VehicleType.String(),
		d.Status.String(), // typically starts as 'OFFLINE'
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.Rating, &d.TotalRides, &d.TotalEarnings)
	return err
}

// GetByID returns one driver by id.
func (repo *DriverRepo) GetByID(ctx context.Context, driverID string) (*driver.Driver, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var out driver.Driver
	var vehicleType, statusText string

	err = tx.QueryRow(ctx, `
		SELECT
			id, created_at, updated_at,
			license_number, vehicle_type,
			rating, total_rides, total_earnings,
			status
		FROM drivers
		WHERE id = $1
	`, driverID).Scan(
		&out.ID, &out.CreatedAt, &out.UpdatedAt,
		&out.LicenseNumber, &vehicleType,
		&out.Rating, &out.TotalRides, &out.TotalEarnings,
		&statusText,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("driver %s: %w", driverID, ports.ErrNotFound)
		}
		return nil, err
	}

	out.VehicleType = booking.VehicleType(vehicleType)
	out.Status = driver.Status(statusText)

	return &out, nil
}

// SetStatusUnlessBusy applies an externally reported availability value. A
// BUSY driver is mid-ride and owned by the booking flow; the update is
// rejected with ErrConflict so an ONLINE heartbeat can never free a driver
// that still has an active booking.
func (repo *DriverRepo) SetStatusUnlessBusy(ctx context.Context, driverID string, status driver.Status) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if !status.Valid() {
		return errors.New("invalid driver status")
	}

	var current string
	err = tx.QueryRow(ctx, `
		SELECT status
		FROM drivers
		WHERE id = $1
		FOR UPDATE
	`, driverID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("driver %s: %w", driverID, ports.ErrNotFound)
		}
		return err
	}

	if current == driver.StatusBusy.String() {
		return fmt.Errorf("driver %s is BUSY: %w", driverID, ports.ErrConflict)
	}

	_, err = tx.Exec(ctx, `
		UPDATE drivers
		SET status = $1,
		    updated_at = now()
		WHERE id = $2
	`, status.String(), driverID)
	return err
}

// SetStatusIf flips the status only when the current value matches from.
// A mismatch means another writer got there first.
func (repo *DriverRepo) SetStatusIf(ctx context.Context, driverID string, from, to driver.Status) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if !to.Valid() {
		return errors.New("invalid driver status")
	}

	// lock the row and read current status to keep the check explicit
	var current string
	err = tx.QueryRow(ctx, `
		SELECT status
		FROM drivers
		WHERE id = $1
		FOR UPDATE
	`, driverID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("driver %s: %w", driverID, ports.ErrNotFound)
		}
		return err
	}

	// strict compare: a driver already in the target status means another
	// writer got there first, which must surface as a conflict so the
	// assignment walk never commits the same driver twice
	if current != from.String() {
		return fmt.Errorf("driver %s is %s, expected %s: %w", driverID, current, from.String(), ports.ErrConflict)
	}

	_, err = tx.Exec(ctx, `
		UPDATE drivers
		SET status = $1,
		    updated_at = now()
		WHERE id = $2
	`, to.String(), driverID)
	return err
}

// FindCandidates returns ONLINE drivers of the given vehicle type within
// radius, ordered by distance then rating. The caller walks this list and
// skips drivers whose lock is held.
func (repo *DriverRepo) FindCandidates(
	ctx context.Context,
	pickupLat, pickupLng float64,
	vt booking.VehicleType,
	radiusKm float64,
	limit int,
) ([]ports.Candidate, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT
			d.id,
			d.rating,
			ST_Distance(
				ST_MakePoint(d.current_longitude, d.current_latitude)::geography,
				ST_MakePoint($2, $1)::geography
			) / 1000.0 AS distance_km
		FROM drivers d
		WHERE d.status = 'ONLINE'
		  AND d.vehicle_type = $3
		  AND d.current_latitude IS NOT NULL
		  AND d.current_longitude IS NOT NULL
		  AND ST_DWithin(
				ST_MakePoint(d.current_longitude, d.current_latitude)::geography,
				ST_MakePoint($2, $1)::geography,
				$4 * 1000.0
			  )
		ORDER BY distance_km, d.rating DESC
		LIMIT $5
	`, pickupLat, pickupLng, vt.String(), radiusKm, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []ports.Candidate
	for rows.Next() {
		var c ports.Candidate
		if err := rows.Scan(&c.DriverID, &c.Rating, &c.DistanceKM); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return candidates, nil
}

// IncrementCountersOnComplete increments total_rides by 1 and adds earnings to total_earnings.
func (repo *DriverRepo) IncrementCountersOnComplete(ctx context.Context, driverID string, earnings float64) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	// guard against negative inputs (mirrors domain & DB constraints)
	if earnings < 0 {
		return errors.New("earnings cannot be negative")
	}

	tag, err := tx.Exec(ctx, `
		UPDATE drivers
		SET total_rides = total_rides + 1,
		    total_earnings = total_earnings + $1,
		    updated_at = now()
		WHERE id = $2
	`, earnings, driverID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("driver %s: %w", driverID, ports.ErrNotFound)
	}
	return nil
}
