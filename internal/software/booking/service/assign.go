package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/booking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/driver"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/locking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// AssignDriver matches a PENDING booking to the best available driver.
//
// The booking lock is held for the whole operation. Each candidate is then
// committed under its own driver lock, acquired in booking-then-driver order,
// so two concurrent assignments can never commit the same driver and lock
// ordering stays deadlock-free. Candidates whose lock is held or whose
// availability flipped meanwhile are skipped, not retried.
func (service *bookingService) AssignDriver(ctx context.Context, bookingID string) (ports.AssignResult, error) {
	correlationID := generateCorrelationID()

	lease, err := service.locks.Acquire(ctx, bookingResource(bookingID), service.lockOpts)
	if err != nil {
		return ports.AssignResult{}, mapAcquireErr(err, bookingResource(bookingID))
	}
	defer func() {
		releaseCtx := context.WithoutCancel(ctx)
		if _, rerr := lease.Release(releaseCtx); rerr != nil {
			service.logger.Error(releaseCtx, "lock_release_failed", "Failed to release booking lock", rerr, map[string]any{
				"booking_id": bookingID,
			})
		}
	}()

	// load the booking and its candidate list in one read transaction
	var (
		b     *booking.Booking
		cands []ports.Candidate
	)
	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		b, err = service.bookingRepo.GetByID(txCtx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != booking.StatusPending {
			return fmt.Errorf("assign requires PENDING, booking %s is %s: %w", bookingID, b.Status, ports.ErrConflict)
		}

		cands, err = service.candidates.FindCandidates(txCtx, b.PickupLatitude, b.PickupLongitude, b.VehicleType, service.searchRadiusKM, service.searchLimit)
		return err
	})
	if err != nil {
		return ports.AssignResult{}, err
	}

	if len(cands) == 0 {
		return ports.AssignResult{}, fmt.Errorf("booking %s: %w", bookingID, ports.ErrNoDriversAvailable)
	}

	// walk the ranked list; the first driver we can lock and flip wins
	for _, c := range cands {
		committed, d, err := service.tryCommitCandidate(ctx, b, c.DriverID)
		if err != nil {
			return ports.AssignResult{}, err
		}
		if !committed {
			continue
		}

		_ = b.AssignDriver(d.ID) // mirror the committed row in memory

		service.publishStatus(ctx, b, correlationID)
		service.logger.Info(ctx, "driver_assigned", fmt.Sprintf("Booking %s assigned to driver %s", bookingID, d.ID), map[string]any{
			"booking_id": bookingID,
			"driver_id":  d.ID,
			"request_id": correlationID,
		})

		return ports.AssignResult{Booking: b, Driver: d}, nil
	}

	service.logger.Info(ctx, "no_drivers_available", "Every candidate was locked or unavailable", map[string]any{
		"booking_id": bookingID,
		"candidates": len(cands),
		"request_id": correlationID,
	})
	return ports.AssignResult{}, fmt.Errorf("booking %s: %w", bookingID, ports.ErrNoDriversAvailable)
}

// tryCommitCandidate attempts to commit one candidate driver. It reports
// (false, nil, nil) when the candidate should simply be skipped.
func (service *bookingService) tryCommitCandidate(ctx context.Context, b *booking.Booking, driverID string) (bool, *driver.Driver, error) {
	resource := driverResource(driverID)

	// cheap skip before the write attempt
	if held, _, err := service.locks.IsLocked(ctx, resource); err == nil && held {
		return false, nil, nil
	}

	// single attempt: losing the race just means the next candidate gets a shot
	lease, err := service.locks.Acquire(ctx, resource, locking.Options{
		TTL:         service.lockOpts.TTL,
		MaxAttempts: 1,
		BaseDelay:   service.lockOpts.BaseDelay,
	})
	if err != nil {
		if errors.Is(err, locking.ErrContention) {
			return false, nil, nil
		}
		return false, nil, mapAcquireErr(err, resource)
	}
	defer func() {
		releaseCtx := context.WithoutCancel(ctx)
		if _, rerr := lease.Release(releaseCtx); rerr != nil {
			service.logger.Error(releaseCtx, "lock_release_failed", "Failed to release driver lock", rerr, map[string]any{
				"driver_id": driverID,
			})
		}
	}()

	var d *driver.Driver
	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		// flip availability first so the driver is committed before the booking points at them
		if err := service.driverRepo.SetStatusIf(txCtx, driverID, driver.StatusOnline, driver.StatusBusy); err != nil {
			return err
		}
		if err := service.bookingRepo.Assign(txCtx, b.ID, driverID, time.Now().UTC()); err != nil {
			return err
		}
		var err error
		d, err = service.driverRepo.GetByID(txCtx, driverID)
		return err
	})
	if err != nil {
		// the driver went offline or got taken between the query and the commit
		if errors.Is(err, ports.ErrConflict) || errors.Is(err, ports.ErrNotFound) {
			service.logger.Debug(ctx, "candidate_skipped", "Candidate no longer available", map[string]any{
				"booking_id": b.ID,
				"driver_id":  driverID,
			})
			return false, nil, nil
		}
		return false, nil, err
	}

	return true, d, nil
}
