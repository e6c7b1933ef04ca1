package service

import (
	"context"
	"fmt"
	"time"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/booking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// AcceptBooking confirms an assignment: ASSIGNED -> ACCEPTED. Only the
// assigned driver may accept.
func (service *bookingService) AcceptBooking(ctx context.Context, bookingID, driverID string) (*booking.Booking, error) {
	correlationID := generateCorrelationID()

	var b *booking.Booking
	err := service.withBookingLock(ctx, bookingID, func(lockCtx context.Context) error {
		return service.uow.WithinTx(lockCtx, func(txCtx context.Context) error {
			var err error
			b, err = service.bookingRepo.GetByID(txCtx, bookingID)
			if err != nil {
				return err
			}

			// only the assigned driver may act on this booking
			if b.DriverID == nil || *b.DriverID != driverID {
				return fmt.Errorf("driver %s: %w", driverID, ports.ErrUnauthorized)
			}
			if b.Status != booking.StatusAssigned {
				return fmt.Errorf("accept requires ASSIGNED, booking %s is %s: %w", bookingID, b.Status, ports.ErrConflict)
			}

			if err := service.bookingRepo.Accept(txCtx, bookingID, driverID, time.Now().UTC()); err != nil {
				return err
			}
			return b.Accept(driverID)
		})
	})
	if err != nil {
		service.logger.Error(ctx, "booking_accept_failed", "Failed to accept booking", err, map[string]any{
			"booking_id": bookingID,
			"driver_id":  driverID,
			"request_id": correlationID,
		})
		return nil, err
	}

	service.publishStatus(ctx, b, correlationID)
	service.logger.Info(ctx, "booking_accepted", fmt.Sprintf("Booking %s accepted by driver %s", bookingID, driverID), map[string]any{
		"booking_id": bookingID,
		"driver_id":  driverID,
		"request_id": correlationID,
	})

	return b, nil
}

// withBookingLock runs body under the booking's distributed lock, translating
// acquisition failures into the service error taxonomy.
func (service *bookingService) withBookingLock(ctx context.Context, bookingID string, body func(ctx context.Context) error) error {
	resource := bookingResource(bookingID)
	lease, err := service.locks.Acquire(ctx, resource, service.lockOpts)
	if err != nil {
		return mapAcquireErr(err, resource)
	}
	defer func() {
		// survive caller cancellation so the lock never waits out its TTL
		releaseCtx := context.WithoutCancel(ctx)
		if _, rerr := lease.Release(releaseCtx); rerr != nil {
			service.logger.Error(releaseCtx, "lock_release_failed", "Failed to release booking lock", rerr, map[string]any{
				"booking_id": bookingID,
			})
		}
	}()

	return body(ctx)
}
