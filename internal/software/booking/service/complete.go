package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/booking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/driver"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// CompleteRide finalizes a booking: ACCEPTED -> COMPLETED. The driver is
// released back to ONLINE and their counters settle in the same transaction.
func (service *bookingService) CompleteRide(ctx context.Context, bookingID, driverID string, actualFare float64) (*booking.Booking, error) {
	if actualFare < 0 {
		return nil, booking.ErrNegativeFare
	}
	correlationID := generateCorrelationID()

	var b *booking.Booking
	err := service.withBookingLock(ctx, bookingID, func(lockCtx context.Context) error {
		return service.uow.WithinTx(lockCtx, func(txCtx context.Context) error {
			var err error
			b, err = service.bookingRepo.GetByID(txCtx, bookingID)
			if err != nil {
				return err
			}

			// only the assigned driver may complete the ride
			if b.DriverID == nil || *b.DriverID != driverID {
				return fmt.Errorf("driver %s: %w", driverID, ports.ErrUnauthorized)
			}
			if b.Status != booking.StatusAccepted {
				return fmt.Errorf("complete requires ACCEPTED, booking %s is %s: %w", bookingID, b.Status, ports.ErrConflict)
			}

			if err := service.bookingRepo.Complete(txCtx, bookingID, actualFare, time.Now().UTC()); err != nil {
				return err
			}

			// release the driver and settle earnings in lockstep; a conflict
			// means the flag already moved on, the booking row stays the
			// source of truth
			if err := service.driverRepo.SetStatusIf(txCtx, driverID, driver.StatusBusy, driver.StatusOnline); err != nil && !errors.Is(err, ports.ErrConflict) {
				return err
			}
			if err := service.driverRepo.IncrementCountersOnComplete(txCtx, driverID, actualFare); err != nil {
				return err
			}

			return b.Complete(driverID, actualFare)
		})
	})
	if err != nil {
		service.logger.Error(ctx, "booking_complete_failed", "Failed to complete booking", err, map[string]any{
			"booking_id": bookingID,
			"driver_id":  driverID,
			"request_id": correlationID,
		})
		return nil, err
	}

	service.publishStatus(ctx, b, correlationID)
	service.logger.Info(ctx, "booking_completed", fmt.Sprintf("Booking %s completed", bookingID), map[string]any{
		"booking_id":  bookingID,
		"driver_id":   driverID,
		"actual_fare": actualFare,
		"request_id":  correlationID,
	})

	return b, nil
}
