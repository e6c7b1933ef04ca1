package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/booking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/driver"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// CancelBooking cancels a booking from any non-terminal state. The actor must
// be the booking's rider or its assigned driver. If a driver was committed,
// their availability flag is released in the same transaction.
func (service *bookingService) CancelBooking(ctx context.Context, in ports.CancelBookingInput) (*booking.Booking, error) {
	bookingID := strings.TrimSpace(in.BookingID)
	if bookingID == "" {
		return nil, fmt.Errorf("booking id is required: %w", ports.ErrNotFound)
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

			if err := authorizeCancel(b, in.ActorID, in.ActorRole); err != nil {
				return err
			}
			if b.Status.Terminal() {
				return fmt.Errorf("booking %s is %s: %w", bookingID, b.Status, ports.ErrConflict)
			}

			hadDriver := b.DriverID != nil && b.Status != booking.StatusPending

			if err := service.bookingRepo.Cancel(txCtx, bookingID, in.Reason, time.Now().UTC()); err != nil {
				return err
			}

			// free the committed driver in lockstep with the booking
			if hadDriver {
				err := service.driverRepo.SetStatusIf(txCtx, *b.DriverID, driver.StatusBusy, driver.StatusOnline)
				if err != nil && !errors.Is(err, ports.ErrConflict) {
					return err
				}
			}

			return b.Cancel(in.Reason)
		})
	})
	if err != nil {
		service.logger.Error(ctx, "booking_cancel_failed", "Failed to cancel booking", err, map[string]any{
			"booking_id": bookingID,
			"actor_id":   in.ActorID,
			"request_id": correlationID,
		})
		return nil, err
	}

	service.publishStatus(ctx, b, correlationID)
	service.logger.Info(ctx, "booking_cancelled", fmt.Sprintf("Booking %s cancelled", bookingID), map[string]any{
		"booking_id": bookingID,
		"actor_id":   in.ActorID,
		"reason":     in.Reason,
		"request_id": correlationID,
	})

	return b, nil
}

// authorizeCancel checks the actor owns the booking: the rider who requested
// it or the driver currently assigned to it.
func authorizeCancel(b *booking.Booking, actorID string, role ports.ActorRole) error {
	switch role {
	case ports.RoleRider:
		if b.RiderID == actorID {
			return nil
		}
	case ports.RoleDriver:
		if b.DriverID != nil && *b.DriverID == actorID {
			return nil
		}
	}
	return fmt.Errorf("actor %s: %w", actorID, ports.ErrUnauthorized)
}
