package service

import (
	"context"
	"fmt"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/booking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// CreateBooking creates a new booking request in PENDING state. No lock is
// taken: the row does not exist yet, so there is nothing to contend on.
func (service *bookingService) CreateBooking(ctx context.Context, in ports.CreateBookingInput) (ports.CreateBookingResult, error) {
	var (
		bookingNumber = generateBookingNumber()
		correlationID = generateCorrelationID()
		created       *booking.Booking
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		b, err := booking.NewBooking(
			bookingNumber,
			in.RiderID,
			in.VehicleType,
			in.PickupLatitude,
			in.PickupLongitude,
			in.PickupAddress,
			in.DropoffLatitude,
			in.DropoffLongitude,
			in.DropoffAddress,
		)
		if err != nil {
			return err
		}

		if err := service.bookingRepo.Create(txCtx, b); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "booking_create_failed", "Failed to create booking", err, map[string]any{
			"rider_id":       in.RiderID,
			"booking_number": bookingNumber,
			"request_id":     correlationID,
		})
		return ports.CreateBookingResult{}, err
	}

	// fan-out: initial PENDING status (best-effort, outside tx)
	service.publishStatus(ctx, created, correlationID)

	service.logger.Info(ctx, "booking_created", fmt.Sprintf("Booking %s created", created.ID), map[string]any{
		"booking_id":     created.ID,
		"booking_number": bookingNumber,
		"rider_id":       in.RiderID,
		"request_id":     correlationID,
	})

	return ports.CreateBookingResult{
		BookingID:     created.ID,
		BookingNumber: bookingNumber,
		Status:        created.Status.String(),
		EstimatedFare: created.EstimatedFare,
	}, nil
}
