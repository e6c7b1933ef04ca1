package ports

import (
	"context"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/booking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/driver"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/locking"
)

// ActorRole identifies who is asking for a cancellation.
type ActorRole string

const (
	RoleRider  ActorRole = "rider"
	RoleDriver ActorRole = "driver"
)

// Valid reports whether the role is one of the known actor roles.
func (role ActorRole) Valid() bool {
	return role == RoleRider || role == RoleDriver
}

// ----- DTOs for the Booking Service -----

// CreateBookingInput is the validated input required to create a booking.
type CreateBookingInput struct {
	RiderID          string
	VehicleType      booking.VehicleType
	PickupLatitude   float64
	PickupLongitude  float64
	PickupAddress    string
	DropoffLatitude  float64
	DropoffLongitude float64
	DropoffAddress   string
}

// CreateBookingResult is returned by BookingService.CreateBooking.
type CreateBookingResult struct {
	BookingID     string  `json:"booking_id"`
	BookingNumber string  `json:"booking_number"`
	Status        string  `json:"status"`
	EstimatedFare float64 `json:"estimated_fare"`
}

// AssignResult carries the mutated booking and the committed driver.
type AssignResult struct {
	Booking *booking.Booking `json:"booking"`
	Driver  *driver.Driver   `json:"driver"`
}

// CancelBookingInput identifies the booking and the actor requesting the
// cancellation; the actor must be the booking's rider or its driver.
type CancelBookingInput struct {
	BookingID string
	Reason    string
	ActorID   string
	ActorRole ActorRole
}

// ----- Booking Service Interface -----

// BookingService exposes the guarded booking lifecycle. Every mutation runs
// inside a distributed critical section keyed by the booking id.
type BookingService interface {
	CreateBooking(ctx context.Context, in CreateBookingInput) (CreateBookingResult, error)
	AssignDriver(ctx context.Context, bookingID string) (AssignResult, error)
	AcceptBooking(ctx context.Context, bookingID, driverID string) (*booking.Booking, error)
	CancelBooking(ctx context.Context, in CancelBookingInput) (*booking.Booking, error)
	CompleteRide(ctx context.Context, bookingID, driverID string, actualFare float64) (*booking.Booking, error)
	GetLockStatistics(ctx context.Context) ([]locking.ActiveLock, error)
}
