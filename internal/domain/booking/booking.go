package booking

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Booking is the domain entity corresponding to the `bookings` table.
type Booking struct {
	// Identity & audit
	ID            string
	BookingNumber string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Actors
	RiderID  string
	DriverID *string // nil until assigned

	// Core state
	VehicleType VehicleType
	Status      Status

	// Coordinates
	PickupLatitude   float64
	PickupLongitude  float64
	PickupAddress    string
	DropoffLatitude  float64
	DropoffLongitude float64
	DropoffAddress   string

	// Fares
	EstimatedFare float64
	ActualFare    *float64 // nil until completed

	// Lifecycle timestamps
	RequestedAt time.Time
	AssignedAt  *time.Time
	AcceptedAt  *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time

	// Additional info
	CancellationReason *string
}

var (
	ErrRiderRequired           = errors.New("rider id is required")
	ErrBookingNumberRequired   = errors.New("booking number is required")
	ErrDriverRequired          = errors.New("driver id is required")
	ErrAlreadyAssigned         = errors.New("driver already assigned")
	ErrNoDriverAssigned        = errors.New("no driver assigned")
	ErrDriverMismatch          = errors.New("driver does not match assigned driver")
	ErrInvalidStatusTransition = errors.New("invalid booking status transition")
	ErrNegativeFare            = errors.New("fare cannot be negative")
)

// NewBooking creates a new booking in PENDING state.
func NewBooking(bookingNumber, riderID string, vt VehicleType, pickupLat, pickupLng float64, pickupAddr string, dropoffLat, dropoffLng float64, dropoffAddr string) (*Booking, error) {
	if bookingNumber = strings.TrimSpace(bookingNumber); bookingNumber == "" {
		return nil, ErrBookingNumberRequired
	}
	if riderID = strings.TrimSpace(riderID); riderID == "" {
		return nil, ErrRiderRequired
	}
	if !vt.Valid() {
		return nil, ErrInvalidVehicleType
	}

	now := time.Now().UTC()
	dst := HaversineKM(pickupLat, pickupLng, dropoffLat, dropoffLng)

	return &Booking{
		BookingNumber:    bookingNumber,
		CreatedAt:        now,
		UpdatedAt:        now,
		RiderID:          riderID,
		VehicleType:      vt,
		Status:           StatusPending,
		PickupLatitude:   pickupLat,
		PickupLongitude:  pickupLng,
		PickupAddress:    strings.TrimSpace(pickupAddr),
		DropoffLatitude:  dropoffLat,
		DropoffLongitude: dropoffLng,
		DropoffAddress:   strings.TrimSpace(dropoffAddr),
		EstimatedFare:    EstimateFare(vt, dst),
		RequestedAt:      now,
	}, nil
}

// AssignDriver sets the driver and moves PENDING -> ASSIGNED.
func (b *Booking) AssignDriver(driverID string) error {
	if driverID == "" {
		return ErrDriverRequired
	}
	if b.DriverID != nil && *b.DriverID != "" {
		return ErrAlreadyAssigned
	}
	if b.Status != StatusPending {
		return ErrInvalidStatusTransition
	}

	b.DriverID = &driverID
	now := time.Now().UTC()
	b.AssignedAt = &now
	b.setStatus(StatusAssigned)
	return nil
}

// Accept transitions ASSIGNED -> ACCEPTED; only the assigned driver may accept.
func (b *Booking) Accept(driverID string) error {
	if b.DriverID == nil || *b.DriverID == "" {
		return ErrNoDriverAssigned
	}
	if *b.DriverID != driverID {
		return ErrDriverMismatch
	}
	if b.Status != StatusAssigned {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	b.AcceptedAt = &now
	b.setStatus(StatusAccepted)
	return nil
}

// Complete transitions ACCEPTED -> COMPLETED and records the actual fare.
func (b *Booking) Complete(driverID string, actualFare float64) error {
	if b.DriverID == nil || *b.DriverID == "" {
		return ErrNoDriverAssigned
	}
	if *b.DriverID != driverID {
		return ErrDriverMismatch
	}
	if b.Status != StatusAccepted {
		return ErrInvalidStatusTransition
	}
	if actualFare < 0 {
		return ErrNegativeFare
	}
	now := time.Now().UTC()
	b.CompletedAt = &now
	b.ActualFare = &actualFare
	b.setStatus(StatusCompleted)
	return nil
}

// Cancel transitions to CANCELLED from any non-terminal state.
func (b *Booking) Cancel(reason string) error {
	if b.Status.Terminal() {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	b.CancelledAt = &now
	if rs := strings.TrimSpace(reason); rs != "" {
		b.CancellationReason = &rs
	}
	b.setStatus(StatusCancelled)
	return nil
}

// HaversineKM returns the great-circle distance between two points in kilometers.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0 // Earth radius in km
	a1 := lat1 * math.Pi / 180
	a2 := lat2 * math.Pi / 180
	da := (lat2 - lat1) * math.Pi / 180
	db := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(da/2)*math.Sin(da/2) +
		math.Cos(a1)*math.Cos(a2)*math.Sin(db/2)*math.Sin(db/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// EstimateFare returns base + (distance_km * rate_per_km) for the vehicle type.
func EstimateFare(vt VehicleType, distanceKM float64) float64 {
	type rates struct {
		base  float64
		perKM float64
	}

	var rate rates
	switch vt {
	case VehicleEconomy:
		rate = rates{base: 500, perKM: 100}
	case VehiclePremium:
		rate = rates{base: 800, perKM: 120}
	case VehicleXL:
		rate = rates{base: 1000, perKM: 150}
	default:
		rate = rates{base: 500, perKM: 100} // default to ECONOMY if something slips through
	}

	if distanceKM < 0 {
		distanceKM = 0
	}

	return rate.base + rate.perKM*distanceKM
}

// ----- internal helpers -----

func (b *Booking) setStatus(status Status) {
	b.Status = status
	b.touch()
}

func (b *Booking) touch() {
	b.UpdatedAt = time.Now().UTC()
}
