package driver

import (
	"errors"
	"strings"
	"time"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/booking"
)

// Driver is the domain entity corresponding to the `drivers` table.
type Driver struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Required business fields
	LicenseNumber string
	VehicleType   booking.VehicleType

	// KPIs
	Rating        float64
	TotalRides    int
	TotalEarnings float64

	// Availability flag; mutated only in lockstep with booking transitions
	Status Status
}

var (
	ErrIDRequired          = errors.New("driver id is required")
	ErrLicenseRequired     = errors.New("license number is required")
	ErrInvalidStatusSwitch = errors.New("invalid driver status transition")
	ErrNegativeTotals      = errors.New("totals cannot be negative")
)

// NewDriver creates a new Driver entity with sane defaults.
func NewDriver(id, licenseNumber string, vehicleType booking.VehicleType) (*Driver, error) {
	if id = strings.TrimSpace(id); id == "" {
		return nil, ErrIDRequired
	}
	if licenseNumber = strings.TrimSpace(licenseNumber); licenseNumber == "" {
		return nil, ErrLicenseRequired
	}
	if !vehicleType.Valid() {
		return nil, booking.ErrInvalidVehicleType
	}

	now := time.Now().UTC()
	return &Driver{
		ID:            id,
		CreatedAt:     now,
		UpdatedAt:     now,
		LicenseNumber: licenseNumber,
		VehicleType:   vehicleType,
		Rating:        5.0,
		Status:        StatusOffline,
	}, nil
}

// ApplyEarnings increments counters after a booking settlement.
func (d *Driver) ApplyEarnings(ridesDelta int, earningsDelta float64) error {
	if ridesDelta < 0 || earningsDelta < 0 {
		return ErrNegativeTotals
	}
	d.TotalRides += ridesDelta
	d.TotalEarnings += earningsDelta
	d.touch()
	return nil
}

// ---- State transitions (minimal, explicit) ----

// MarkOnline transitions OFFLINE/BUSY -> ONLINE.
func (d *Driver) MarkOnline() error {
	switch d.Status {
	case StatusOffline, StatusBusy:
		d.setStatus(StatusOnline)
		return nil
	default:
		return ErrInvalidStatusSwitch
	}
}

// MarkBusy transitions ONLINE -> BUSY when a booking commits to this driver.
func (d *Driver) MarkBusy() error {
	if d.Status != StatusOnline {
		return ErrInvalidStatusSwitch
	}
	d.setStatus(StatusBusy)
	return nil
}

// GoOffline transitions ONLINE/BUSY -> OFFLINE.
func (d *Driver) GoOffline() error {
	switch d.Status {
	case StatusOnline, StatusBusy:
		d.setStatus(StatusOffline)
		return nil
	default:
		return ErrInvalidStatusSwitch
	}
}

// ---- internal helpers ----

func (d *Driver) setStatus(status Status) {
	d.Status = status
	d.touch()
}

func (d *Driver) touch() {
	d.UpdatedAt = time.Now().UTC()
}
