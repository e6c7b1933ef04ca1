package driver

import (
	"errors"
	"strings"
)

// Status is the driver availability flag as stored in the `drivers` table.
// A driver is BUSY if and only if it is the assigned or accepted driver of
// some non-terminal booking.
type Status string

const (
	StatusOffline Status = "OFFLINE"
	StatusOnline  Status = "ONLINE"
	StatusBusy    Status = "BUSY"
)

var ErrInvalidDriverStatus = errors.New("invalid driver status")

// ParseStatus normalizes (uppercases+trims) and validates a driver status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidDriverStatus
}

// Valid reports whether the driver status is one of the allowed constants.
func (status Status) Valid() bool {
	switch status {
	case StatusOffline, StatusOnline, StatusBusy:
		return true
	default:
		return false
	}
}

// Available indicates the driver can be offered a new booking.
func (status Status) Available() bool {
	return status == StatusOnline
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}
