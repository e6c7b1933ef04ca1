package contracts

import "time"

// BookingStatusMessage is published after each successful booking transition.
// Routing key: "booking.status.{status}" on ExchangeBookingTopic.
type BookingStatusMessage struct {
	BookingID     string    `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	Status        string    `json:"status"` // PENDING|ASSIGNED|ACCEPTED|COMPLETED|CANCELLED
	Timestamp     time.Time `json:"timestamp"`
	DriverID      string    `json:"driver_id,omitempty"`
	ActualFare    *float64  `json:"actual_fare,omitempty"`
	Envelope
}
