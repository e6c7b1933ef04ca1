package contracts

import "time"

// DriverStatusMessage reports a driver availability change. Published by the
// driver app gateway and consumed here to keep the drivers table current.
// Routing key: "driver.status.{driver_id}" on ExchangeDriverTopic.
type DriverStatusMessage struct {
	DriverID  string    `json:"driver_id"`
	Status    string    `json:"status"` // OFFLINE|ONLINE|BUSY
	BookingID string    `json:"booking_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Envelope
}
