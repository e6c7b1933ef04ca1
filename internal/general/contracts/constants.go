package contracts

// Exchanges
const (
	ExchangeBookingTopic = "booking_topic"
	ExchangeDriverTopic  = "driver_topic"
)

// Queues
const (
	QueueBookingStatus = "booking_status"
	QueueDriverStatus  = "driver_status"
)

// Routing patterns
const (
	RouteBookingStatusPrefix = "booking.status." // {status}
	RouteDriverStatusPrefix  = "driver.status."  // {driver_id}
)
