package rabbitmq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/booking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/contracts"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// StatusSink publishes booking transition notifications to the booking topic
// exchange. Delivery is best-effort; callers treat failures as non-fatal.
type StatusSink struct {
	client   *Client
	producer string
}

// NewStatusSink constructs a StatusSink publishing on behalf of producer.
func NewStatusSink(client *Client, producer string) ports.EventSink {
	return &StatusSink{client: client, producer: producer}
}

// BookingStatusChanged publishes a BookingStatusMessage with routing key
// "booking.status.{status}".
func (sink *StatusSink) BookingStatusChanged(ctx context.Context, b *booking.Booking, correlationID string) error {
	msg := contracts.BookingStatusMessage{
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		Status:        b.Status.String(),
		Timestamp:     b.UpdatedAt,
		ActualFare:    b.ActualFare,
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      sink.producer,
			SentAt:        time.Now().UTC(),
		},
	}
	if b.DriverID != nil {
		msg.DriverID = *b.DriverID
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	routingKey := contracts.RouteBookingStatusPrefix + b.Status.String()
	return sink.client.PublishMessage(contracts.ExchangeBookingTopic, routingKey, body)
}
