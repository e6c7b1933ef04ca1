package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/booking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/locking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// generateBookingNumber returns an ID like: BOOK_YYYYMMDD_HHMMSS_XXX
// where XXX is a millisecond fragment to reduce collisions.
func generateBookingNumber() string {
	now := time.Now().UTC()
	return fmt.Sprintf("BOOK_%04d%02d%02d_%02d%02d%02d_%03d",
		now.Year(), int(now.Month()), now.Day(),
		now.Hour(), now.Minute(), now.Second(),
		now.Nanosecond()/1e6, // ms
	)
}

// generateCorrelationID creates a simple correlation ID for tracing requests.
func generateCorrelationID() string {
	var b [3]byte // 6 hex chars
	_, _ = rand.Read(b[:])
	ts := time.Now().UTC().Format("20060102T150405")
	return "req_" + ts + "_" + hex.EncodeToString(b[:])
}

// mapAcquireErr translates lock-layer failures into the service error taxonomy.
func mapAcquireErr(err error, resource string) error {
	if errors.Is(err, locking.ErrContention) {
		return fmt.Errorf("%s: %w", resource, ports.ErrLockContention)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("lock store for %s: %w", resource, ports.ErrStoreUnavailable)
}

// publishStatus sends the transition notification. Best-effort: failures are
// logged and swallowed so the committed state change is never rolled back.
func (service *bookingService) publishStatus(ctx context.Context, b *booking.Booking, correlationID string) {
	if err := service.sink.BookingStatusChanged(ctx, b, correlationID); err != nil {
		service.logger.Error(ctx, "booking_status_publish_failed", "Failed to publish booking status", err, map[string]any{
			"booking_id": b.ID,
			"status":     b.Status.String(),
			"request_id": correlationID,
		})
	}
}
