package handler

import (
	"context"
	"net/http"
	"time"
)

// --- Handler: POST /bookings/{booking_id}/assign ---

func (handler *BookingHTTPHandler) handleAssignDriver(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	bookingID, ctx, ok := handler.bookingIDFromPath(ctx, w, r)
	if !ok {
		return
	}

	// matching may walk several candidates; allow more headroom than the other ops
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := handler.svc.AssignDriver(ctxWithTimeout, bookingID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
