package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/jwt"
)

// --- Handler: POST /bookings/{booking_id}/accept ---

func (handler *BookingHTTPHandler) handleAcceptBooking(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	bookingID, ctx, ok := handler.bookingIDFromPath(ctx, w, r)
	if !ok {
		return
	}

	// the acting driver comes from the token, never from the body
	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}
	driverID := strings.TrimSpace(claims.Subject)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.AcceptBooking(ctxWithTimeout, bookingID, driverID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
