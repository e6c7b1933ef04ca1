package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/jwt"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// --- Request DTO (HTTP boundary) ---

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

// --- Handler: POST /bookings/{booking_id}/cancel ---

func (handler *BookingHTTPHandler) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	bookingID, ctx, ok := handler.bookingIDFromPath(ctx, w, r)
	if !ok {
		return
	}

	var req cancelBookingRequest
	if !handler.decodeStrict(ctx, w, r, 256<<10, &req) {
		return
	}

	// the acting rider or driver comes from the token
	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	in := ports.CancelBookingInput{
		BookingID: bookingID,
		Reason:    strings.TrimSpace(req.Reason),
		ActorID:   strings.TrimSpace(claims.Subject),
		ActorRole: claims.Role,
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.CancelBooking(ctxWithTimeout, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
