package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/jwt"
)

// --- Request DTO (HTTP boundary) ---

type completeRideRequest struct {
	ActualFare float64 `json:"actual_fare"`
}

// --- Handler: POST /bookings/{booking_id}/complete ---

func (handler *BookingHTTPHandler) handleCompleteRide(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	bookingID, ctx, ok := handler.bookingIDFromPath(ctx, w, r)
	if !ok {
		return
	}

	var req completeRideRequest
	if !handler.decodeStrict(ctx, w, r, 256<<10, &req) {
		return
	}
	if req.ActualFare < 0 {
		handler.httpError(ctx, w, http.StatusBadRequest, "actual_fare cannot be negative", nil)
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

	res, err := handler.svc.CompleteRide(ctxWithTimeout, bookingID, driverID, req.ActualFare)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
