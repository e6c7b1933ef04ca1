package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/booking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/jwt"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// --- Request DTO (HTTP boundary) ---

type createBookingRequest struct {
	RiderID          string  `json:"rider_id"`
	PickupLatitude   float64 `json:"pickup_latitude"`
	PickupLongitude  float64 `json:"pickup_longitude"`
	PickupAddress    string  `json:"pickup_address"`
	DropoffLatitude  float64 `json:"dropoff_latitude"`
	DropoffLongitude float64 `json:"dropoff_longitude"`
	DropoffAddress   string  `json:"dropoff_address"`
	VehicleType      string  `json:"vehicle_type"` // ECONOMY | PREMIUM | XL
}

// ----- Handler: POST /bookings -----

func (handler *BookingHTTPHandler) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req createBookingRequest
	if !handler.decodeStrict(ctx, w, r, 1<<20, &req) {
		return
	}

	// obtain the JWT claims
	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	// fill or verify rider_id against the token subject
	sub := strings.TrimSpace(claims.Subject)
	if strings.TrimSpace(req.RiderID) == "" {
		req.RiderID = sub
	} else if req.RiderID != sub {
		handler.httpError(ctx, w, http.StatusForbidden, "rider_id does not match token subject", errors.New("rider/token mismatch"))
		return
	}

	vt, err := booking.ParseVehicleType(req.VehicleType)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "vehicle_type must be one of: ECONOMY, PREMIUM, XL", err)
		return
	}

	in := ports.CreateBookingInput{
		RiderID:          strings.TrimSpace(req.RiderID),
		VehicleType:      vt,
		PickupLatitude:   req.PickupLatitude,
		PickupLongitude:  req.PickupLongitude,
		PickupAddress:    strings.TrimSpace(req.PickupAddress),
		DropoffLatitude:  req.DropoffLatitude,
		DropoffLongitude: req.DropoffLongitude,
		DropoffAddress:   strings.TrimSpace(req.DropoffAddress),
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.CreateBooking(ctxWithTimeout, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}
	ctxWithTimeout = handler.logger.WithBookingID(ctxWithTimeout, res.BookingID)

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, res)
}
