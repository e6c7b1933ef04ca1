package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/jwt"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/logger"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// BookingHTTPHandler adapts HTTP requests to the BookingService.
type BookingHTTPHandler struct {
	svc    ports.BookingService
	logger *logger.Logger
	auth   *jwt.Manager
}

// NewBookingHTTPHandler wires an HTTP handler around the BookingService.
func NewBookingHTTPHandler(svc ports.BookingService, log *logger.Logger, auth *jwt.Manager) *BookingHTTPHandler {
	return &BookingHTTPHandler{svc: svc, logger: log, auth: auth}
}

// RegisterRoutes mounts booking endpoints on the provided mux.
func (handler *BookingHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /bookings",
		jwt.AuthMiddlewareFunc(handler.auth, ports.RoleRider)(handler.handleCreateBooking),
	)
	mux.HandleFunc("POST /bookings/{booking_id}/assign",
		jwt.AuthMiddlewareFunc(handler.auth, ports.RoleRider)(handler.handleAssignDriver),
	)
	mux.HandleFunc("POST /bookings/{booking_id}/accept",
		jwt.AuthMiddlewareFunc(handler.auth, ports.RoleDriver)(handler.handleAcceptBooking),
	)
	mux.HandleFunc("POST /bookings/{booking_id}/cancel",
		jwt.AuthMiddlewareFunc(handler.auth, ports.RoleRider, ports.RoleDriver)(handler.handleCancelBooking),
	)
	mux.HandleFunc("POST /bookings/{booking_id}/complete",
		jwt.AuthMiddlewareFunc(handler.auth, ports.RoleDriver)(handler.handleCompleteRide),
	)

	mux.HandleFunc("GET /locks", handler.handleListLocks)
	mux.HandleFunc("GET /bookings/health", handler.handleHealth)
	mux.HandleFunc("POST /tokens", handler.handleCreateToken)
}

func (handler *BookingHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	handler.jsonResponse(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

// ----- token issuing (development convenience) -----

type TokenRequest struct {
	ActorID string          `json:"actor_id"`
	Role    ports.ActorRole `json:"role"`
}

type TokenResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	ActorID   string          `json:"actor_id"`
	Role      ports.ActorRole `json:"role"`
}

func (handler *BookingHTTPHandler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if strings.TrimSpace(req.ActorID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "actor_id is required", nil)
		return
	}

	tokenString, claims, err := handler.auth.IssueActorToken(req.ActorID, req.Role)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Failed to generate token", err)
		return
	}

	handler.logger.Info(ctx, "token_generated", "JWT token generated successfully",
		map[string]any{"actor_id": req.ActorID, "role": string(req.Role)})

	handler.jsonResponse(ctx, w, http.StatusCreated, TokenResponse{
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt.Time,
		ActorID:   req.ActorID,
		Role:      req.Role,
	})
}

// ----- general helpers -----

// serviceError maps the service error taxonomy onto HTTP status codes.
func (handler *BookingHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, ports.ErrNotFound):
		handler.httpError(ctx, w, http.StatusNotFound, err.Error(), err)
	case errors.Is(err, ports.ErrUnauthorized):
		handler.httpError(ctx, w, http.StatusForbidden, err.Error(), err)
	case errors.Is(err, ports.ErrLockContention):
		w.Header().Set("Retry-After", "1")
		handler.httpError(ctx, w, http.StatusConflict, err.Error(), err)
	case errors.Is(err, ports.ErrConflict):
		handler.httpError(ctx, w, http.StatusConflict, err.Error(), err)
	case errors.Is(err, ports.ErrNoDriversAvailable), errors.Is(err, ports.ErrStoreUnavailable):
		handler.httpError(ctx, w, http.StatusServiceUnavailable, err.Error(), err)
	case errors.As(err, &pgErr):
		handler.httpError(ctx, w, http.StatusInternalServerError, "database error", err)
	default:
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
	}
}

func (handler *BookingHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *BookingHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	} else if status == http.StatusUnsupportedMediaType {
		action = "unsupported_media_type"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *BookingHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// bookingIDFromPath fetches and checks the booking_id path segment.
func (handler *BookingHTTPHandler) bookingIDFromPath(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, context.Context, bool) {
	bookingID := strings.TrimSpace(r.PathValue("booking_id"))
	if bookingID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "booking_id is required", errors.New("missing booking_id"))
		return "", ctx, false
	}
	return bookingID, handler.logger.WithBookingID(ctx, bookingID), true
}

// decodeStrict decodes a JSON body with unknown fields rejected and size capped.
func (handler *BookingHTTPHandler) decodeStrict(ctx context.Context, w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return false
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return false
	}
	return true
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
