package jwt

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// Claims defines our canonical JWT claims payload. Subject carries the actor
// id (rider or driver).
type Claims struct {
	Role ports.ActorRole `json:"role"` // actor role for RBAC (rider/driver)
	jwtlib.RegisteredClaims
}

// ensure Claims implements jwtlib.Claims interface
var _ jwtlib.Claims = (*Claims)(nil)

// NewActorClaims constructs end-user claims (rider/driver).
func NewActorClaims(actorID string, role ports.ActorRole, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		Role: role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   actorID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}
