package cli

import (
	"fmt"
	"time"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/jwt"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// GenerateActorToken mints a short-lived JWT for a seeded rider or driver.
// It uses jwt.Manager and returns the raw token plus the claims.
//
// Typical use (dev-only):
//
//	token, _, err := cli.GenerateActorToken(secret,
//	    "550e8400-e29b-41d4-a716-446655440001", "rider")
//
// Keep this package dev/internal only. Do not call it from production code paths.
func GenerateActorToken(secret string, actorID string, roleStr string) (string, jwt.Claims, error) {
	role := ports.ActorRole(roleStr)
	if !role.Valid() {
		return "", jwt.Claims{}, fmt.Errorf("invalid role %q: must be rider or driver", roleStr)
	}

	mgr := jwt.NewManager(secret, 2*time.Hour)

	token, claims, err := mgr.IssueActorToken(actorID, role)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("issue token: %w", err)
	}

	return token, *claims, nil
}
