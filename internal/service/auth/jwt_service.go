package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RoleSuperadmin marks tokens allowed to manage model groups, backends, and
// configuration bundles.
const RoleSuperadmin = "superadmin"

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed JWT access token for the given user and
	// role. Returns the token string or an error if signing fails.
	GenerateToken(ctx context.Context, userID uuid.UUID, role string) (string, error)

	// ValidateToken validates the provided token string and extracts the
	// claims. Returns an error if validation fails (expired, invalid
	// signature, malformed).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims carries the validated identity the API authorizes on.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// Role is the user's platform role. Admin endpoints require RoleSuperadmin.
	Role string `json:"role,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}

// IsSuperadmin reports whether the claims grant admin access.
func (c *Claims) IsSuperadmin() bool {
	return c.Role == RoleSuperadmin
}
