// Package auth provides JWT-based authentication for the API. Token issuance
// for end users happens in the platform's identity service; this package
// validates bearer tokens and exposes the claims the handlers authorize on.
package auth

import "errors"

// Common authentication errors.
var (
	// ErrInvalidToken is returned when a token is malformed or its signature
	// does not verify.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when a token's expiry has passed.
	ErrExpiredToken = errors.New("token has expired")

	// ErrTokenNotYetValid is returned when a token's not-before is in the future.
	ErrTokenNotYetValid = errors.New("token not yet valid")
)
