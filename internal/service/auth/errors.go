package auth

import "errors"

// Sentinel errors returned by ValidateToken. The API layer maps each of
// these to a 401 response.
var (
	// ErrInvalidToken indicates the token is malformed or its signature
	// does not verify.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token's exp claim is in the past.
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token's nbf claim is in the future.
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrUnknownRole indicates the token carries a role claim this service
	// does not recognize.
	ErrUnknownRole = errors.New("unknown role claim")
)
