// Package common defines shared constants and sentinel errors used across
// the gophmarks client layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Gateway-level errors.
	ErrUnavailable  = errors.New("backend unavailable")
	ErrUnauthorized = errors.New("unauthorized")

	// Command validation.
	ErrValidation = errors.New("validation error")

	// The external sign-in redirect could not be started.
	ErrAuthInitiation = errors.New("sign-in initiation failed")

	// Session errors.
	ErrNoSession    = errors.New("no active session")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
