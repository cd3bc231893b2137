// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates the requested entity does not exist. The emergency
	// path returns it for unknown codes and for ineligible records alike so
	// anonymous callers cannot enumerate patients.
	ErrNotFound = errors.New("not found")

	// ErrExpired indicates a consent link past its expiry time.
	ErrExpired = errors.New("consent link expired")

	// ErrRevoked indicates a consent link explicitly revoked by its owner.
	ErrRevoked = errors.New("consent link revoked")

	// ErrForbidden indicates an ownership mismatch or a privileged action
	// attempted by the wrong actor.
	ErrForbidden = errors.New("forbidden")

	// ErrLocked indicates a mutation attempt on a clinician-locked fact.
	ErrLocked = errors.New("fact is locked")

	// ErrInvalidDuration indicates a consent link duration outside the allow list.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrInvalidMode indicates an unknown sharing mode.
	ErrInvalidMode = errors.New("invalid sharing mode")

	// ErrInvalidPasscode indicates a failed emergency override passcode check.
	ErrInvalidPasscode = errors.New("invalid passcode")

	// ErrRateLimited indicates a temporary block after repeated failed attempts.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates a malformed or incomplete request body.
	ErrValidation = errors.New("validation failed")
)

// HTTPStatus maps a sentinel to the HTTP status handlers should return.
// Unrecognized errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrExpired), errors.Is(err, ErrRevoked):
		return http.StatusGone
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrLocked):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidDuration), errors.Is(err, ErrInvalidMode),
		errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidPasscode):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
