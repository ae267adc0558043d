package shared

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates login failure. Unknown users and wrong
	// passwords both map here.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateUsername occurs when registering a taken username.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrMissingToken occurs when a protected request carries no bearer token.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidOrExpiredToken covers bad signatures, malformed payloads and expiry.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrUnauthorized indicates no authenticated principal is present.
	ErrUnauthorized = errors.New("not authenticated")
	// ErrForbidden indicates an authenticated principal lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidRefreshToken covers expired, revoked and forged refresh tokens.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrRateLimited occurs when a client exceeds its attempt budget.
	ErrRateLimited = errors.New("too many requests, try again later")
	// ErrStorage wraps failures of the backing record store.
	ErrStorage = errors.New("storage failure")
)

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError from field messages.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
