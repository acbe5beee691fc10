package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownUser        = fmt.Errorf("%w: unknown user", ErrInvalidCredentials)
	ErrWrongPassword      = fmt.Errorf("%w: wrong password", ErrInvalidCredentials)

	// ErrInvalidOrExpiredRefreshToken covers not found, expired and revoked
	// alike. Callers must not be able to tell them apart.
	ErrInvalidOrExpiredRefreshToken = errors.New("invalid or expired refresh token")

	ErrInvalidOrExpiredAccessToken = errors.New("invalid or expired access token")
	ErrAccessTokenDenylisted       = fmt.Errorf("%w: token revoked", ErrInvalidOrExpiredAccessToken)

	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError carries per-field messages for malformed input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newFieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
