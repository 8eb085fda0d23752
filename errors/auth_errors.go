package errors

import (
	"errors"
	"fmt"
)

// AuthError represents a client-visible authentication failure with a stable
// machine-readable code and a human-readable description.
type AuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is reports whether target carries the same error code, so callers can
// branch with errors.Is against the exported sentinels below.
func (e *AuthError) Is(target error) bool {
	var authErr *AuthError
	if !errors.As(target, &authErr) {
		return false
	}
	return e.Code == authErr.Code
}

// Error codes surfaced by the session manager and API client.
const (
	RateLimited        = "rate_limited"
	InvalidCredentials = "invalid_credentials"
	ValidationFailed   = "validation_failed"
	NotAuthenticated   = "not_authenticated"
	RequestFailed      = "request_failed"
	CorruptedState     = "corrupted_state"
)

// Sentinels for errors.Is matching. Compare by code only.
var (
	ErrRateLimited        = &AuthError{Code: RateLimited}
	ErrInvalidCredentials = &AuthError{Code: InvalidCredentials}
	ErrValidationFailed   = &AuthError{Code: ValidationFailed}
	ErrNotAuthenticated   = &AuthError{Code: NotAuthenticated}
	ErrRequestFailed      = &AuthError{Code: RequestFailed}
	ErrCorruptedState     = &AuthError{Code: CorruptedState}
)

// Common error constructors
func NewRateLimited(description string) *AuthError {
	return &AuthError{
		Code:        RateLimited,
		Description: description,
	}
}

func NewInvalidCredentials(description string) *AuthError {
	return &AuthError{
		Code:        InvalidCredentials,
		Description: description,
	}
}

func NewValidationFailed(description string) *AuthError {
	return &AuthError{
		Code:        ValidationFailed,
		Description: description,
	}
}

func NewNotAuthenticated(description string) *AuthError {
	return &AuthError{
		Code:        NotAuthenticated,
		Description: description,
	}
}

func NewRequestFailed(description string) *AuthError {
	return &AuthError{
		Code:        RequestFailed,
		Description: description,
	}
}

func NewCorruptedState(description string) *AuthError {
	return &AuthError{
		Code:        CorruptedState,
		Description: description,
	}
}
