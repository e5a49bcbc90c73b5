package shared

import "errors"

var (
	// ErrNotFound indicates a structurally missing account, role or permission.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation, typically email or phone.
	ErrConflict = errors.New("already in use")
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrImmutableRole indicates a mutation attempt on an immutable role.
	ErrImmutableRole = errors.New("role is immutable")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage maps internal errors to a message suitable for API clients.
// Anything outside the known taxonomy collapses to a generic message so that
// storage details never leak.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "resource not found"
	case errors.Is(err, ErrConflict):
		return "email or phone already in use"
	case errors.Is(err, ErrValidation):
		return "invalid request"
	case errors.Is(err, ErrImmutableRole):
		return "role cannot be modified"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid credentials"
	default:
		return "internal error"
	}
}
