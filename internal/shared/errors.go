package shared

import "errors"

var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates invalid input; nothing was written.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates the operation lost against an earlier write
	// (installment already paid, token already revoked).
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a missing or invalid session.
	ErrUnauthorized = errors.New("unauthorized")
)

// UserSafeMessage returns an error string suitable for API consumers.
// Validation, conflict and not-found errors carry their own message;
// anything else is collapsed so internal details never leak.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound):
		return err.Error()
	default:
		return "internal error"
	}
}
