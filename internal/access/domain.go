package access

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/obralink/obralink/internal/shared"
)

// AccessToken is a bearer credential granting an investor read-only
// access to their own positions via the portal magic link.
type AccessToken struct {
	ID             uuid.UUID  `json:"id"`
	Token          string     `json:"token"`
	InvestorID     uuid.UUID  `json:"investor_id"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	IsActive       bool       `json:"is_active"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Investor is the identity a valid token resolves to.
type Investor struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
}

// ErrTokenInvalid is the uniform outcome for a token that is missing,
// expired or revoked. Callers never learn which.
var ErrTokenInvalid = fmt.Errorf("access: token invalid: %w", shared.ErrUnauthorized)

// ErrTokenNotFound indicates a missing token row when addressed by id.
var ErrTokenNotFound = fmt.Errorf("access: token %w", shared.ErrNotFound)

// MagicLink renders the portal URL for a token.
func MagicLink(baseURL, token string) string {
	return fmt.Sprintf("%s/investor/%s", baseURL, token)
}
