package access

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/obralink/obralink/internal/shared"
)

// RepositoryPort defines data access methods for access tokens.
type RepositoryPort interface {
	Insert(ctx context.Context, token AccessToken) error
	// FindActiveByToken resolves an active token to its row and investor.
	// Inactive or unknown tokens come back as ErrTokenInvalid.
	FindActiveByToken(ctx context.Context, token string) (*AccessToken, *Investor, error)
	TouchLastAccessed(ctx context.Context, id uuid.UUID, at time.Time) error
	Get(ctx context.Context, id uuid.UUID) (*AccessToken, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	// Swap revokes the old token and inserts the replacement in one
	// transaction, so there is no window where both or neither work.
	Swap(ctx context.Context, oldID uuid.UUID, replacement AccessToken) error
	ListByInvestor(ctx context.Context, investorID uuid.UUID) ([]AccessToken, error)
}

// Service issues, validates, revokes and refreshes investor access
// tokens. The clock is injectable so expiry is testable.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func newTokenValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("access: generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func (s *Service) mint(investorID uuid.UUID, expiresAt *time.Time) (*AccessToken, error) {
	value, err := newTokenValue()
	if err != nil {
		return nil, err
	}
	return &AccessToken{
		ID:         uuid.New(),
		Token:      value,
		InvestorID: investorID,
		ExpiresAt:  expiresAt,
		IsActive:   true,
		CreatedAt:  s.now(),
	}, nil
}

// Issue creates a token for an investor. A nil expiresInDays means the
// token never expires.
func (s *Service) Issue(ctx context.Context, investorID uuid.UUID, expiresInDays *int) (*AccessToken, error) {
	if expiresInDays != nil && *expiresInDays < 1 {
		return nil, fmt.Errorf("%w: expiry must be at least one day", shared.ErrValidation)
	}
	var expiresAt *time.Time
	if expiresInDays != nil {
		at := s.now().AddDate(0, 0, *expiresInDays)
		expiresAt = &at
	}
	token, err := s.mint(investorID, expiresAt)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, *token); err != nil {
		return nil, err
	}
	s.logger.Info("access token issued",
		slog.String("token_id", token.ID.String()),
		slog.String("investor_id", investorID.String()))
	return token, nil
}

// Validate resolves a token to its investor. Missing, expired and
// revoked tokens all come back as ErrTokenInvalid so the caller cannot
// tell them apart. A successful validation touches last_accessed_at.
func (s *Service) Validate(ctx context.Context, token string) (*Investor, error) {
	row, investor, err := s.repo.FindActiveByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if row.ExpiresAt != nil && s.now().After(*row.ExpiresAt) {
		return nil, ErrTokenInvalid
	}
	if err := s.repo.TouchLastAccessed(ctx, row.ID, s.now()); err != nil {
		return nil, err
	}
	return investor, nil
}

// Revoke deactivates a token. Revoking an already-revoked token is a
// conflict.
func (s *Service) Revoke(ctx context.Context, tokenID uuid.UUID) error {
	token, err := s.repo.Get(ctx, tokenID)
	if err != nil {
		return err
	}
	if !token.IsActive {
		return fmt.Errorf("access: token %s already revoked: %w", tokenID, shared.ErrConflict)
	}
	if err := s.repo.Revoke(ctx, tokenID); err != nil {
		return err
	}
	s.logger.Info("access token revoked", slog.String("token_id", tokenID.String()))
	return nil
}

// Refresh swaps a valid token for a fresh one carrying the remaining
// lifetime: at least one day if the old token had an expiry, unlimited
// if it had none. The swap is atomic, the old token dies exactly when
// the new one starts working.
func (s *Service) Refresh(ctx context.Context, oldToken string) (*AccessToken, error) {
	row, _, err := s.repo.FindActiveByToken(ctx, oldToken)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if row.ExpiresAt != nil && now.After(*row.ExpiresAt) {
		return nil, ErrTokenInvalid
	}

	var expiresAt *time.Time
	if row.ExpiresAt != nil {
		days := int(math.Ceil(row.ExpiresAt.Sub(now).Hours() / 24))
		if days < 1 {
			days = 1
		}
		at := now.AddDate(0, 0, days)
		expiresAt = &at
	}
	replacement, err := s.mint(row.InvestorID, expiresAt)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Swap(ctx, row.ID, *replacement); err != nil {
		return nil, err
	}
	s.logger.Info("access token refreshed",
		slog.String("old_token_id", row.ID.String()),
		slog.String("token_id", replacement.ID.String()))
	return replacement, nil
}

// ListByInvestor returns an investor's tokens, newest first.
func (s *Service) ListByInvestor(ctx context.Context, investorID uuid.UUID) ([]AccessToken, error) {
	return s.repo.ListByInvestor(ctx, investorID)
}
