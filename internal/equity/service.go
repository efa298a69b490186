package equity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/shared"
	"github.com/obralink/obralink/internal/treasury"
)

// ShareTx is the set of share operations available under a project's
// allocation lock.
type ShareTx interface {
	SumActiveShares(ctx context.Context, projectID uuid.UUID, exclude *uuid.UUID) (decimal.Decimal, error)
	Insert(ctx context.Context, in ShareInput) (*ProjectInvestor, error)
	Get(ctx context.Context, id uuid.UUID) (*ProjectInvestor, error)
	UpdatePercentage(ctx context.Context, id uuid.UUID, pct decimal.Decimal) (*ProjectInvestor, error)
	SetStatus(ctx context.Context, id uuid.UUID, status ShareStatus) error
}

// RepositoryPort defines data access methods for equity shares.
type RepositoryPort interface {
	// WithProjectLock serializes fn against every other allocation for
	// the same project; the read-validate-write sequence inside is the
	// check-then-act race the cap depends on.
	WithProjectLock(ctx context.Context, projectID uuid.UUID, fn func(ShareTx) error) error
	Get(ctx context.Context, id uuid.UUID) (*ProjectInvestor, error)
	ListActiveByProject(ctx context.Context, projectID uuid.UUID) ([]ProjectInvestor, error)
	SumActiveShares(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error)
	InvestedTotals(ctx context.Context, projectID uuid.UUID) (*InvestedTotals, error)
	ListPositions(ctx context.Context, investorID uuid.UUID) ([]Position, error)
}

// ContributionRecorder records cash contributions in the ledger.
type ContributionRecorder interface {
	RecordInvestorContribution(ctx context.Context, projectID, investorID uuid.UUID, amount decimal.Decimal, currency shared.Currency, note string) (*treasury.ContributionResult, error)
}

// Service allocates and maintains investor equity shares, holding the
// project-wide Σshares ≤ 100% invariant.
type Service struct {
	repo          RepositoryPort
	contributions ContributionRecorder
	logger        *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, contributions ContributionRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, contributions: contributions, logger: logger}
}

// AddInvestorResult reports a persisted share plus the ledger entries a
// cash contribution produced. ContributionWarning is set when the share
// persisted but recording the cash movement failed; the share stands and
// the ledger entry is left for manual reconciliation.
type AddInvestorResult struct {
	Share               ProjectInvestor              `json:"share"`
	Contribution        *treasury.ContributionResult `json:"contribution,omitempty"`
	ContributionWarning string                       `json:"contribution_warning,omitempty"`
}

func validatePercentage(pct decimal.Decimal) error {
	pct = shared.Round2(pct)
	if !pct.IsPositive() || pct.GreaterThan(shared.Hundred) {
		return fmt.Errorf("%w: percentage share must be in (0, 100]", shared.ErrValidation)
	}
	return nil
}

// AddShare validates and persists a new investor share, then records the
// ledger contribution for cash investments.
func (s *Service) AddShare(ctx context.Context, in ShareInput) (*AddInvestorResult, error) {
	if !in.InvestmentType.Valid() {
		return nil, fmt.Errorf("%w: investment type %q", shared.ErrValidation, in.InvestmentType)
	}
	if err := validatePercentage(in.PercentageShare); err != nil {
		return nil, err
	}
	in.PercentageShare = shared.Round2(in.PercentageShare)
	if in.InvestmentType.IsCash() {
		if in.Amount == nil || !in.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: cash investments require a positive amount", shared.ErrValidation)
		}
	} else if in.Amount != nil {
		return nil, fmt.Errorf("%w: non-cash investments carry an estimated value, not an amount", shared.ErrValidation)
	}

	var share *ProjectInvestor
	err := s.repo.WithProjectLock(ctx, in.ProjectID, func(tx ShareTx) error {
		total, err := tx.SumActiveShares(ctx, in.ProjectID, nil)
		if err != nil {
			return err
		}
		if total.Add(in.PercentageShare).GreaterThan(shared.Hundred) {
			return &PercentageExceededError{CurrentTotal: total, Requested: in.PercentageShare}
		}
		share, err = tx.Insert(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &AddInvestorResult{Share: *share}
	if in.InvestmentType.IsCash() {
		contribution, err := s.contributions.RecordInvestorContribution(ctx, in.ProjectID, in.InvestorID,
			*in.Amount, in.InvestmentType.CashCurrency(), in.Note)
		if err != nil {
			s.logger.Warn("share persisted but cash contribution failed",
				slog.String("project_id", in.ProjectID.String()),
				slog.String("investor_id", in.InvestorID.String()),
				slog.Any("error", err))
			result.ContributionWarning = shared.UserSafeMessage(err)
		} else {
			result.Contribution = contribution
		}
	}
	return result, nil
}

// UpdateShare changes an active share's percentage, revalidating the cap
// with the share's own current value excluded from the total.
func (s *Service) UpdateShare(ctx context.Context, shareID uuid.UUID, newPercentage decimal.Decimal) (*ProjectInvestor, error) {
	if err := validatePercentage(newPercentage); err != nil {
		return nil, err
	}
	newPercentage = shared.Round2(newPercentage)

	existing, err := s.repo.Get(ctx, shareID)
	if err != nil {
		return nil, err
	}

	var updated *ProjectInvestor
	err = s.repo.WithProjectLock(ctx, existing.ProjectID, func(tx ShareTx) error {
		share, err := tx.Get(ctx, shareID)
		if err != nil {
			return err
		}
		if share.Status != ShareActive {
			return fmt.Errorf("equity: share %s is removed: %w", shareID, shared.ErrConflict)
		}
		total, err := tx.SumActiveShares(ctx, share.ProjectID, &shareID)
		if err != nil {
			return err
		}
		if total.Add(newPercentage).GreaterThan(shared.Hundred) {
			return &PercentageExceededError{CurrentTotal: total, Requested: newPercentage}
		}
		updated, err = tx.UpdatePercentage(ctx, shareID, newPercentage)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveShare soft-deletes a share, freeing its percentage.
func (s *Service) RemoveShare(ctx context.Context, shareID uuid.UUID) error {
	existing, err := s.repo.Get(ctx, shareID)
	if err != nil {
		return err
	}
	return s.repo.WithProjectLock(ctx, existing.ProjectID, func(tx ShareTx) error {
		share, err := tx.Get(ctx, shareID)
		if err != nil {
			return err
		}
		if share.Status == ShareRemoved {
			return fmt.Errorf("equity: share %s already removed: %w", shareID, shared.ErrConflict)
		}
		return tx.SetStatus(ctx, shareID, ShareRemoved)
	})
}

// RemainingPercentage returns the unallocated share of a project.
func (s *Service) RemainingPercentage(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error) {
	total, err := s.repo.SumActiveShares(ctx, projectID)
	if err != nil {
		return decimal.Zero, err
	}
	return shared.Hundred.Sub(total), nil
}

// ListByProject returns a project's active shares.
func (s *Service) ListByProject(ctx context.Context, projectID uuid.UUID) ([]ProjectInvestor, error) {
	return s.repo.ListActiveByProject(ctx, projectID)
}

// TotalInvested aggregates what the project has received.
func (s *Service) TotalInvested(ctx context.Context, projectID uuid.UUID) (*InvestedTotals, error) {
	return s.repo.InvestedTotals(ctx, projectID)
}

// InvestorPositions returns an investor's own stakes with co-investor
// percentages only, ready for the portal.
func (s *Service) InvestorPositions(ctx context.Context, investorID uuid.UUID) ([]Position, error) {
	return s.repo.ListPositions(ctx, investorID)
}
