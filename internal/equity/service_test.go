package equity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/obralink/obralink/internal/shared"
	"github.com/obralink/obralink/internal/treasury"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type memoryRepo struct {
	mu     sync.Mutex
	shares map[uuid.UUID]*ProjectInvestor
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{shares: make(map[uuid.UUID]*ProjectInvestor)}
}

var _ RepositoryPort = (*memoryRepo)(nil)

func (r *memoryRepo) WithProjectLock(ctx context.Context, projectID uuid.UUID, fn func(ShareTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(memoryShareTx{r})
}

func (r *memoryRepo) sumActive(projectID uuid.UUID, exclude *uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for id, s := range r.shares {
		if s.ProjectID != projectID || s.Status != ShareActive {
			continue
		}
		if exclude != nil && id == *exclude {
			continue
		}
		total = total.Add(s.PercentageShare)
	}
	return total
}

func (r *memoryRepo) SumActiveShares(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error) {
	return r.sumActive(projectID, nil), nil
}

// memoryShareTx exposes memoryRepo under the ShareTx signature set, which
// takes an exclusion argument that RepositoryPort's SumActiveShares lacks.
type memoryShareTx struct {
	*memoryRepo
}

func (t memoryShareTx) SumActiveShares(ctx context.Context, projectID uuid.UUID, exclude *uuid.UUID) (decimal.Decimal, error) {
	return t.sumActive(projectID, exclude), nil
}

func (r *memoryRepo) Insert(ctx context.Context, in ShareInput) (*ProjectInvestor, error) {
	share := &ProjectInvestor{
		ID:              uuid.New(),
		ProjectID:       in.ProjectID,
		InvestorID:      in.InvestorID,
		InvestmentType:  in.InvestmentType,
		Amount:          in.Amount,
		EstimatedValue:  in.EstimatedValue,
		PercentageShare: in.PercentageShare,
		Status:          ShareActive,
		Note:            in.Note,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	r.shares[share.ID] = share
	cp := *share
	return &cp, nil
}

func (r *memoryRepo) Get(ctx context.Context, id uuid.UUID) (*ProjectInvestor, error) {
	share, ok := r.shares[id]
	if !ok {
		return nil, ErrShareNotFound
	}
	cp := *share
	return &cp, nil
}

func (r *memoryRepo) UpdatePercentage(ctx context.Context, id uuid.UUID, pct decimal.Decimal) (*ProjectInvestor, error) {
	share, ok := r.shares[id]
	if !ok {
		return nil, ErrShareNotFound
	}
	share.PercentageShare = pct
	share.UpdatedAt = time.Now().UTC()
	cp := *share
	return &cp, nil
}

func (r *memoryRepo) SetStatus(ctx context.Context, id uuid.UUID, status ShareStatus) error {
	share, ok := r.shares[id]
	if !ok {
		return ErrShareNotFound
	}
	share.Status = status
	return nil
}

func (r *memoryRepo) ListActiveByProject(ctx context.Context, projectID uuid.UUID) ([]ProjectInvestor, error) {
	var out []ProjectInvestor
	for _, s := range r.shares {
		if s.ProjectID == projectID && s.Status == ShareActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memoryRepo) InvestedTotals(ctx context.Context, projectID uuid.UUID) (*InvestedTotals, error) {
	totals := &InvestedTotals{}
	for _, s := range r.shares {
		if s.ProjectID != projectID || s.Status != ShareActive {
			continue
		}
		switch {
		case s.InvestmentType == InvestmentCashARS && s.Amount != nil:
			totals.CashARS = totals.CashARS.Add(*s.Amount)
		case s.InvestmentType == InvestmentCashUSD && s.Amount != nil:
			totals.CashUSD = totals.CashUSD.Add(*s.Amount)
		case s.EstimatedValue != nil:
			totals.EstimatedValue = totals.EstimatedValue.Add(*s.EstimatedValue)
		}
	}
	return totals, nil
}

func (r *memoryRepo) ListPositions(ctx context.Context, investorID uuid.UUID) ([]Position, error) {
	return nil, nil
}

type fakeContributions struct {
	calls []decimal.Decimal
	err   error
}

func (f *fakeContributions) RecordInvestorContribution(ctx context.Context, projectID, investorID uuid.UUID, amount decimal.Decimal, currency shared.Currency, note string) (*treasury.ContributionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, amount)
	return &treasury.ContributionResult{}, nil
}

func newService(repo RepositoryPort, contributions ContributionRecorder) *Service {
	return NewService(repo, contributions, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func materialsShare(projectID uuid.UUID, pct string) ShareInput {
	value := d("1000")
	return ShareInput{
		ProjectID:       projectID,
		InvestorID:      uuid.New(),
		InvestmentType:  InvestmentMaterials,
		EstimatedValue:  &value,
		PercentageShare: d(pct),
	}
}

func TestAddShareEnforcesCap(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, &fakeContributions{})
	ctx := context.Background()
	projectID := uuid.New()

	_, err := svc.AddShare(ctx, materialsShare(projectID, "60"))
	require.NoError(t, err)

	// 60 + 50 breaks the cap.
	_, err = svc.AddShare(ctx, materialsShare(projectID, "50"))
	require.ErrorIs(t, err, shared.ErrValidation)
	var exceeded *PercentageExceededError
	require.ErrorAs(t, err, &exceeded)
	require.True(t, exceeded.CurrentTotal.Equal(d("60")))
	require.True(t, exceeded.Requested.Equal(d("50")))

	// 60 + 30 fits, leaving 10.
	_, err = svc.AddShare(ctx, materialsShare(projectID, "30"))
	require.NoError(t, err)

	remaining, err := svc.RemainingPercentage(ctx, projectID)
	require.NoError(t, err)
	require.True(t, remaining.Equal(d("10")))
}

func TestAddShareExactly100(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, &fakeContributions{})
	ctx := context.Background()
	projectID := uuid.New()

	_, err := svc.AddShare(ctx, materialsShare(projectID, "70"))
	require.NoError(t, err)
	_, err = svc.AddShare(ctx, materialsShare(projectID, "30"))
	require.NoError(t, err)

	remaining, err := svc.RemainingPercentage(ctx, projectID)
	require.NoError(t, err)
	require.True(t, remaining.IsZero())

	_, err = svc.AddShare(ctx, materialsShare(projectID, "0.01"))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAddShareValidation(t *testing.T) {
	svc := newService(newMemoryRepo(), &fakeContributions{})
	ctx := context.Background()
	projectID := uuid.New()

	_, err := svc.AddShare(ctx, materialsShare(projectID, "0"))
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.AddShare(ctx, materialsShare(projectID, "100.01"))
	require.ErrorIs(t, err, shared.ErrValidation)

	in := materialsShare(projectID, "10")
	in.InvestmentType = "crypto"
	_, err = svc.AddShare(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	// Cash without an amount.
	in = materialsShare(projectID, "10")
	in.InvestmentType = InvestmentCashARS
	in.EstimatedValue = nil
	_, err = svc.AddShare(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	// Non-cash with an amount.
	amount := d("500")
	in = materialsShare(projectID, "10")
	in.Amount = &amount
	_, err = svc.AddShare(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAddCashShareRecordsContribution(t *testing.T) {
	repo := newMemoryRepo()
	contributions := &fakeContributions{}
	svc := newService(repo, contributions)
	ctx := context.Background()

	amount := d("25000")
	result, err := svc.AddShare(ctx, ShareInput{
		ProjectID:       uuid.New(),
		InvestorID:      uuid.New(),
		InvestmentType:  InvestmentCashARS,
		Amount:          &amount,
		PercentageShare: d("40"),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Contribution)
	require.Empty(t, result.ContributionWarning)
	require.Len(t, contributions.calls, 1)
	require.True(t, contributions.calls[0].Equal(amount))
}

func TestAddCashShareContributionFailureKeepsShare(t *testing.T) {
	repo := newMemoryRepo()
	contributions := &fakeContributions{err: errors.New("ledger unavailable")}
	svc := newService(repo, contributions)
	ctx := context.Background()
	projectID := uuid.New()

	amount := d("25000")
	result, err := svc.AddShare(ctx, ShareInput{
		ProjectID:       projectID,
		InvestorID:      uuid.New(),
		InvestmentType:  InvestmentCashUSD,
		Amount:          &amount,
		PercentageShare: d("40"),
	})
	require.NoError(t, err)
	require.Nil(t, result.Contribution)
	require.NotEmpty(t, result.ContributionWarning)

	// The share persisted regardless.
	shares, err := svc.ListByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, shares, 1)
}

func TestUpdateShareRevalidatesCap(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, &fakeContributions{})
	ctx := context.Background()
	projectID := uuid.New()

	first, err := svc.AddShare(ctx, materialsShare(projectID, "60"))
	require.NoError(t, err)
	_, err = svc.AddShare(ctx, materialsShare(projectID, "30"))
	require.NoError(t, err)

	// 60 -> 70 fits because the share's own value is excluded.
	updated, err := svc.UpdateShare(ctx, first.Share.ID, d("70"))
	require.NoError(t, err)
	require.True(t, updated.PercentageShare.Equal(d("70")))

	// 70 -> 80 would reach 110.
	_, err = svc.UpdateShare(ctx, first.Share.ID, d("80"))
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.UpdateShare(ctx, uuid.New(), d("10"))
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRemoveShareFreesPercentage(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, &fakeContributions{})
	ctx := context.Background()
	projectID := uuid.New()

	first, err := svc.AddShare(ctx, materialsShare(projectID, "60"))
	require.NoError(t, err)

	require.NoError(t, svc.RemoveShare(ctx, first.Share.ID))

	remaining, err := svc.RemainingPercentage(ctx, projectID)
	require.NoError(t, err)
	require.True(t, remaining.Equal(shared.Hundred))

	// Removing twice conflicts; updating a removed share conflicts too.
	require.ErrorIs(t, svc.RemoveShare(ctx, first.Share.ID), shared.ErrConflict)
	_, err = svc.UpdateShare(ctx, first.Share.ID, d("10"))
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestTotalInvested(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, &fakeContributions{})
	ctx := context.Background()
	projectID := uuid.New()

	ars := d("10000")
	_, err := svc.AddShare(ctx, ShareInput{
		ProjectID: projectID, InvestorID: uuid.New(),
		InvestmentType: InvestmentCashARS, Amount: &ars, PercentageShare: d("30"),
	})
	require.NoError(t, err)

	usd := d("2000")
	_, err = svc.AddShare(ctx, ShareInput{
		ProjectID: projectID, InvestorID: uuid.New(),
		InvestmentType: InvestmentCashUSD, Amount: &usd, PercentageShare: d("30"),
	})
	require.NoError(t, err)

	_, err = svc.AddShare(ctx, materialsShare(projectID, "20"))
	require.NoError(t, err)

	totals, err := svc.TotalInvested(ctx, projectID)
	require.NoError(t, err)
	require.True(t, totals.CashARS.Equal(d("10000")))
	require.True(t, totals.CashUSD.Equal(d("2000")))
	require.True(t, totals.EstimatedValue.Equal(d("1000")))
}
