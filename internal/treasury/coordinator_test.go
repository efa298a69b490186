package treasury

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/obralink/obralink/internal/installments"
	"github.com/obralink/obralink/internal/ledger"
	"github.com/obralink/obralink/internal/shared"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func boxKey(scope ledger.Scope, projectID *uuid.UUID) string {
	if projectID != nil {
		return string(scope) + ":" + projectID.String()
	}
	return string(scope)
}

type memoryState struct {
	installments map[uuid.UUID]*installments.Installment
	boxes        map[string]*ledger.CashBox
	movements    []ledger.CashMovement
}

func newMemoryState() *memoryState {
	return &memoryState{
		installments: make(map[uuid.UUID]*installments.Installment),
		boxes:        make(map[string]*ledger.CashBox),
	}
}

func (s *memoryState) clone() *memoryState {
	out := newMemoryState()
	for id, ins := range s.installments {
		cp := *ins
		out.installments[id] = &cp
	}
	for k, b := range s.boxes {
		cp := *b
		out.boxes[k] = &cp
	}
	out.movements = append(out.movements, s.movements...)
	return out
}

// memoryUoW applies writes to the live state and restores a snapshot on
// error, mirroring transaction rollback.
type memoryUoW struct {
	state *memoryState
}

func (u *memoryUoW) InTx(ctx context.Context, fn func(TxOps) error) error {
	snapshot := u.state.clone()
	if err := fn(&memTxOps{state: u.state}); err != nil {
		*u.state = *snapshot
		return err
	}
	return nil
}

type memTxOps struct {
	state *memoryState
}

func (t *memTxOps) GetInstallmentForUpdate(ctx context.Context, id uuid.UUID) (*installments.Installment, error) {
	ins, ok := t.state.installments[id]
	if !ok {
		return nil, installments.ErrInstallmentNotFound
	}
	cp := *ins
	return &cp, nil
}

func (t *memTxOps) MarkInstallmentPaid(ctx context.Context, id uuid.UUID, paidAmount decimal.Decimal, paidDate time.Time) error {
	ins, ok := t.state.installments[id]
	if !ok {
		return installments.ErrInstallmentNotFound
	}
	if ins.Status == installments.StatusPaid {
		return shared.ErrConflict
	}
	ins.Status = installments.StatusPaid
	ins.PaidAmount = &paidAmount
	ins.PaidDate = &paidDate
	return nil
}

func (t *memTxOps) MarkFeeCollected(ctx context.Context, id uuid.UUID) error {
	ins, ok := t.state.installments[id]
	if !ok {
		return installments.ErrInstallmentNotFound
	}
	ins.AdminFeeCollected = true
	return nil
}

func (t *memTxOps) AppendMovement(ctx context.Context, in ledger.MovementInput) (*ledger.CashMovement, error) {
	m := ledger.CashMovement{
		ID:               uuid.New(),
		Type:             in.Type,
		SourceScope:      in.SourceScope,
		DestinationScope: in.DestinationScope,
		Amount:           shared.Round2(in.Amount),
		Currency:         in.Currency,
		ProjectID:        in.ProjectID,
		InstallmentID:    in.InstallmentID,
		Method:           in.Method,
		Reference:        in.Reference,
		Note:             in.Note,
		CreatedAt:        time.Now().UTC(),
	}
	t.state.movements = append(t.state.movements, m)
	return &m, nil
}

func (t *memTxOps) ApplyDelta(ctx context.Context, scope ledger.Scope, projectID *uuid.UUID, currency shared.Currency, income, expense decimal.Decimal) (*ledger.CashBox, error) {
	box, ok := t.state.boxes[boxKey(scope, projectID)]
	if !ok {
		return nil, ledger.ErrBoxNotFound
	}
	delta := income.Sub(expense)
	if currency == shared.USD {
		box.BalanceUSD = box.BalanceUSD.Add(delta)
		box.TotalIncomeUSD = box.TotalIncomeUSD.Add(income)
		box.TotalExpensesUSD = box.TotalExpensesUSD.Add(expense)
	} else {
		box.BalanceARS = box.BalanceARS.Add(delta)
		box.TotalIncomeARS = box.TotalIncomeARS.Add(income)
		box.TotalExpensesARS = box.TotalExpensesARS.Add(expense)
	}
	cp := *box
	return &cp, nil
}

type fixture struct {
	state  *memoryState
	coord  *Coordinator
	fees   *FeeEngine
	projID uuid.UUID
	insID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	state := newMemoryState()
	projID := uuid.New()
	insID := uuid.New()

	state.boxes[boxKey(ledger.ScopeProject, &projID)] = &ledger.CashBox{ID: uuid.New(), Scope: ledger.ScopeProject, ProjectID: &projID}
	state.boxes[boxKey(ledger.ScopeMaster, nil)] = &ledger.CashBox{ID: uuid.New(), Scope: ledger.ScopeMaster}
	state.boxes[boxKey(ledger.ScopeAdmin, nil)] = &ledger.CashBox{ID: uuid.New(), Scope: ledger.ScopeAdmin}
	state.installments[insID] = &installments.Installment{
		ID:        insID,
		ProjectID: projID,
		Number:    1,
		Amount:    d("5000"),
		DueDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:    installments.StatusPending,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := NewCoordinator(&memoryUoW{state: state}, logger, nil, nil)
	return &fixture{
		state:  state,
		coord:  coord,
		fees:   NewFeeEngine(coord, logger),
		projID: projID,
		insID:  insID,
	}
}

func (f *fixture) box(scope ledger.Scope, projectID *uuid.UUID) *ledger.CashBox {
	return f.state.boxes[boxKey(scope, projectID)]
}

func TestRecordPaymentDualEntry(t *testing.T) {
	f := newFixture(t)

	result, err := f.coord.RecordPayment(context.Background(), f.insID, d("5000"), shared.ARS, PaymentMeta{Method: "transfer"})
	require.NoError(t, err)

	require.Len(t, result.Movements, 2)
	require.Equal(t, ledger.MovementProjectIncome, result.Movements[0].Type)
	require.Equal(t, ledger.MovementMasterDuplication, result.Movements[1].Type)
	require.True(t, result.Movements[0].Amount.Equal(result.Movements[1].Amount))
	require.Equal(t, result.Movements[0].Currency, result.Movements[1].Currency)

	require.True(t, f.box(ledger.ScopeProject, &f.projID).BalanceARS.Equal(d("5000")))
	require.True(t, f.box(ledger.ScopeMaster, nil).BalanceARS.Equal(d("5000")))
	require.True(t, f.box(ledger.ScopeAdmin, nil).BalanceARS.IsZero(), "admin box must stay untouched without a fee")

	ins := f.state.installments[f.insID]
	require.Equal(t, installments.StatusPaid, ins.Status)
	require.NotNil(t, ins.PaidAmount)
	require.True(t, ins.PaidAmount.Equal(d("5000")))
	require.NotNil(t, ins.PaidDate)
}

func TestRecordPaymentTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.coord.RecordPayment(ctx, f.insID, d("5000"), shared.ARS, PaymentMeta{})
	require.NoError(t, err)

	_, err = f.coord.RecordPayment(ctx, f.insID, d("5000"), shared.ARS, PaymentMeta{})
	require.ErrorIs(t, err, shared.ErrConflict)

	// Balances changed exactly once.
	require.True(t, f.box(ledger.ScopeProject, &f.projID).BalanceARS.Equal(d("5000")))
	require.True(t, f.box(ledger.ScopeMaster, nil).BalanceARS.Equal(d("5000")))
	require.Len(t, f.state.movements, 2)
}

func TestRecordPaymentRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	// Removing the master box makes the second delta fail after the
	// journal entries were already appended.
	delete(f.state.boxes, boxKey(ledger.ScopeMaster, nil))

	_, err := f.coord.RecordPayment(context.Background(), f.insID, d("5000"), shared.ARS, PaymentMeta{})
	require.ErrorIs(t, err, ledger.ErrBoxNotFound)

	require.Empty(t, f.state.movements, "no journal entries may survive a failed payment")
	require.True(t, f.box(ledger.ScopeProject, &f.projID).BalanceARS.IsZero())
	require.Equal(t, installments.StatusPending, f.state.installments[f.insID].Status)
}

func TestRecordPaymentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.coord.RecordPayment(ctx, f.insID, d("0"), shared.ARS, PaymentMeta{})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.coord.RecordPayment(ctx, f.insID, d("10"), "EUR", PaymentMeta{})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.coord.RecordPayment(ctx, uuid.New(), d("10"), shared.ARS, PaymentMeta{})
	require.ErrorIs(t, err, shared.ErrNotFound)

	f.state.installments[f.insID].Status = installments.StatusCancelled
	_, err = f.coord.RecordPayment(ctx, f.insID, d("10"), shared.ARS, PaymentMeta{})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordInvestorContribution(t *testing.T) {
	f := newFixture(t)

	result, err := f.coord.RecordInvestorContribution(context.Background(), f.projID, uuid.New(), d("12000"), shared.USD, "initial capital")
	require.NoError(t, err)

	require.Len(t, result.Movements, 2)
	require.Equal(t, ledger.MovementInvestorContribution, result.Movements[0].Type)
	require.Equal(t, ledger.MovementMasterDuplication, result.Movements[1].Type)
	require.True(t, f.box(ledger.ScopeProject, &f.projID).BalanceUSD.Equal(d("12000")))
	require.True(t, f.box(ledger.ScopeMaster, nil).BalanceUSD.Equal(d("12000")))
	require.True(t, f.box(ledger.ScopeProject, &f.projID).BalanceARS.IsZero())
}

func TestRecordExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.coord.RecordPayment(ctx, f.insID, d("5000"), shared.ARS, PaymentMeta{})
	require.NoError(t, err)

	result, err := f.coord.RecordExpense(ctx, f.projID, d("1200.50"), shared.ARS, PaymentMeta{Note: "electrician"})
	require.NoError(t, err)

	require.Equal(t, ledger.MovementContractorPayment, result.Movements[0].Type)
	projectBox := f.box(ledger.ScopeProject, &f.projID)
	require.True(t, projectBox.BalanceARS.Equal(d("3799.50")))
	require.True(t, projectBox.TotalExpensesARS.Equal(d("1200.50")))
	require.True(t, f.box(ledger.ScopeMaster, nil).BalanceARS.Equal(d("3799.50")))
}
