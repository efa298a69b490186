package treasury

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/installments"
	"github.com/obralink/obralink/internal/ledger"
	"github.com/obralink/obralink/internal/observability"
	"github.com/obralink/obralink/internal/shared"
)

// Coordinator is the only component that mutates cash box balances.
// Every operation writes its journal entries, balance deltas and status
// flips as one transaction: a failure mid-sequence leaves nothing behind.
type Coordinator struct {
	uow         UnitOfWork
	logger      *slog.Logger
	metrics     *observability.Metrics
	invalidator SummaryInvalidator
}

// NewCoordinator builds Coordinator instance. metrics and invalidator
// may be nil.
func NewCoordinator(uow UnitOfWork, logger *slog.Logger, metrics *observability.Metrics, invalidator SummaryInvalidator) *Coordinator {
	return &Coordinator{uow: uow, logger: logger, metrics: metrics, invalidator: invalidator}
}

// RecordPayment settles one installment: a project_income entry into the
// project box and a master_duplication mirror into the master box, then
// the installment flips to paid. Paying the same installment twice fails
// with a conflict; balances change exactly once.
func (c *Coordinator) RecordPayment(ctx context.Context, installmentID uuid.UUID, amount decimal.Decimal, currency shared.Currency, meta PaymentMeta) (*PaymentResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be > 0", shared.ErrValidation)
	}
	if !currency.Valid() {
		return nil, fmt.Errorf("%w: currency %q", shared.ErrValidation, currency)
	}
	amount = shared.Round2(amount)

	var result PaymentResult
	err := c.uow.InTx(ctx, func(tx TxOps) error {
		ins, err := tx.GetInstallmentForUpdate(ctx, installmentID)
		if err != nil {
			return err
		}
		if ins.Status == installments.StatusPaid {
			return fmt.Errorf("treasury: installment %s already paid: %w", installmentID, shared.ErrConflict)
		}
		if ins.Status == installments.StatusCancelled {
			return fmt.Errorf("%w: installment %s is cancelled", shared.ErrValidation, installmentID)
		}
		projectID := ins.ProjectID

		income, err := tx.AppendMovement(ctx, ledger.MovementInput{
			Type:             ledger.MovementProjectIncome,
			SourceScope:      ledger.External,
			DestinationScope: string(ledger.ScopeProject),
			Amount:           amount,
			Currency:         currency,
			ProjectID:        &projectID,
			InstallmentID:    &installmentID,
			Method:           meta.Method,
			Reference:        meta.Reference,
			Note:             meta.Note,
		})
		if err != nil {
			return err
		}
		mirror, err := tx.AppendMovement(ctx, ledger.MovementInput{
			Type:             ledger.MovementMasterDuplication,
			SourceScope:      ledger.External,
			DestinationScope: string(ledger.ScopeMaster),
			Amount:           amount,
			Currency:         currency,
			ProjectID:        &projectID,
			InstallmentID:    &installmentID,
			Method:           meta.Method,
			Reference:        meta.Reference,
			Note:             meta.Note,
		})
		if err != nil {
			return err
		}

		projectBox, err := tx.ApplyDelta(ctx, ledger.ScopeProject, &projectID, currency, amount, decimal.Zero)
		if err != nil {
			return err
		}
		masterBox, err := tx.ApplyDelta(ctx, ledger.ScopeMaster, nil, currency, amount, decimal.Zero)
		if err != nil {
			return err
		}

		paidDate := time.Now().UTC()
		if err := tx.MarkInstallmentPaid(ctx, installmentID, amount, paidDate); err != nil {
			return err
		}

		paid := *ins
		paid.Status = installments.StatusPaid
		paid.PaidAmount = &amount
		paid.PaidDate = &paidDate

		result = PaymentResult{
			Installment: paid,
			ProjectBox:  *projectBox,
			MasterBox:   *masterBox,
			Movements:   []ledger.CashMovement{*income, *mirror},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.afterCommit(ctx, result.Installment.ProjectID, result.Movements)
	return &result, nil
}

// RecordInvestorContribution records a cash contribution with the same
// dual-entry shape as a payment. Non-cash investment types never reach
// the ledger.
func (c *Coordinator) RecordInvestorContribution(ctx context.Context, projectID, investorID uuid.UUID, amount decimal.Decimal, currency shared.Currency, note string) (*ContributionResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: contribution amount must be > 0", shared.ErrValidation)
	}
	if !currency.Valid() {
		return nil, fmt.Errorf("%w: currency %q", shared.ErrValidation, currency)
	}
	amount = shared.Round2(amount)

	var result ContributionResult
	err := c.uow.InTx(ctx, func(tx TxOps) error {
		contribution, err := tx.AppendMovement(ctx, ledger.MovementInput{
			Type:             ledger.MovementInvestorContribution,
			SourceScope:      ledger.External,
			DestinationScope: string(ledger.ScopeProject),
			Amount:           amount,
			Currency:         currency,
			ProjectID:        &projectID,
			Reference:        investorID.String(),
			Note:             note,
		})
		if err != nil {
			return err
		}
		mirror, err := tx.AppendMovement(ctx, ledger.MovementInput{
			Type:             ledger.MovementMasterDuplication,
			SourceScope:      ledger.External,
			DestinationScope: string(ledger.ScopeMaster),
			Amount:           amount,
			Currency:         currency,
			ProjectID:        &projectID,
			Reference:        investorID.String(),
			Note:             note,
		})
		if err != nil {
			return err
		}

		projectBox, err := tx.ApplyDelta(ctx, ledger.ScopeProject, &projectID, currency, amount, decimal.Zero)
		if err != nil {
			return err
		}
		masterBox, err := tx.ApplyDelta(ctx, ledger.ScopeMaster, nil, currency, amount, decimal.Zero)
		if err != nil {
			return err
		}

		result = ContributionResult{
			ProjectBox: *projectBox,
			MasterBox:  *masterBox,
			Movements:  []ledger.CashMovement{*contribution, *mirror},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.afterCommit(ctx, projectID, result.Movements)
	return &result, nil
}

// RecordExpense pays a contractor out of the project box, mirrored at
// the master box so firm-level spend stays in sight.
func (c *Coordinator) RecordExpense(ctx context.Context, projectID uuid.UUID, amount decimal.Decimal, currency shared.Currency, meta PaymentMeta) (*ExpenseResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: expense amount must be > 0", shared.ErrValidation)
	}
	if !currency.Valid() {
		return nil, fmt.Errorf("%w: currency %q", shared.ErrValidation, currency)
	}
	amount = shared.Round2(amount)

	var result ExpenseResult
	err := c.uow.InTx(ctx, func(tx TxOps) error {
		payment, err := tx.AppendMovement(ctx, ledger.MovementInput{
			Type:             ledger.MovementContractorPayment,
			SourceScope:      string(ledger.ScopeProject),
			DestinationScope: ledger.External,
			Amount:           amount,
			Currency:         currency,
			ProjectID:        &projectID,
			Method:           meta.Method,
			Reference:        meta.Reference,
			Note:             meta.Note,
		})
		if err != nil {
			return err
		}
		mirror, err := tx.AppendMovement(ctx, ledger.MovementInput{
			Type:             ledger.MovementMasterDuplication,
			SourceScope:      string(ledger.ScopeMaster),
			DestinationScope: ledger.External,
			Amount:           amount,
			Currency:         currency,
			ProjectID:        &projectID,
			Method:           meta.Method,
			Reference:        meta.Reference,
			Note:             meta.Note,
		})
		if err != nil {
			return err
		}

		projectBox, err := tx.ApplyDelta(ctx, ledger.ScopeProject, &projectID, currency, decimal.Zero, amount)
		if err != nil {
			return err
		}
		masterBox, err := tx.ApplyDelta(ctx, ledger.ScopeMaster, nil, currency, decimal.Zero, amount)
		if err != nil {
			return err
		}

		result = ExpenseResult{
			ProjectBox: *projectBox,
			MasterBox:  *masterBox,
			Movements:  []ledger.CashMovement{*payment, *mirror},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.afterCommit(ctx, projectID, result.Movements)
	return &result, nil
}

// liquidateFee moves a computed fee from the pooled master box into the
// admin box, flipping admin_fee_collected when tied to an installment.
func (c *Coordinator) liquidateFee(ctx context.Context, in LiquidationInput, fee decimal.Decimal) (*FeeResult, error) {
	var result FeeResult
	err := c.uow.InTx(ctx, func(tx TxOps) error {
		movement, err := tx.AppendMovement(ctx, ledger.MovementInput{
			Type:             ledger.MovementAdminFeeLiquidation,
			SourceScope:      string(ledger.ScopeMaster),
			DestinationScope: string(ledger.ScopeAdmin),
			Amount:           fee,
			Currency:         in.Currency,
			ProjectID:        &in.ProjectID,
			InstallmentID:    in.InstallmentID,
			Note:             in.Description,
		})
		if err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(ctx, ledger.ScopeMaster, nil, in.Currency, decimal.Zero, fee); err != nil {
			return err
		}
		adminBox, err := tx.ApplyDelta(ctx, ledger.ScopeAdmin, nil, in.Currency, fee, decimal.Zero)
		if err != nil {
			return err
		}
		if in.InstallmentID != nil {
			if err := tx.MarkFeeCollected(ctx, *in.InstallmentID); err != nil {
				return err
			}
		}
		result = FeeResult{Fee: fee, Currency: in.Currency, Movement: movement, AdminBox: adminBox}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Movement != nil {
		c.afterCommit(ctx, in.ProjectID, []ledger.CashMovement{*result.Movement})
	}
	return &result, nil
}

func (c *Coordinator) afterCommit(ctx context.Context, projectID uuid.UUID, movements []ledger.CashMovement) {
	for _, m := range movements {
		c.metrics.ObserveMovement(string(m.Type))
	}
	if c.invalidator != nil {
		c.invalidator.InvalidateSummary(ctx, projectID)
	}
}
