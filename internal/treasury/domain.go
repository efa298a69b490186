package treasury

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/installments"
	"github.com/obralink/obralink/internal/ledger"
	"github.com/obralink/obralink/internal/shared"
)

// PaymentMeta carries free-form correlation data onto journal entries.
type PaymentMeta struct {
	Method    string `json:"method,omitempty"`
	Reference string `json:"reference,omitempty"`
	Note      string `json:"note,omitempty"`
}

// PaymentResult reports a committed installment payment: the paid
// installment, both updated boxes and the two journal entries written.
type PaymentResult struct {
	Installment installments.Installment `json:"installment"`
	ProjectBox  ledger.CashBox           `json:"project_box"`
	MasterBox   ledger.CashBox           `json:"master_box"`
	Movements   []ledger.CashMovement    `json:"movements"`
	// FeeWarning is set when a configured fee liquidation failed after
	// the payment itself committed. The payment stands; the warning is
	// surfaced for manual reconciliation.
	FeeWarning string     `json:"fee_warning,omitempty"`
	Fee        *FeeResult `json:"fee,omitempty"`
}

// ContributionResult reports a committed cash investor contribution.
type ContributionResult struct {
	ProjectBox ledger.CashBox        `json:"project_box"`
	MasterBox  ledger.CashBox        `json:"master_box"`
	Movements  []ledger.CashMovement `json:"movements"`
}

// ExpenseResult reports a committed contractor payment.
type ExpenseResult struct {
	ProjectBox ledger.CashBox        `json:"project_box"`
	MasterBox  ledger.CashBox        `json:"master_box"`
	Movements  []ledger.CashMovement `json:"movements"`
}

// FeeType selects how the admin fee is computed.
type FeeType string

const (
	FeePercentage FeeType = "percentage"
	FeeFixed      FeeType = "fixed"
	FeeNone       FeeType = "none"
)

// Valid reports whether the fee type is known.
func (f FeeType) Valid() bool {
	return f == FeePercentage || f == FeeFixed || f == FeeNone
}

// LiquidationInput describes one fee liquidation.
type LiquidationInput struct {
	PaymentAmount decimal.Decimal
	Currency      shared.Currency
	FeeType       FeeType
	FeeValue      decimal.Decimal
	ProjectID     uuid.UUID
	InstallmentID *uuid.UUID
	Description   string
}

// FeeResult reports a computed (and, when positive, transferred) fee.
type FeeResult struct {
	Fee      decimal.Decimal      `json:"fee"`
	Currency shared.Currency      `json:"currency"`
	Movement *ledger.CashMovement `json:"movement,omitempty"`
	AdminBox *ledger.CashBox      `json:"admin_box,omitempty"`
}

// TxOps is the set of writes available inside one ledger transaction.
// Everything called through it commits or rolls back together.
type TxOps interface {
	GetInstallmentForUpdate(ctx context.Context, id uuid.UUID) (*installments.Installment, error)
	MarkInstallmentPaid(ctx context.Context, id uuid.UUID, paidAmount decimal.Decimal, paidDate time.Time) error
	MarkFeeCollected(ctx context.Context, id uuid.UUID) error
	AppendMovement(ctx context.Context, in ledger.MovementInput) (*ledger.CashMovement, error)
	ApplyDelta(ctx context.Context, scope ledger.Scope, projectID *uuid.UUID, currency shared.Currency, income, expense decimal.Decimal) (*ledger.CashBox, error)
}

// UnitOfWork opens one atomic ledger transaction.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(TxOps) error) error
}

// SummaryInvalidator drops cached project summaries after writes.
type SummaryInvalidator interface {
	InvalidateSummary(ctx context.Context, projectID uuid.UUID)
}
