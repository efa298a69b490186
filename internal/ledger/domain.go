package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/shared"
)

// Scope identifies which of the three cash boxes a balance belongs to.
// Every project has its own box; the studio keeps one master box pooling
// every payment and one admin box for liquidated fees.
type Scope string

const (
	ScopeProject Scope = "project"
	ScopeMaster  Scope = "master"
	ScopeAdmin   Scope = "admin"
)

// Valid reports whether the scope is a known cash box scope.
func (s Scope) Valid() bool {
	return s == ScopeProject || s == ScopeMaster || s == ScopeAdmin
}

// External marks the counterparty side of a movement that enters or
// leaves the studio entirely (client payments, contractor payouts).
const External = "external"

// MovementType enumerates journal entry types.
type MovementType string

const (
	MovementProjectIncome        MovementType = "project_income"
	MovementMasterDuplication    MovementType = "master_duplication"
	MovementInvestorContribution MovementType = "investor_contribution"
	MovementAdminFeeLiquidation  MovementType = "admin_fee_liquidation"
	MovementContractorPayment    MovementType = "contractor_payment"
)

// CashBox is a persisted per-scope balance, carried independently in ARS
// and USD. Balances equal the signed sum of journal entries touching the
// box; only the transfer coordinator mutates them.
type CashBox struct {
	ID               uuid.UUID       `json:"id"`
	Scope            Scope           `json:"scope"`
	ProjectID        *uuid.UUID      `json:"project_id,omitempty"`
	BalanceARS       decimal.Decimal `json:"balance_ars"`
	BalanceUSD       decimal.Decimal `json:"balance_usd"`
	TotalIncomeARS   decimal.Decimal `json:"total_income_ars"`
	TotalIncomeUSD   decimal.Decimal `json:"total_income_usd"`
	TotalExpensesARS decimal.Decimal `json:"total_expenses_ars"`
	TotalExpensesUSD decimal.Decimal `json:"total_expenses_usd"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Balance returns the box balance in the given currency.
func (b *CashBox) Balance(c shared.Currency) decimal.Decimal {
	if c == shared.USD {
		return b.BalanceUSD
	}
	return b.BalanceARS
}

// CashMovement is one immutable journal entry. Rows are append-only;
// balances are derived from them, never the other way round.
type CashMovement struct {
	ID               uuid.UUID       `json:"id"`
	Type             MovementType    `json:"movement_type"`
	SourceScope      string          `json:"source_scope"`
	DestinationScope string          `json:"destination_scope"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         shared.Currency `json:"currency"`
	ProjectID        *uuid.UUID      `json:"project_id,omitempty"`
	InstallmentID    *uuid.UUID      `json:"installment_id,omitempty"`
	Method           string          `json:"method,omitempty"`
	Reference        string          `json:"reference,omitempty"`
	Note             string          `json:"note,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// MovementInput carries the fields of a journal entry to append.
type MovementInput struct {
	Type             MovementType
	SourceScope      string
	DestinationScope string
	Amount           decimal.Decimal
	Currency         shared.Currency
	ProjectID        *uuid.UUID
	InstallmentID    *uuid.UUID
	Method           string
	Reference        string
	Note             string
}

// MovementFilter narrows journal listings.
type MovementFilter struct {
	ProjectID *uuid.UUID
	Type      MovementType
	Currency  shared.Currency
	Limit     int
}

// TypeTotal aggregates journal amounts per movement type and currency.
type TypeTotal struct {
	Type     MovementType    `json:"movement_type"`
	Currency shared.Currency `json:"currency"`
	Total    decimal.Decimal `json:"total"`
}

// ProjectSummary combines a project box with its journal totals. The
// portal variant strips everything but percentage shares before leaving
// the server.
type ProjectSummary struct {
	ProjectID uuid.UUID   `json:"project_id"`
	Box       CashBox     `json:"box"`
	Totals    []TypeTotal `json:"totals"`
}
