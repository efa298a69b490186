package equity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/shared"
)

// InvestmentType describes what an investor brings into a project. Only
// the cash types ever touch the ledger; everything else lives purely on
// the ProjectInvestor record.
type InvestmentType string

const (
	InvestmentCashARS   InvestmentType = "cash_ars"
	InvestmentCashUSD   InvestmentType = "cash_usd"
	InvestmentMaterials InvestmentType = "materials"
	InvestmentLand      InvestmentType = "land"
	InvestmentLabor     InvestmentType = "labor"
	InvestmentEquipment InvestmentType = "equipment"
	InvestmentOther     InvestmentType = "other"
)

// Valid reports whether the investment type is known.
func (t InvestmentType) Valid() bool {
	switch t {
	case InvestmentCashARS, InvestmentCashUSD, InvestmentMaterials,
		InvestmentLand, InvestmentLabor, InvestmentEquipment, InvestmentOther:
		return true
	}
	return false
}

// IsCash reports whether the investment moves money.
func (t InvestmentType) IsCash() bool {
	return t == InvestmentCashARS || t == InvestmentCashUSD
}

// CashCurrency returns the ledger currency for a cash investment type.
func (t InvestmentType) CashCurrency() shared.Currency {
	if t == InvestmentCashUSD {
		return shared.USD
	}
	return shared.ARS
}

// ShareStatus tracks whether a share still counts against the cap.
type ShareStatus string

const (
	ShareActive  ShareStatus = "active"
	ShareRemoved ShareStatus = "removed"
)

// ProjectInvestor links an investor to a project with an equity share.
// Removal is a status flip, never a physical delete, so history stays.
type ProjectInvestor struct {
	ID              uuid.UUID        `json:"id"`
	ProjectID       uuid.UUID        `json:"project_id"`
	InvestorID      uuid.UUID        `json:"investor_id"`
	InvestmentType  InvestmentType   `json:"investment_type"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	EstimatedValue  *decimal.Decimal `json:"estimated_value,omitempty"`
	PercentageShare decimal.Decimal  `json:"percentage_share"`
	Status          ShareStatus      `json:"status"`
	Note            string           `json:"note,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// PercentageExceededError reports an allocation that would break the
// 100% cap. It wraps the validation sentinel so callers can branch on
// the class and still read the arithmetic.
type PercentageExceededError struct {
	CurrentTotal decimal.Decimal
	Requested    decimal.Decimal
}

func (e *PercentageExceededError) Error() string {
	return fmt.Sprintf("equity: allocating %s%% would bring the project to %s%% (current %s%%, cap 100%%)",
		e.Requested, e.CurrentTotal.Add(e.Requested), e.CurrentTotal)
}

func (e *PercentageExceededError) Unwrap() error { return shared.ErrValidation }

// ShareInput carries a new share's fields.
type ShareInput struct {
	ProjectID       uuid.UUID
	InvestorID      uuid.UUID
	InvestmentType  InvestmentType
	Amount          *decimal.Decimal
	EstimatedValue  *decimal.Decimal
	PercentageShare decimal.Decimal
	Note            string
}

// InvestedTotals aggregates what a project has received from investors.
type InvestedTotals struct {
	CashARS        decimal.Decimal `json:"cash_ars"`
	CashUSD        decimal.Decimal `json:"cash_usd"`
	EstimatedValue decimal.Decimal `json:"estimated_value"`
}

// CoInvestorShare is the privacy-reduced view of someone else's stake:
// the portal shows co-investor percentages, never their amounts.
type CoInvestorShare struct {
	InvestorName    string          `json:"investor_name"`
	PercentageShare decimal.Decimal `json:"percentage_share"`
}

// Position is one investor's stake in one project, as the portal sees it.
type Position struct {
	ProjectID       uuid.UUID        `json:"project_id"`
	ProjectName     string           `json:"project_name"`
	InvestmentType  InvestmentType   `json:"investment_type"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	EstimatedValue  *decimal.Decimal `json:"estimated_value,omitempty"`
	PercentageShare decimal.Decimal  `json:"percentage_share"`
	CoInvestors     []CoInvestorShare `json:"co_investors"`
}
