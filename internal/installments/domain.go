package installments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates installment states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// Frequency sets the spacing of due dates.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

// Valid reports whether the frequency is supported.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly:
		return true
	}
	return false
}

// Installment is one payment of a project's plan. Number 0 is the down
// payment. Status flips to paid exactly once; admin_fee_collected flips
// only when fee liquidation succeeds.
type Installment struct {
	ID                 uuid.UUID        `json:"id"`
	ProjectID          uuid.UUID        `json:"project_id"`
	Number             int              `json:"installment_number"`
	Amount             decimal.Decimal  `json:"amount"`
	DueDate            time.Time        `json:"due_date"`
	Status             Status           `json:"status"`
	PaidAmount         *decimal.Decimal `json:"paid_amount,omitempty"`
	PaidDate           *time.Time       `json:"paid_date,omitempty"`
	AdminFeePercentage *decimal.Decimal `json:"admin_fee_percentage,omitempty"`
	AdminFeeCollected  bool             `json:"admin_fee_collected"`
	CreatedAt          time.Time        `json:"created_at"`
}

// ScheduleParams drive schedule generation.
type ScheduleParams struct {
	Total           decimal.Decimal
	DownPayment     decimal.Decimal
	Count           int
	Frequency       Frequency
	FirstDate       time.Time
	DownPaymentDate time.Time // zero value anchors it at FirstDate
}

// ScheduleEntry is one generated (not yet persisted) installment.
type ScheduleEntry struct {
	Number  int             `json:"installment_number"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate time.Time       `json:"due_date"`
}
