package installments

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/shared"
)

// GenerateSchedule builds a payment plan: an optional down payment as
// installment #0 plus Count evenly split installments. The split is
// rounded to 2 decimals and the last installment absorbs the rounding
// remainder, so the entries always sum back to Total exactly. Pure
// function; the caller persists the result.
func GenerateSchedule(p ScheduleParams) ([]ScheduleEntry, error) {
	if !p.Total.IsPositive() {
		return nil, fmt.Errorf("%w: total must be > 0", shared.ErrValidation)
	}
	if p.DownPayment.IsNegative() {
		return nil, fmt.Errorf("%w: down payment must be >= 0", shared.ErrValidation)
	}
	if p.DownPayment.GreaterThanOrEqual(p.Total) {
		return nil, fmt.Errorf("%w: down payment must be below the total", shared.ErrValidation)
	}
	if p.Count < 1 {
		return nil, fmt.Errorf("%w: installment count must be >= 1", shared.ErrValidation)
	}
	if !p.Frequency.Valid() {
		return nil, fmt.Errorf("%w: frequency %q", shared.ErrValidation, p.Frequency)
	}
	if p.FirstDate.IsZero() {
		return nil, fmt.Errorf("%w: first due date required", shared.ErrValidation)
	}

	entries := make([]ScheduleEntry, 0, p.Count+1)

	down := shared.Round2(p.DownPayment)
	if down.IsPositive() {
		dueDate := p.DownPaymentDate
		if dueDate.IsZero() {
			dueDate = p.FirstDate
		}
		entries = append(entries, ScheduleEntry{Number: 0, Amount: down, DueDate: dueDate})
	}

	remaining := shared.Round2(p.Total).Sub(down)
	per := shared.Round2(remaining.Div(decimal.NewFromInt(int64(p.Count))))

	for i := 1; i <= p.Count; i++ {
		amount := per
		if i == p.Count {
			// Last installment takes whatever rounding left over.
			amount = remaining.Sub(per.Mul(decimal.NewFromInt(int64(p.Count - 1))))
		}
		entries = append(entries, ScheduleEntry{
			Number:  i,
			Amount:  amount,
			DueDate: dueDateAt(p.FirstDate, p.Frequency, i-1),
		})
	}
	return entries, nil
}

// dueDateAt anchors every due date at first + step*unit rather than
// compounding from the previous date, so month-length drift never
// accumulates.
func dueDateAt(first time.Time, f Frequency, step int) time.Time {
	switch f {
	case FrequencyWeekly:
		return first.AddDate(0, 0, 7*step)
	case FrequencyBiweekly:
		return first.AddDate(0, 0, 14*step)
	case FrequencyQuarterly:
		return first.AddDate(0, 3*step, 0)
	default:
		return first.AddDate(0, step, 0)
	}
}
