package treasury

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/shared"
)

// FeeEngine computes admin fees against settled payments and delegates
// the transfer into the admin box to the coordinator.
type FeeEngine struct {
	coord  *Coordinator
	logger *slog.Logger
}

// NewFeeEngine builds FeeEngine instance.
func NewFeeEngine(coord *Coordinator, logger *slog.Logger) *FeeEngine {
	return &FeeEngine{coord: coord, logger: logger}
}

// ComputeFee returns the fee amount for a payment, rounded to 2 decimals.
func ComputeFee(paymentAmount decimal.Decimal, feeType FeeType, feeValue decimal.Decimal) (decimal.Decimal, error) {
	switch feeType {
	case FeeNone:
		return decimal.Zero, nil
	case FeePercentage:
		if feeValue.IsNegative() || feeValue.GreaterThan(shared.Hundred) {
			return decimal.Zero, fmt.Errorf("%w: fee percentage out of range", shared.ErrValidation)
		}
		return shared.Round2(paymentAmount.Mul(feeValue).Div(shared.Hundred)), nil
	case FeeFixed:
		if feeValue.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: fixed fee must be >= 0", shared.ErrValidation)
		}
		return shared.Round2(feeValue), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: fee type %q", shared.ErrValidation, feeType)
	}
}

// Liquidate computes the fee and, when positive, moves it master→admin
// as an admin_fee_liquidation movement. A zero fee is a no-op.
func (e *FeeEngine) Liquidate(ctx context.Context, in LiquidationInput) (*FeeResult, error) {
	if !in.Currency.Valid() {
		return nil, fmt.Errorf("%w: currency %q", shared.ErrValidation, in.Currency)
	}
	if !in.PaymentAmount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be > 0", shared.ErrValidation)
	}
	fee, err := ComputeFee(in.PaymentAmount, in.FeeType, in.FeeValue)
	if err != nil {
		return nil, err
	}
	if fee.IsZero() {
		return &FeeResult{Fee: decimal.Zero, Currency: in.Currency}, nil
	}
	return e.coord.liquidateFee(ctx, in, fee)
}

// LiquidateAfterPayment runs a liquidation for a payment that already
// committed. A failure here must not undo the payment: it is logged,
// counted, and reported back as a warning for manual reconciliation.
func (e *FeeEngine) LiquidateAfterPayment(ctx context.Context, in LiquidationInput) (*FeeResult, string) {
	result, err := e.Liquidate(ctx, in)
	if err != nil {
		e.logger.Warn("fee liquidation failed after committed payment",
			slog.String("project_id", in.ProjectID.String()),
			slog.Any("error", err))
		e.coord.metrics.ObserveFeeWarning()
		return nil, shared.UserSafeMessage(err)
	}
	return result, ""
}
