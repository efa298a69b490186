package shared

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is one of the two ledger currencies. The studio operates in
// Argentine pesos with US dollars as the hard-currency alternative.
type Currency string

const (
	ARS Currency = "ARS"
	USD Currency = "USD"
)

// Valid reports whether the currency is one the ledger accepts.
func (c Currency) Valid() bool { return c == ARS || c == USD }

// ParseCurrency validates a raw currency code.
func ParseCurrency(raw string) (Currency, error) {
	c := Currency(raw)
	if !c.Valid() {
		return "", fmt.Errorf("%w: currency %q", ErrValidation, raw)
	}
	return c, nil
}

// Round2 rounds an amount to 2-decimal money precision. All persisted
// amounts and all percentage comparisons go through this.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount parses a positive money amount from its string form.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q", ErrValidation, raw)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be > 0", ErrValidation)
	}
	return Round2(d), nil
}

// FormatAmount renders an amount with currency symbol and separators,
// e.g. "ARS 1,234.50". Display only, never parsed back.
func FormatAmount(d decimal.Decimal, c Currency) string {
	cur := money.GetCurrency(string(c))
	if cur == nil {
		return d.StringFixed(2) + " " + string(c)
	}
	minor := Round2(d).Shift(int32(cur.Fraction))
	return money.New(minor.IntPart(), string(c)).Display()
}

// Hundred is the percentage cap used by equity validation.
var Hundred = decimal.NewFromInt(100)
