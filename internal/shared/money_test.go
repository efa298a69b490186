package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency("ARS")
	require.NoError(t, err)
	require.Equal(t, ARS, c)

	_, err = ParseCurrency("EUR")
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseCurrency("")
	require.ErrorIs(t, err, ErrValidation)
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("6666.666")
	require.NoError(t, err)
	require.True(t, d.Equal(decimal.RequireFromString("6666.67")))

	_, err = ParseAmount("0")
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseAmount("-12")
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseAmount("abc")
	require.ErrorIs(t, err, ErrValidation)
}

func TestFormatAmount(t *testing.T) {
	out := FormatAmount(decimal.RequireFromString("1234.5"), USD)
	require.Contains(t, out, "1,234.50")
}

func TestEquityLockKeyStable(t *testing.T) {
	a := EquityLockKey("p-1")
	b := EquityLockKey("p-1")
	c := EquityLockKey("p-2")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}
