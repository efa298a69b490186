package installments

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/obralink/obralink/internal/shared"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestGenerateScheduleMonthlyWithDownPayment(t *testing.T) {
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries, err := GenerateSchedule(ScheduleParams{
		Total:       d("100000"),
		DownPayment: d("20000"),
		Count:       12,
		Frequency:   FrequencyMonthly,
		FirstDate:   first,
	})
	require.NoError(t, err)
	require.Len(t, entries, 13)

	require.Equal(t, 0, entries[0].Number)
	require.True(t, entries[0].Amount.Equal(d("20000")))
	require.Equal(t, first, entries[0].DueDate)

	require.Equal(t, 1, entries[1].Number)
	require.True(t, entries[1].Amount.Equal(d("6666.67")), "got %s", entries[1].Amount)

	last := entries[12]
	require.Equal(t, 12, last.Number)
	require.True(t, last.Amount.Equal(d("6666.63")), "got %s", last.Amount)
	require.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), last.DueDate)

	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	require.True(t, sum.Equal(d("100000")), "schedule must sum to total, got %s", sum)
}

func TestGenerateScheduleRoundTripWithinTolerance(t *testing.T) {
	cases := []struct {
		total, down string
		count       int
	}{
		{"100000", "0", 7},
		{"99999.99", "333.33", 3},
		{"50000", "12500", 9},
		{"1", "0", 3},
	}
	for _, tc := range cases {
		entries, err := GenerateSchedule(ScheduleParams{
			Total:       d(tc.total),
			DownPayment: d(tc.down),
			Count:       tc.count,
			Frequency:   FrequencyMonthly,
			FirstDate:   time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		sum := decimal.Zero
		for _, e := range entries {
			sum = sum.Add(e.Amount)
		}
		require.True(t, sum.Sub(d(tc.total)).Abs().LessThanOrEqual(d("0.01")),
			"total=%s count=%d sum=%s", tc.total, tc.count, sum)
	}
}

func TestGenerateScheduleFrequencies(t *testing.T) {
	first := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	weekly, err := GenerateSchedule(ScheduleParams{
		Total: d("900"), Count: 3, Frequency: FrequencyWeekly, FirstDate: first,
	})
	require.NoError(t, err)
	require.Equal(t, first.AddDate(0, 0, 14), weekly[2].DueDate)

	biweekly, err := GenerateSchedule(ScheduleParams{
		Total: d("900"), Count: 3, Frequency: FrequencyBiweekly, FirstDate: first,
	})
	require.NoError(t, err)
	require.Equal(t, first.AddDate(0, 0, 28), biweekly[2].DueDate)

	quarterly, err := GenerateSchedule(ScheduleParams{
		Total: d("900"), Count: 3, Frequency: FrequencyQuarterly, FirstDate: first,
	})
	require.NoError(t, err)
	require.Equal(t, first.AddDate(0, 6, 0), quarterly[2].DueDate)

	// Dates anchor at first + step*unit, so a month-end start does not
	// drift through short months.
	monthly, err := GenerateSchedule(ScheduleParams{
		Total: d("900"), Count: 3, Frequency: FrequencyMonthly, FirstDate: first,
	})
	require.NoError(t, err)
	require.Equal(t, first.AddDate(0, 2, 0), monthly[2].DueDate)
}

func TestGenerateScheduleDownPaymentDate(t *testing.T) {
	first := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	signing := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)
	entries, err := GenerateSchedule(ScheduleParams{
		Total:           d("10000"),
		DownPayment:     d("1000"),
		Count:           3,
		Frequency:       FrequencyMonthly,
		FirstDate:       first,
		DownPaymentDate: signing,
	})
	require.NoError(t, err)
	require.Equal(t, signing, entries[0].DueDate)
	require.Equal(t, first, entries[1].DueDate)
}

func TestGenerateScheduleValidation(t *testing.T) {
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := GenerateSchedule(ScheduleParams{Total: d("0"), Count: 3, Frequency: FrequencyMonthly, FirstDate: first})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = GenerateSchedule(ScheduleParams{Total: d("100"), DownPayment: d("100"), Count: 3, Frequency: FrequencyMonthly, FirstDate: first})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = GenerateSchedule(ScheduleParams{Total: d("100"), Count: 0, Frequency: FrequencyMonthly, FirstDate: first})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = GenerateSchedule(ScheduleParams{Total: d("100"), Count: 3, Frequency: "daily", FirstDate: first})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = GenerateSchedule(ScheduleParams{Total: d("100"), Count: 3, Frequency: FrequencyMonthly})
	require.ErrorIs(t, err, shared.ErrValidation)
}
