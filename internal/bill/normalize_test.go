package bill

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oladayo-ade/solarbill/internal/common"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	return NewNormalizer(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNormalizeRejectsRecordWithoutAnyChargeAmount(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name   string
		fields map[string]any
	}{
		{"both absent", map[string]any{"account_number": "ACCT-1"}},
		{"both non-numeric", map[string]any{"new_charges": "n/a", "amount_due": "unknown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := n.Normalize(tt.fields)
			assert.Nil(t, rec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrUnprocessableRecord))

			var unprocessable *UnprocessableError
			assert.True(t, errors.As(err, &unprocessable))
		})
	}
}

func TestNormalizeOneAmountStandsInForTheOther(t *testing.T) {
	n := newTestNormalizer(t)

	rec, err := n.Normalize(map[string]any{"amount_due": "210.44"})
	require.NoError(t, err)
	assert.True(t, rec.NewCharges.Equal(decimal.RequireFromString("210.44")))
	assert.True(t, rec.AmountDue.Equal(decimal.RequireFromString("210.44")))

	rec, err = n.Normalize(map[string]any{"new_charges": "187.42"})
	require.NoError(t, err)
	assert.True(t, rec.AmountDue.Equal(decimal.RequireFromString("187.42")))
}

func TestNormalizeCoercions(t *testing.T) {
	n := newTestNormalizer(t)

	rec, err := n.Normalize(map[string]any{
		"account_number":       "  ACCT-9 ",
		"new_charges":          "$1,187.425",
		"amount_due":           float64(1200),
		"billing_period_start": "03/15/2024",
		"billing_period_end":   "April 14, 2024",
		"tiers": []any{
			map[string]any{"name": "Tier 1", "consumption_kwh": float64(300), "rate": "0.26"},
			map[string]any{"name": "", "consumption_kwh": float64(100), "rate": "0.30"},
			map[string]any{"name": "Tier X", "consumption_kwh": float64(-5), "rate": "0.30"},
		},
		"monthly_usage": map[string]any{
			"Jan 2024": float64(480),
			"2024-02":  float64(500),
			"bogus":    float64(9),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "ACCT-9", rec.AccountNumber)
	assert.True(t, rec.NewCharges.Equal(decimal.RequireFromString("1187.43")), "got %s", rec.NewCharges)
	assert.True(t, rec.AmountDue.Equal(decimal.RequireFromString("1200")))
	assert.Equal(t, "2024-03-15", rec.PeriodStart)
	assert.Equal(t, "2024-04-14", rec.PeriodEnd)

	require.Len(t, rec.Tiers, 1)
	assert.Equal(t, "Tier 1", rec.Tiers[0].Name)

	require.Equal(t, 2, rec.Usage.Len())
	assert.Equal(t, "2024-01", rec.Usage.Entries[0].Month)
	assert.Equal(t, "2024-02", rec.Usage.Entries[1].Month)
	assert.False(t, rec.Usage.Entries[0].Imputed)
}

func TestNormalizeFlagsAnomaliesInsteadOfRejecting(t *testing.T) {
	n := newTestNormalizer(t)

	rec, err := n.Normalize(map[string]any{
		"new_charges": "187.42",
		"amount_due":  "150.00", // below new charges: unusual, not invalid
	})
	require.NoError(t, err)
	assert.True(t, rec.Flagged(FlagAmountDueBelowNewCharges))
	assert.True(t, rec.Flagged(FlagMissingBillingPeriod))

	rec, err = n.Normalize(map[string]any{
		"new_charges":          "187.42",
		"amount_due":           "210.44",
		"billing_period_start": "2024-03-01",
		"billing_period_end":   "2024-03-31",
	})
	require.NoError(t, err)
	assert.Empty(t, rec.Flags)
}

func TestNormalizeCapsUsageAtTwelveMonths(t *testing.T) {
	n := newTestNormalizer(t)

	usage := map[string]any{}
	months := []string{
		"2023-01", "2023-02", "2023-03", "2023-04", "2023-05", "2023-06",
		"2023-07", "2023-08", "2023-09", "2023-10", "2023-11", "2023-12",
		"2024-01", "2024-02",
	}
	for _, m := range months {
		usage[m] = float64(500)
	}

	rec, err := n.Normalize(map[string]any{
		"amount_due":    "100.00",
		"monthly_usage": usage,
	})
	require.NoError(t, err)
	assert.Equal(t, 12, rec.Usage.Len())
}

func TestNormalizeBoundsUsageToOneCalendarYear(t *testing.T) {
	n := newTestNormalizer(t)

	rec, err := n.Normalize(map[string]any{
		"amount_due": "100.00",
		"monthly_usage": map[string]any{
			"2023-01": float64(400),
			"2023-06": float64(450),
			"2024-03": float64(500),
		},
	})
	require.NoError(t, err)

	// Only the year ending at the latest month survives.
	assert.Equal(t, 2, rec.Usage.Len())
	assert.False(t, rec.Usage.Has("2023-01"))
	assert.True(t, rec.Usage.Has("2023-06"))
	assert.True(t, rec.Usage.Has("2024-03"))
}

func TestUsageSeriesRejectsDuplicateMonths(t *testing.T) {
	var s UsageSeries
	require.NoError(t, s.Add("2024-01", 480, false))
	assert.Error(t, s.Add("2024-01", 500, false))
	assert.Equal(t, 1, s.Len())
}
