package projection

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oladayo-ade/solarbill/internal/bill"
)

func testConfig() Config {
	return Config{
		DegradationRate:     0.005,
		HorizonYears:        25,
		TaxCreditRate:       0.30,
		CostPerKW:           decimal.RequireFromString("2800"),
		NationalAverageRate: decimal.RequireFromString("0.17"),
		YieldKWhPerKW:       1400,
	}
}

func newTestProjector(t *testing.T) *Projector {
	t.Helper()
	return NewProjector(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func recordWithUsage(t *testing.T, monthlyKWh float64, months int) *bill.BillRecord {
	t.Helper()
	rec := &bill.BillRecord{
		NewCharges: decimal.RequireFromString("187.42"),
		AmountDue:  decimal.RequireFromString("210.44"),
	}
	seq := []string{
		"2023-09", "2023-10", "2023-11", "2023-12", "2024-01", "2024-02",
		"2024-03", "2024-04", "2024-05", "2024-06", "2024-07", "2024-08",
	}
	for i := 0; i < months; i++ {
		require.NoError(t, rec.Usage.Add(seq[i], monthlyKWh, false))
	}
	return rec
}

func TestSystemSizeKW(t *testing.T) {
	p := newTestProjector(t)

	tests := []struct {
		name       string
		monthlyKWh float64
		months     int
		want       float64
	}{
		{"typical home", 1000, 12, 8.5},   // 12000 kWh/yr at 1400 kWh/kW
		{"small load floors at 1", 50, 12, 1},
		{"quarter-kw rounding", 520, 12, 4.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := recordWithUsage(t, tt.monthlyKWh, tt.months)
			assert.Equal(t, tt.want, p.SystemSizeKW(rec))
		})
	}

	assert.Zero(t, p.SystemSizeKW(&bill.BillRecord{}))
}

func TestUnitCostPrefersWeightedTierAverage(t *testing.T) {
	p := newTestProjector(t)

	rec := recordWithUsage(t, 520, 12)
	rec.Tiers = []bill.RateTier{
		{Name: "Tier 1", ConsumptionKWh: 300, Rate: decimal.RequireFromString("0.26")},
		{Name: "Tier 2", ConsumptionKWh: 220, Rate: decimal.RequireFromString("0.31")},
	}

	cost, source := p.UnitCost(rec)
	assert.Equal(t, UnitCostFromTiers, source)
	assert.Equal(t, "0.2812", cost.String())
}

func TestUnitCostFallsBackToUsageThenAverage(t *testing.T) {
	p := newTestProjector(t)

	// No tiers: new_charges over mean monthly usage.
	rec := recordWithUsage(t, 520, 12)
	cost, source := p.UnitCost(rec)
	assert.Equal(t, UnitCostFromUsage, source)
	assert.Equal(t, "0.3604", cost.String())

	// No tiers, no usage: national average constant.
	cost, source = p.UnitCost(&bill.BillRecord{})
	assert.Equal(t, UnitCostFromAverage, source)
	assert.True(t, cost.Equal(decimal.RequireFromString("0.17")))
}

func TestProjectProducesDegradingCashFlow(t *testing.T) {
	p := newTestProjector(t)

	rec := recordWithUsage(t, 1000, 12)
	rec.Tiers = []bill.RateTier{
		{Name: "Tier 1", ConsumptionKWh: 300, Rate: decimal.RequireFromString("0.26")},
		{Name: "Tier 2", ConsumptionKWh: 220, Rate: decimal.RequireFromString("0.31")},
	}

	proj, skipped := p.Project(rec, 11900, false)
	require.NotNil(t, proj)
	assert.Empty(t, skipped)

	assert.Equal(t, 8.5, proj.SystemSizeKW)
	assert.Equal(t, SourceEstimated, proj.ProductionSource)
	assert.Equal(t, UnitCostFromTiers, proj.UnitCostSource)
	require.Len(t, proj.Years, 25)

	// Year 1 runs at full production; each later year degrades.
	assert.Equal(t, float64(11900), proj.Years[0].ProductionKWh)
	for i := 1; i < len(proj.Years); i++ {
		assert.Less(t, proj.Years[i].ProductionKWh, proj.Years[i-1].ProductionKWh)
		assert.True(t, proj.Years[i].CumulativeSavings.GreaterThan(proj.Years[i-1].CumulativeSavings))
	}
	assert.InDelta(t, 11900*0.995, proj.Years[1].ProductionKWh, 1e-9)
	assert.True(t, proj.TotalSavings.Equal(proj.Years[24].CumulativeSavings))

	assert.True(t, proj.GrossCost.Equal(decimal.RequireFromString("23800")), "got %s", proj.GrossCost)
	assert.True(t, proj.NetCost.Equal(decimal.RequireFromString("16660")), "got %s", proj.NetCost)
	assert.InDelta(t, 5.0, proj.PaybackYears, 1e-9)
}

func TestProjectSkipsWithoutInputs(t *testing.T) {
	p := newTestProjector(t)

	proj, skipped := p.Project(&bill.BillRecord{}, 11900, true)
	assert.Nil(t, proj)
	assert.NotEmpty(t, skipped)

	proj, skipped = p.Project(recordWithUsage(t, 1000, 12), 0, false)
	assert.Nil(t, proj)
	assert.NotEmpty(t, skipped)
}

func TestProjectMarksModeledProduction(t *testing.T) {
	p := newTestProjector(t)

	proj, skipped := p.Project(recordWithUsage(t, 1000, 12), 12500, true)
	require.NotNil(t, proj)
	assert.Empty(t, skipped)
	assert.Equal(t, SourceModeled, proj.ProductionSource)
	assert.Equal(t, float64(12500), proj.AnnualProductionKWh)
}

func TestRecommendBattery(t *testing.T) {
	var heavy bill.UsageSeries
	for i, m := range []string{"2024-01", "2024-02", "2024-03"} {
		require.NoError(t, heavy.Add(m, 900+float64(i)*200, false))
	}
	rec := RecommendBattery(&heavy)
	assert.True(t, rec.Recommended)
	assert.Greater(t, rec.CapacityKWh, 3.0)

	var light bill.UsageSeries
	for _, m := range []string{"2024-01", "2024-02", "2024-03"} {
		require.NoError(t, light.Add(m, 100, false))
	}
	rec = RecommendBattery(&light)
	assert.False(t, rec.Recommended)
	assert.Zero(t, rec.CapacityKWh)

	rec = RecommendBattery(&bill.UsageSeries{})
	assert.False(t, rec.Recommended)
	assert.Equal(t, "no usage data", rec.Reason)
}
