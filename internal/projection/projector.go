package projection

import (
	"log/slog"
	"math"

	"github.com/shopspring/decimal"

	"github.com/oladayo-ade/solarbill/internal/bill"
)

// Production/unit-cost provenance values.
const (
	SourceModeled   = "modeled"   // external production-modeling collaborator
	SourceEstimated = "estimated" // fixed-yield heuristic

	UnitCostFromTiers   = "tiers"
	UnitCostFromUsage   = "usage"
	UnitCostFromAverage = "national_average"
)

// Config holds the fixed constants of the model. Nothing here is ever
// inferred from extracted data.
type Config struct {
	DegradationRate     float64
	HorizonYears        int
	TaxCreditRate       float64
	CostPerKW           decimal.Decimal
	NationalAverageRate decimal.Decimal
	YieldKWhPerKW       float64
}

// YearCashFlow is one year of the projection.
type YearCashFlow struct {
	Year              int             `json:"year"`
	ProductionKWh     float64         `json:"production_kwh"`
	Savings           decimal.Decimal `json:"savings"`
	CumulativeSavings decimal.Decimal `json:"cumulative_savings"`
}

// Projection is the derived financial model. Read-only once computed.
type Projection struct {
	SystemSizeKW        float64               `json:"system_size_kw"`
	AnnualProductionKWh float64               `json:"annual_production_kwh"`
	ProductionSource    string                `json:"production_source"`
	UnitCost            decimal.Decimal       `json:"unit_cost"`
	UnitCostSource      string                `json:"unit_cost_source"`
	Years               []YearCashFlow        `json:"years"`
	TotalSavings        decimal.Decimal       `json:"total_savings"`
	GrossCost           decimal.Decimal       `json:"gross_cost"`
	NetCost             decimal.Decimal       `json:"net_cost"`
	PaybackYears        float64               `json:"payback_years"`
	Battery             BatteryRecommendation `json:"battery"`
}

// Projector derives the cash-flow and environmental model from a bill record.
type Projector struct {
	logger *slog.Logger
	cfg    Config
}

func NewProjector(cfg Config, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HorizonYears <= 0 {
		cfg.HorizonYears = 25
	}
	if cfg.YieldKWhPerKW <= 0 {
		cfg.YieldKWhPerKW = 1400
	}
	return &Projector{logger: logger, cfg: cfg}
}

// SystemSizeKW sizes a system to offset the record's annualized usage at the
// heuristic yield, rounded to quarter kilowatts with a 1 kW floor. Returns 0
// when there is no usage to size from.
func (p *Projector) SystemSizeKW(rec *bill.BillRecord) float64 {
	if rec.Usage.Len() == 0 {
		return 0
	}
	annualKWh := rec.Usage.Mean() * 12
	if annualKWh <= 0 {
		return 0
	}
	size := annualKWh / p.cfg.YieldKWhPerKW
	size = math.Round(size*4) / 4
	if size < 1 {
		size = 1
	}
	return size
}

// EstimateProduction is the fixed heuristic used when the external modeler is
// unavailable.
func (p *Projector) EstimateProduction(systemKW float64) float64 {
	return systemKW * p.cfg.YieldKWhPerKW
}

// UnitCost derives the effective $/kWh with decreasing data fidelity:
// weighted tier average, then new_charges over mean monthly usage, then the
// national-average constant.
func (p *Projector) UnitCost(rec *bill.BillRecord) (decimal.Decimal, string) {
	if len(rec.Tiers) > 0 {
		var weighted, totalKWh decimal.Decimal
		for _, t := range rec.Tiers {
			kwh := decimal.NewFromFloat(t.ConsumptionKWh)
			weighted = weighted.Add(t.Rate.Mul(kwh))
			totalKWh = totalKWh.Add(kwh)
		}
		if totalKWh.IsPositive() {
			return weighted.Div(totalKWh).Round(4), UnitCostFromTiers
		}
	}
	if mean := rec.Usage.Mean(); mean > 0 && rec.NewCharges.IsPositive() {
		return rec.NewCharges.Div(decimal.NewFromFloat(mean)).Round(4), UnitCostFromUsage
	}
	return p.cfg.NationalAverageRate, UnitCostFromAverage
}

// Project runs the full model. annualProductionKWh comes from the external
// modeler when modeled is true, from EstimateProduction otherwise. A missing
// upstream input returns (nil, reason) rather than an error, so the pipeline
// still reports the extracted bill data.
func (p *Projector) Project(rec *bill.BillRecord, annualProductionKWh float64, modeled bool) (*Projection, string) {
	if rec.Usage.Len() == 0 {
		return nil, "no usage data to size a system from"
	}
	systemKW := p.SystemSizeKW(rec)
	if systemKW <= 0 || annualProductionKWh <= 0 {
		return nil, "no production estimate derivable"
	}

	unitCost, costSource := p.UnitCost(rec)
	if !unitCost.IsPositive() {
		return nil, "no positive unit cost derivable"
	}

	source := SourceEstimated
	if modeled {
		source = SourceModeled
	}

	years := make([]YearCashFlow, 0, p.cfg.HorizonYears)
	cumulative := decimal.Zero
	for year := 1; year <= p.cfg.HorizonYears; year++ {
		production := annualProductionKWh * math.Pow(1-p.cfg.DegradationRate, float64(year-1))
		savings := unitCost.Mul(decimal.NewFromFloat(production)).Round(2)
		cumulative = cumulative.Add(savings)
		years = append(years, YearCashFlow{
			Year:              year,
			ProductionKWh:     production,
			Savings:           savings,
			CumulativeSavings: cumulative,
		})
	}

	gross := p.cfg.CostPerKW.Mul(decimal.NewFromFloat(systemKW)).Round(2)
	net := gross.Mul(decimal.NewFromFloat(1 - p.cfg.TaxCreditRate)).Round(2)

	// Simple payback: net cost against the first-year savings run-rate.
	payback := 0.0
	if y1, _ := years[0].Savings.Float64(); y1 > 0 {
		netF, _ := net.Float64()
		payback = math.Round(netF/y1*10) / 10
	}

	proj := &Projection{
		SystemSizeKW:        systemKW,
		AnnualProductionKWh: annualProductionKWh,
		ProductionSource:    source,
		UnitCost:            unitCost,
		UnitCostSource:      costSource,
		Years:               years,
		TotalSavings:        cumulative,
		GrossCost:           gross,
		NetCost:             net,
		PaybackYears:        payback,
		Battery:             RecommendBattery(&rec.Usage),
	}

	p.logger.Info("projection.ok",
		"system_kw", systemKW,
		"annual_kwh", annualProductionKWh,
		"production_source", source,
		"unit_cost", unitCost.String(),
		"unit_cost_source", costSource,
		"net_cost", net.String(),
		"payback_years", payback,
	)
	return proj, ""
}
