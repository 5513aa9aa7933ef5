package constants

// Defaults for the financial model. All of these are overridable through
// configuration; none are ever inferred from extracted data.
const (
	// DefaultDegradationRate is the fixed annual decline in panel output.
	DefaultDegradationRate = 0.005

	// DefaultHorizonYears is the projection horizon.
	DefaultHorizonYears = 25

	// DefaultTaxCreditRate is the federal investment tax credit applied to gross cost.
	DefaultTaxCreditRate = 0.30

	// DefaultCostPerKW is the installed system cost in $/kW.
	DefaultCostPerKW = "2800"

	// DefaultNationalAverageRate is the $/kWh fallback when no tier or usage
	// data yields an effective unit cost.
	DefaultNationalAverageRate = "0.17"

	// DefaultYieldKWhPerKW is the heuristic annual production per installed kW,
	// used when the production-modeling collaborator is unavailable.
	DefaultYieldKWhPerKW = 1400.0

	// DefaultReviewThreshold is the confidence cutoff below which a result is
	// tagged for human review.
	DefaultReviewThreshold = 70
)

// Regional-average coordinate substituted when geocoding fails.
const (
	FallbackLatitude  = 39.83
	FallbackLongitude = -98.58
)
