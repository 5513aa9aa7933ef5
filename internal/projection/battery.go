package projection

import (
	"math"

	"github.com/oladayo-ade/solarbill/internal/bill"
)

const (
	daysPerMonth = 30.44
	// peakShareFraction is the slice of average daily load a peak-shaving
	// battery should cover on top of day-to-day variability.
	peakShareFraction = 0.35
	// minUsefulCapacityKWh is the floor below which storage is not worth
	// recommending for peak shaving.
	minUsefulCapacityKWh = 3.0
)

// BatteryRecommendation sizes storage for peak-shaving from usage variance
// across the (possibly imputed) series.
type BatteryRecommendation struct {
	Recommended bool    `json:"recommended"`
	CapacityKWh float64 `json:"capacity_kwh,omitempty"`
	Reason      string  `json:"reason"`
}

// RecommendBattery derives a capacity from the daily-average load plus one
// standard deviation of daily variability, rounded to half kilowatt-hours.
func RecommendBattery(s *bill.UsageSeries) BatteryRecommendation {
	if s.Len() == 0 {
		return BatteryRecommendation{Reason: "no usage data"}
	}

	dailyMean := s.Mean() / daysPerMonth
	dailyStd := s.StdDev() / daysPerMonth

	capacity := dailyMean*peakShareFraction + dailyStd
	capacity = math.Round(capacity*2) / 2

	if capacity < minUsefulCapacityKWh {
		return BatteryRecommendation{
			Reason: "daily load too flat for peak shaving to pay off",
		}
	}
	return BatteryRecommendation{
		Recommended: true,
		CapacityKWh: capacity,
		Reason:      "sized to shave daily peak plus usage variability",
	}
}
