package bill

import (
	"log/slog"
)

// MinObservedForImputation is the floor below which mean imputation is
// unreliable and the series is left as-is.
const MinObservedForImputation = 3

// ImputationEngine completes a 12-month usage series by mean imputation.
type ImputationEngine struct {
	logger *slog.Logger
}

func NewImputationEngine(logger *slog.Logger) *ImputationEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImputationEngine{logger: logger}
}

// Complete fills every absent month of the 12-month window ending at the
// latest observed month with the arithmetic mean of observed values, tagging
// the additions as imputed. With fewer than three observed months it is a
// no-op: too little data to estimate from, surfaced as a confidence penalty
// instead of a guess. Observed entries are never removed or overwritten.
// Returns the number of months filled.
func (e *ImputationEngine) Complete(s *UsageSeries) int {
	observed := s.ObservedCount()
	if observed < MinObservedForImputation {
		e.logger.Info("impute.skipped", "observed_months", observed)
		return 0
	}

	latest, ok := s.LatestMonth()
	if !ok {
		return 0
	}
	// Filling around entries older than the window would push the series past
	// twelve entries; such a series is left alone.
	windowStart := latest.AddDate(0, -11, 0).Format("2006-01")
	for _, entry := range s.Entries {
		if entry.Month < windowStart {
			e.logger.Info("impute.skipped", "reason", "months span more than one year")
			return 0
		}
	}
	mean := s.ObservedMean()

	filled := 0
	for i := 0; i < 12; i++ {
		month := latest.AddDate(0, -i, 0).Format("2006-01")
		if s.Has(month) {
			continue
		}
		if err := s.Add(month, mean, true); err != nil {
			continue
		}
		filled++
	}

	e.logger.Info("impute.ok",
		"observed_months", observed,
		"imputed_months", filled,
		"mean_kwh", mean,
	)
	return filled
}
