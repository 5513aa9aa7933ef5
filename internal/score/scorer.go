package score

import (
	"log/slog"
	"math"

	"github.com/oladayo-ade/solarbill/internal/parse"
)

// Penalty weights. The parser's null-safe layer dominates: a defaulted
// mapping carries no extracted signal at all.
const (
	penaltyLayerTolerant    = 15
	penaltyLayerDefault     = 60
	penaltySchemaInvalid    = 5
	penaltyImputationMax    = 30 // scaled by imputed/12
	penaltyInsufficientData = 20 // imputation skipped, <3 observed months
	penaltyPerFallback      = 8
	maxFallbackPenalty      = 24
	penaltyPerDegradedAPI   = 5
	penaltyPerRecordFlag    = 5
	maxRecordFlagPenalty    = 10
)

// Signals are the inputs aggregated into one confidence score.
type Signals struct {
	ParseLayer        parse.Layer
	SchemaValid       bool
	ImputedMonths     int
	InsufficientUsage bool // fewer than 3 observed months, imputation skipped
	FallbackDepth     int  // providers that failed before one succeeded
	GeocodeDegraded   bool
	ModelDegraded     bool
	RecordFlags       int
}

// Scorer aggregates signals into a 0-100 score and a review decision.
type Scorer struct {
	logger    *slog.Logger
	threshold int
}

func NewScorer(threshold int, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	if threshold <= 0 {
		threshold = 70
	}
	return &Scorer{logger: logger, threshold: threshold}
}

// Score returns the confidence score and whether the result needs human
// review. The review tag, not the raw score, drives downstream auto-approval.
func (s *Scorer) Score(sig Signals) (int, bool) {
	score := 100

	switch sig.ParseLayer {
	case parse.LayerTolerant:
		score -= penaltyLayerTolerant
	case parse.LayerDefault:
		score -= penaltyLayerDefault
	}
	if !sig.SchemaValid && sig.ParseLayer != parse.LayerDefault {
		score -= penaltySchemaInvalid
	}

	if sig.ImputedMonths > 0 {
		score -= int(math.Round(penaltyImputationMax * float64(sig.ImputedMonths) / 12.0))
	}
	if sig.InsufficientUsage {
		score -= penaltyInsufficientData
	}

	fallback := sig.FallbackDepth * penaltyPerFallback
	if fallback > maxFallbackPenalty {
		fallback = maxFallbackPenalty
	}
	score -= fallback

	if sig.GeocodeDegraded {
		score -= penaltyPerDegradedAPI
	}
	if sig.ModelDegraded {
		score -= penaltyPerDegradedAPI
	}

	flags := sig.RecordFlags * penaltyPerRecordFlag
	if flags > maxRecordFlagPenalty {
		flags = maxRecordFlagPenalty
	}
	score -= flags

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	needsReview := score < s.threshold
	s.logger.Info("score.ok",
		"score", score,
		"needs_review", needsReview,
		"parse_layer", int(sig.ParseLayer),
		"imputed_months", sig.ImputedMonths,
		"fallback_depth", sig.FallbackDepth,
	)
	return score, needsReview
}
