package score

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oladayo-ade/solarbill/internal/parse"
)

func newTestScorer(t *testing.T, threshold int) *Scorer {
	t.Helper()
	return NewScorer(threshold, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScorePenalties(t *testing.T) {
	s := newTestScorer(t, 70)

	tests := []struct {
		name       string
		sig        Signals
		wantScore  int
		wantReview bool
	}{
		{
			"clean run",
			Signals{ParseLayer: parse.LayerStrict, SchemaValid: true},
			100, false,
		},
		{
			"tolerant layer with invalid schema",
			Signals{ParseLayer: parse.LayerTolerant},
			80, false,
		},
		{
			"default layer dominates without double-counting schema",
			Signals{ParseLayer: parse.LayerDefault},
			40, true,
		},
		{
			"imputation scales with filled months",
			Signals{ParseLayer: parse.LayerStrict, SchemaValid: true, ImputedMonths: 4},
			90, false,
		},
		{
			"full imputation",
			Signals{ParseLayer: parse.LayerStrict, SchemaValid: true, ImputedMonths: 12},
			70, false,
		},
		{
			"insufficient usage",
			Signals{ParseLayer: parse.LayerStrict, SchemaValid: true, InsufficientUsage: true},
			80, false,
		},
		{
			"fallback depth is capped",
			Signals{ParseLayer: parse.LayerStrict, SchemaValid: true, FallbackDepth: 5},
			76, false,
		},
		{
			"degraded collaborators",
			Signals{ParseLayer: parse.LayerStrict, SchemaValid: true, GeocodeDegraded: true, ModelDegraded: true},
			90, false,
		},
		{
			"record flags are capped",
			Signals{ParseLayer: parse.LayerStrict, SchemaValid: true, RecordFlags: 4},
			90, false,
		},
		{
			"everything wrong clamps at zero",
			Signals{
				ParseLayer:        parse.LayerDefault,
				ImputedMonths:     12,
				InsufficientUsage: true,
				FallbackDepth:     10,
				GeocodeDegraded:   true,
				ModelDegraded:     true,
				RecordFlags:       5,
			},
			0, true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, review := s.Score(tt.sig)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantReview, review)
		})
	}
}

func TestScoreThresholdDrivesReview(t *testing.T) {
	sig := Signals{ParseLayer: parse.LayerTolerant} // scores 80

	_, review := newTestScorer(t, 70).Score(sig)
	assert.False(t, review)

	_, review = newTestScorer(t, 85).Score(sig)
	assert.True(t, review)
}
