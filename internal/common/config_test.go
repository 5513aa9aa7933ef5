package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := LoadConfig()

	assert.Equal(t, []string{"anthropic", "openai"}, cfg.Providers.VisionPriority)
	assert.Equal(t, []string{"openai", "anthropic"}, cfg.Providers.TextPriority)
	assert.Equal(t, 45*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, 1500, cfg.Providers.MaxOutputTokens)

	assert.Equal(t, 0.005, cfg.Financial.DegradationRate)
	assert.Equal(t, 25, cfg.Financial.HorizonYears)
	assert.Equal(t, 0.30, cfg.Financial.TaxCreditRate)
	assert.Equal(t, "2800", cfg.Financial.CostPerKW.String())
	assert.Equal(t, "0.17", cfg.Financial.NationalAverageRate.String())
	assert.Equal(t, 1400.0, cfg.Financial.YieldKWhPerKW)

	assert.Equal(t, 70, cfg.Pipeline.ReviewThreshold)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("TEXT_PRIORITY", "anthropic, openai")
	t.Setenv("PROVIDER_TIMEOUT", "10s")
	t.Setenv("REVIEW_THRESHOLD", "85")
	t.Setenv("COST_PER_KW", "3100.50")

	cfg := LoadConfig()

	assert.Equal(t, []string{"anthropic", "openai"}, cfg.Providers.TextPriority)
	assert.Equal(t, 10*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, 85, cfg.Pipeline.ReviewThreshold)
	assert.Equal(t, "3100.5", cfg.Financial.CostPerKW.String())
}

func TestLoadConfigYAMLOverlay(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := filepath.Join(t.TempDir(), "solarbill.yaml")
	overlay := `
vision_priority: [openai]
text_priority: [openai]
financial:
  degradation_rate: 0.007
  cost_per_kw: "2500"
review_threshold: 60
`
	require.NoError(t, os.WriteFile(path, []byte(overlay), 0o644))
	t.Setenv("SOLARBILL_CONFIG", path)

	cfg := LoadConfig()

	assert.Equal(t, []string{"openai"}, cfg.Providers.VisionPriority)
	assert.Equal(t, 0.007, cfg.Financial.DegradationRate)
	assert.Equal(t, "2500", cfg.Financial.CostPerKW.String())
	assert.Equal(t, 60, cfg.Pipeline.ReviewThreshold)
	// Untouched by the overlay.
	assert.Equal(t, 25, cfg.Financial.HorizonYears)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		t.Setenv("OPENAI_API_KEY", "sk-test")
		return LoadConfig()
	}

	t.Run("no provider keys", func(t *testing.T) {
		cfg := base()
		cfg.Providers.OpenAIKey = ""
		cfg.Providers.AnthropicKey = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad degradation rate", func(t *testing.T) {
		cfg := base()
		cfg.Financial.DegradationRate = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad review threshold", func(t *testing.T) {
		cfg := base()
		cfg.Pipeline.ReviewThreshold = 101
		assert.Error(t, cfg.Validate())
	})
}
