package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/oladayo-ade/solarbill/constants"
)

// Config holds all application configuration. It is assembled once at startup
// and treated as immutable afterwards; the pipeline receives values from it,
// never the other way around.
type Config struct {
	Providers ProvidersConfig
	Financial FinancialConfig
	Pipeline  PipelineConfig
	Solar     SolarConfig
	Store     StoreConfig
	Server    ServerConfig
}

// ProvidersConfig holds extraction-backend settings and routing priorities.
type ProvidersConfig struct {
	OpenAIBaseURL string
	OpenAIKey     string
	OpenAIModel   string

	AnthropicBaseURL string
	AnthropicKey     string
	AnthropicModel   string

	// VisionPriority orders providers for image extraction, strongest
	// document-layout understanding first. TextPriority orders providers for
	// text-to-JSON extraction, cheapest first.
	VisionPriority []string
	TextPriority   []string

	Timeout         time.Duration
	MaxOutputTokens int
}

// FinancialConfig holds the fixed constants of the projection model.
type FinancialConfig struct {
	DegradationRate     float64
	HorizonYears        int
	TaxCreditRate       float64
	CostPerKW           decimal.Decimal
	NationalAverageRate decimal.Decimal
	YieldKWhPerKW       float64
}

// PipelineConfig holds batch-execution settings.
type PipelineConfig struct {
	Workers         int
	QueueSize       int
	ProcessTimeout  time.Duration
	ReviewThreshold int
	SpoolDirs       []string
}

// SolarConfig holds external collaborator endpoints.
type SolarConfig struct {
	GeocoderURL   string
	PVModelURL    string
	PVModelAPIKey string
	Timeout       time.Duration
}

// StoreConfig holds results-store settings.
type StoreConfig struct {
	Path string
}

// ServerConfig holds the daemon's listen settings.
type ServerConfig struct {
	MetricsAddr string
}

// fileConfig is the optional YAML overlay (SOLARBILL_CONFIG). Only routing
// priorities and financial constants are file-configurable; credentials stay
// in the environment.
type fileConfig struct {
	VisionPriority []string `yaml:"vision_priority"`
	TextPriority   []string `yaml:"text_priority"`
	Financial      struct {
		DegradationRate     *float64 `yaml:"degradation_rate"`
		HorizonYears        *int     `yaml:"horizon_years"`
		TaxCreditRate       *float64 `yaml:"tax_credit_rate"`
		CostPerKW           *string  `yaml:"cost_per_kw"`
		NationalAverageRate *string  `yaml:"national_average_rate"`
		YieldKWhPerKW       *float64 `yaml:"yield_kwh_per_kw"`
	} `yaml:"financial"`
	ReviewThreshold *int `yaml:"review_threshold"`
}

// LoadConfig loads configuration from environment variables, then applies the
// optional YAML overlay pointed at by SOLARBILL_CONFIG.
func LoadConfig() *Config {
	cfg := &Config{
		Providers: ProvidersConfig{
			OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
			VisionPriority:   getEnvAsList("VISION_PRIORITY", []string{"anthropic", "openai"}),
			TextPriority:     getEnvAsList("TEXT_PRIORITY", []string{"openai", "anthropic"}),
			Timeout:          getEnvAsDuration("PROVIDER_TIMEOUT", 45*time.Second),
			MaxOutputTokens:  getEnvAsInt("PROVIDER_MAX_OUTPUT_TOKENS", 1500),
		},
		Financial: FinancialConfig{
			DegradationRate:     getEnvAsFloat64("DEGRADATION_RATE", constants.DefaultDegradationRate),
			HorizonYears:        getEnvAsInt("HORIZON_YEARS", constants.DefaultHorizonYears),
			TaxCreditRate:       getEnvAsFloat64("TAX_CREDIT_RATE", constants.DefaultTaxCreditRate),
			CostPerKW:           getEnvAsDecimal("COST_PER_KW", constants.DefaultCostPerKW),
			NationalAverageRate: getEnvAsDecimal("NATIONAL_AVERAGE_RATE", constants.DefaultNationalAverageRate),
			YieldKWhPerKW:       getEnvAsFloat64("YIELD_KWH_PER_KW", constants.DefaultYieldKWhPerKW),
		},
		Pipeline: PipelineConfig{
			Workers:         getEnvAsInt("PIPELINE_WORKERS", 4),
			QueueSize:       getEnvAsInt("PIPELINE_QUEUE_SIZE", 256),
			ProcessTimeout:  getEnvAsDuration("PIPELINE_PROCESS_TIMEOUT", 3*time.Minute),
			ReviewThreshold: getEnvAsInt("REVIEW_THRESHOLD", constants.DefaultReviewThreshold),
			SpoolDirs:       getEnvAsList("SPOOL_DIRS", nil),
		},
		Solar: SolarConfig{
			GeocoderURL:   getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"),
			PVModelURL:    getEnv("PVMODEL_URL", "https://developer.nrel.gov/api/pvwatts/v8.json"),
			PVModelAPIKey: getEnv("PVMODEL_API_KEY", ""),
			Timeout:       getEnvAsDuration("SOLAR_API_TIMEOUT", 10*time.Second),
		},
		Store: StoreConfig{
			Path: getEnv("RESULTS_DB_PATH", "./solarbill.db"),
		},
		Server: ServerConfig{
			MetricsAddr: getEnv("METRICS_ADDR", ":9109"),
		},
	}

	if path := os.Getenv("SOLARBILL_CONFIG"); path != "" {
		cfg.applyFile(path)
	}
	return cfg
}

func (c *Config) applyFile(path string) {
	b, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return
	}
	if len(fc.VisionPriority) > 0 {
		c.Providers.VisionPriority = fc.VisionPriority
	}
	if len(fc.TextPriority) > 0 {
		c.Providers.TextPriority = fc.TextPriority
	}
	if fc.Financial.DegradationRate != nil {
		c.Financial.DegradationRate = *fc.Financial.DegradationRate
	}
	if fc.Financial.HorizonYears != nil {
		c.Financial.HorizonYears = *fc.Financial.HorizonYears
	}
	if fc.Financial.TaxCreditRate != nil {
		c.Financial.TaxCreditRate = *fc.Financial.TaxCreditRate
	}
	if fc.Financial.CostPerKW != nil {
		if d, err := decimal.NewFromString(*fc.Financial.CostPerKW); err == nil {
			c.Financial.CostPerKW = d
		}
	}
	if fc.Financial.NationalAverageRate != nil {
		if d, err := decimal.NewFromString(*fc.Financial.NationalAverageRate); err == nil {
			c.Financial.NationalAverageRate = d
		}
	}
	if fc.Financial.YieldKWhPerKW != nil {
		c.Financial.YieldKWhPerKW = *fc.Financial.YieldKWhPerKW
	}
	if fc.ReviewThreshold != nil {
		c.Pipeline.ReviewThreshold = *fc.ReviewThreshold
	}
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Providers.OpenAIKey == "" && c.Providers.AnthropicKey == "" {
		return NewAppError("CONFIG_ERROR", "at least one provider API key is required", ErrInvalidInput)
	}
	if len(c.Providers.VisionPriority) == 0 && len(c.Providers.TextPriority) == 0 {
		return NewAppError("CONFIG_ERROR", "provider priority lists are empty", ErrInvalidInput)
	}
	if c.Financial.HorizonYears <= 0 {
		return NewAppError("CONFIG_ERROR", "HORIZON_YEARS must be positive", ErrInvalidInput)
	}
	if c.Financial.DegradationRate <= 0 || c.Financial.DegradationRate >= 1 {
		return NewAppError("CONFIG_ERROR", "DEGRADATION_RATE must be in (0,1)", ErrInvalidInput)
	}
	if c.Pipeline.ReviewThreshold < 0 || c.Pipeline.ReviewThreshold > 100 {
		return NewAppError("CONFIG_ERROR", "REVIEW_THRESHOLD must be 0..100", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	d, _ := decimal.NewFromString(defaultValue)
	return d
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
