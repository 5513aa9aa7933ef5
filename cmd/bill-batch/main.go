package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/oladayo-ade/solarbill/constants"
	"github.com/oladayo-ade/solarbill/internal/async"
	"github.com/oladayo-ade/solarbill/internal/common"
	"github.com/oladayo-ade/solarbill/internal/export"
	"github.com/oladayo-ade/solarbill/internal/gateway"
	"github.com/oladayo-ade/solarbill/internal/ingest"
	"github.com/oladayo-ade/solarbill/internal/pipeline"
	"github.com/oladayo-ade/solarbill/internal/projection"
	"github.com/oladayo-ade/solarbill/internal/provider"
	"github.com/oladayo-ade/solarbill/internal/provider/anthropic"
	"github.com/oladayo-ade/solarbill/internal/provider/openai"
	"github.com/oladayo-ade/solarbill/internal/solar"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir     = flag.String("dir", "", "directory of bill documents to process (required)")
		out     = flag.String("out", "", "output XLSX file path (defaults to parent directory)")
		workers = flag.Int("workers", 0, "worker pool size (defaults to PIPELINE_WORKERS)")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "solar_extractions.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if *workers <= 0 {
		*workers = cfg.Pipeline.Workers
	}

	gw := buildGateway(cfg, logger)
	proc := pipeline.NewProcessor(logger, pipeline.Config{
		MaxOutputTokens: cfg.Providers.MaxOutputTokens,
		ReviewThreshold: cfg.Pipeline.ReviewThreshold,
		Financial:       financialConfig(cfg),
	}, pipeline.Deps{
		Gateway:  gw,
		Geocoder: solar.NewHTTPGeocoder(cfg.Solar.GeocoderURL, cfg.Solar.Timeout, logger),
		Modeler:  solar.NewPVWattsModeler(cfg.Solar.PVModelURL, cfg.Solar.PVModelAPIKey, cfg.Solar.Timeout, logger),
	})

	docs, err := collectDocuments(*dir, logger)
	if err != nil {
		logger.Error("collecting documents", "dir", *dir, "error", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		logger.Warn("no bill documents found", "dir", *dir)
		os.Exit(0)
	}
	logger.Info("batch start", "documents", len(docs), "workers", *workers)

	ctx := context.Background()
	start := time.Now()
	results := async.NewRunner(proc, *workers, logger).RunBatch(ctx, docs)

	failed := 0
	for _, res := range results {
		if res.State == constants.StateFailed {
			failed++
			logger.Warn("document failed", "source", res.SourcePath, "error", res.Error)
			continue
		}
		logger.Info("document complete",
			"source", res.SourcePath,
			"confidence", res.Confidence,
			"needs_review", res.NeedsReview,
			"imputed_months", res.ImputedMonths,
		)
	}

	xlsx, err := export.NewService(logger).BuildXLSX(results)
	if err != nil {
		logger.Error("building export", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("writing export", "path", *out, "error", err)
		os.Exit(1)
	}

	logger.Info("batch done",
		"documents", len(results),
		"failed", failed,
		"out", *out,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if failed > 0 {
		os.Exit(1)
	}
}

func collectDocuments(dir string, logger *slog.Logger) ([]pipeline.Document, error) {
	var docs []pipeline.Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := constants.AllowedExtensions[constants.NormalizeExt(filepath.Ext(path))]; !ok {
			return nil
		}
		loaded, err := ingest.LoadDocument(path)
		if err != nil {
			logger.Warn("skipping document", "path", path, "error", err)
			return nil
		}
		docs = append(docs, pipeline.Document{
			ID:           uuid.New(),
			SourcePath:   loaded.SourcePath,
			Text:         loaded.Text,
			ImageDataURL: loaded.ImageDataURL,
			Raw:          loaded.Raw,
		})
		return nil
	})
	return docs, err
}

// buildGateway wires available provider clients into capability priority lists.
func buildGateway(cfg *common.Config, logger *slog.Logger) *gateway.Gateway {
	clients := map[string]provider.Client{}
	if cfg.Providers.OpenAIKey != "" {
		clients["openai"] = openai.NewClient(openai.Config{
			APIKey:  cfg.Providers.OpenAIKey,
			BaseURL: cfg.Providers.OpenAIBaseURL,
			Model:   cfg.Providers.OpenAIModel,
			Timeout: cfg.Providers.Timeout,
		}, logger)
	}
	if cfg.Providers.AnthropicKey != "" {
		clients["anthropic"] = anthropic.NewClient(anthropic.Config{
			APIKey:  cfg.Providers.AnthropicKey,
			BaseURL: cfg.Providers.AnthropicBaseURL,
			Model:   cfg.Providers.AnthropicModel,
			Timeout: cfg.Providers.Timeout,
		}, logger)
	}

	pick := func(ids []string) []provider.Client {
		out := make([]provider.Client, 0, len(ids))
		for _, id := range ids {
			if c, ok := clients[id]; ok {
				out = append(out, c)
			}
		}
		return out
	}
	return gateway.New(logger, map[provider.Capability][]provider.Client{
		provider.CapabilityVision:   pick(cfg.Providers.VisionPriority),
		provider.CapabilityTextJSON: pick(cfg.Providers.TextPriority),
	}, cfg.Providers.Timeout)
}

func financialConfig(cfg *common.Config) projection.Config {
	return projection.Config{
		DegradationRate:     cfg.Financial.DegradationRate,
		HorizonYears:        cfg.Financial.HorizonYears,
		TaxCreditRate:       cfg.Financial.TaxCreditRate,
		CostPerKW:           cfg.Financial.CostPerKW,
		NationalAverageRate: cfg.Financial.NationalAverageRate,
		YieldKWhPerKW:       cfg.Financial.YieldKWhPerKW,
	}
}
