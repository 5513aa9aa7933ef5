package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oladayo-ade/solarbill/internal/async"
	"github.com/oladayo-ade/solarbill/internal/common"
	"github.com/oladayo-ade/solarbill/internal/gateway"
	"github.com/oladayo-ade/solarbill/internal/ingest"
	"github.com/oladayo-ade/solarbill/internal/observability/metrics"
	"github.com/oladayo-ade/solarbill/internal/pipeline"
	"github.com/oladayo-ade/solarbill/internal/projection"
	"github.com/oladayo-ade/solarbill/internal/provider"
	"github.com/oladayo-ade/solarbill/internal/provider/anthropic"
	"github.com/oladayo-ade/solarbill/internal/provider/openai"
	"github.com/oladayo-ade/solarbill/internal/repository"
	"github.com/oladayo-ade/solarbill/internal/solar"
)

// solarbilld watches spool directories for arriving bill documents, runs each
// through the extraction pipeline, and persists every terminal result.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if len(cfg.Pipeline.SpoolDirs) == 0 {
		logger.Error("SPOOL_DIRS is required for the daemon")
		os.Exit(1)
	}

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.Store.Path, logger)
	if err != nil {
		logger.Error("opening results db", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("closing results db", "error", err)
		}
	}()
	store := repository.NewResultStore(db, logger)

	proc := pipeline.NewProcessor(logger, pipeline.Config{
		MaxOutputTokens: cfg.Providers.MaxOutputTokens,
		ReviewThreshold: cfg.Pipeline.ReviewThreshold,
		Financial:       financialConfig(cfg),
	}, pipeline.Deps{
		Gateway:  buildGateway(cfg, logger),
		Geocoder: solar.NewHTTPGeocoder(cfg.Solar.GeocoderURL, cfg.Solar.Timeout, logger),
		Modeler:  solar.NewPVWattsModeler(cfg.Solar.PVModelURL, cfg.Solar.PVModelAPIKey, cfg.Solar.Timeout, logger),
	})

	queue := async.NewProcessorQueue(
		func(jobCtx context.Context, job async.Job) (*pipeline.Result, error) {
			loaded, err := ingest.LoadDocument(job.SourcePath)
			if err != nil {
				return nil, err
			}
			res, procErr := proc.Process(jobCtx, pipeline.Document{
				ID:           job.DocID,
				SourcePath:   loaded.SourcePath,
				Text:         loaded.Text,
				ImageDataURL: loaded.ImageDataURL,
				Raw:          loaded.Raw,
			})
			if res != nil {
				if err := store.Insert(jobCtx, res); err != nil {
					logger.Error("persisting result", "doc_id", job.DocID, "error", err)
				}
			}
			return res, procErr
		},
		logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.ProcessTimeout),
	)

	events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       cfg.Pipeline.SpoolDirs,
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
	}, logger)
	if err != nil {
		logger.Error("starting spool watcher", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: buildMux(store, logger)}
	go func() {
		logger.Info("metrics server listening", "addr", cfg.Server.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	logger.Info("solarbilld started",
		"spool_dirs", cfg.Pipeline.SpoolDirs,
		"workers", cfg.Pipeline.Workers,
	)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case path, ok := <-events:
			if !ok {
				break loop
			}
			_ = queue.Enqueue(ctx, async.Job{
				DocID:       uuid.New(),
				SourcePath:  path,
				SubmittedAt: time.Now(),
			})
		case werr, ok := <-watchErrs:
			if ok && werr != nil {
				logger.Warn("spool watcher error", "error", werr)
			}
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown", "error", err)
	}
	logger.Info("solarbilld stopped")
}

func buildMux(store *repository.ResultStore, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		results, err := store.ListRecent(r.Context(), limit)
		if err != nil {
			logger.Error("listing results", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(results); err != nil {
			logger.Warn("encoding results response", "error", err)
		}
	})
	return mux
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
