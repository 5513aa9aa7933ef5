package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oladayo-ade/solarbill/constants"
	"github.com/oladayo-ade/solarbill/internal/bill"
	"github.com/oladayo-ade/solarbill/internal/common"
	"github.com/oladayo-ade/solarbill/internal/gateway"
	"github.com/oladayo-ade/solarbill/internal/observability/metrics"
	"github.com/oladayo-ade/solarbill/internal/parse"
	"github.com/oladayo-ade/solarbill/internal/projection"
	"github.com/oladayo-ade/solarbill/internal/provider"
	"github.com/oladayo-ade/solarbill/internal/score"
	"github.com/oladayo-ade/solarbill/internal/solar"
)

// Document is one bill submission. Exactly one content form is used per run:
// an image data URL routes through vision providers, pre-extracted text goes
// straight to text_json, and raw bytes feed the rasterizer fallback.
type Document struct {
	ID           uuid.UUID
	SourcePath   string
	Text         string
	ImageDataURL string
	Raw          []byte
}

// Result is the aggregate handed back to the caller: the bill record, the
// projection, the confidence decision, and the routing attempt log. Never
// mutated after assembly.
type Result struct {
	ID                uuid.UUID               `json:"id"`
	SourcePath        string                  `json:"source_path"`
	State             constants.PipelineState `json:"state"`
	Bill              *bill.BillRecord        `json:"bill,omitempty"`
	Projection        *projection.Projection  `json:"projection,omitempty"`
	ProjectionSkipped string                  `json:"projection_skipped,omitempty"`
	Confidence        int                     `json:"confidence"`
	NeedsReview       bool                    `json:"needs_review"`
	ParseLayer        parse.Layer             `json:"parse_layer"`
	ImputedMonths     int                     `json:"imputed_months"`
	Attempts          []gateway.Attempt       `json:"attempts"`
	GeocodeDegraded   bool                    `json:"geocode_degraded"`
	ModelDegraded     bool                    `json:"model_degraded"`
	Error             string                  `json:"error,omitempty"`
	Elapsed           time.Duration           `json:"elapsed"`
}

// Rasterizer is the OCR fallback: document bytes to ordered page text.
// Returns common.ErrEmptyExtraction when no text is recoverable, which the
// pipeline treats like one more failed provider.
type Rasterizer interface {
	Rasterize(ctx context.Context, doc []byte) ([]string, error)
}

// Config holds per-processor settings copied out of the application config at
// construction; the processor never reads mutable shared state.
type Config struct {
	MaxOutputTokens int
	ReviewThreshold int
	Financial       projection.Config
}

// Deps are the processor's collaborators. Geocoder, Modeler and Rasterizer
// are optional; a nil collaborator behaves like a permanently degraded one.
type Deps struct {
	Gateway    *gateway.Gateway
	Geocoder   solar.Geocoder
	Modeler    solar.ProductionModeler
	Rasterizer Rasterizer
}

// Processor runs the full per-document pipeline:
// Received → Extracting → Parsed → Normalized → Imputed → Projected → Scored → Complete,
// with Failed reachable only from Extracting and Normalized. Every other
// stage degrades rather than fails. Processors hold no mutable state, so one
// instance serves any number of concurrent documents.
type Processor struct {
	logger     *slog.Logger
	cfg        Config
	deps       Deps
	parser     *parse.Parser
	normalizer *bill.Normalizer
	imputer    *bill.ImputationEngine
	projector  *projection.Projector
	scorer     *score.Scorer
	prompt     string
}

func NewProcessor(logger *slog.Logger, cfg Config, deps Deps) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 1500
	}
	return &Processor{
		logger:     logger,
		cfg:        cfg,
		deps:       deps,
		parser:     parse.NewParser(logger),
		normalizer: bill.NewNormalizer(logger),
		imputer:    bill.NewImputationEngine(logger),
		projector:  projection.NewProjector(cfg.Financial, logger),
		scorer:     score.NewScorer(cfg.ReviewThreshold, logger),
		prompt:     parse.BuildPrompt(),
	}
}

// Process runs one document to a terminal state. The returned error is
// non-nil only for the two fatal per-document failures (all providers
// exhausted, unprocessable record) or caller cancellation; the Result is
// populated either way.
func (p *Processor) Process(ctx context.Context, doc Document) (*Result, error) {
	start := time.Now()
	res := &Result{
		ID:         doc.ID,
		SourcePath: doc.SourcePath,
		State:      constants.StateReceived,
	}
	defer func() {
		res.Elapsed = time.Since(start)
		metrics.RecordPipelineRun(string(res.State), res.Elapsed.Seconds())
	}()

	p.logger.Info("pipeline.run.start",
		"doc_id", doc.ID,
		"source", doc.SourcePath,
		"has_image", doc.ImageDataURL != "",
		"text_len", len(doc.Text),
	)

	// Extracting
	res.State = constants.StateExtracting
	raw, err := p.extract(ctx, doc, res)
	if err != nil {
		res.State = constants.StateFailed
		res.Error = err.Error()
		p.logger.Error("pipeline.run.failed",
			"doc_id", doc.ID, "stage", "extracting", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return res, err
	}

	// Parsed. Never fails by contract.
	parsed := p.parser.Parse(raw)
	res.ParseLayer = parsed.Layer
	res.State = constants.StateParsed

	// Normalized
	rec, err := p.normalizer.Normalize(parsed.Fields)
	if err != nil {
		res.State = constants.StateFailed
		res.Error = err.Error()
		p.logger.Error("pipeline.run.failed",
			"doc_id", doc.ID, "stage", "normalized", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return res, err
	}
	rec.ID = doc.ID
	res.Bill = rec
	res.State = constants.StateNormalized

	// Imputed
	res.ImputedMonths = p.imputer.Complete(&rec.Usage)
	res.State = constants.StateImputed

	// Projected
	res.Projection, res.ProjectionSkipped = p.project(ctx, rec, res)
	res.State = constants.StateProjected

	// Scored
	insufficient := rec.Usage.Len() > 0 &&
		rec.Usage.ObservedCount() < bill.MinObservedForImputation
	res.Confidence, res.NeedsReview = p.scorer.Score(score.Signals{
		ParseLayer:        parsed.Layer,
		SchemaValid:       parsed.SchemaValid,
		ImputedMonths:     res.ImputedMonths,
		InsufficientUsage: insufficient,
		FallbackDepth:     fallbackDepth(res.Attempts),
		GeocodeDegraded:   res.GeocodeDegraded,
		ModelDegraded:     res.ModelDegraded,
		RecordFlags:       len(rec.Flags),
	})
	metrics.RecordConfidence(res.Confidence)
	res.State = constants.StateScored

	res.State = constants.StateComplete
	p.logger.Info("pipeline.run.ok",
		"doc_id", doc.ID,
		"confidence", res.Confidence,
		"needs_review", res.NeedsReview,
		"parse_layer", int(parsed.Layer),
		"imputed_months", res.ImputedMonths,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// extract routes the document through the gateway. Vision documents that
// exhaust every vision provider fall back to rasterized text through the
// text_json list before the run is declared failed.
func (p *Processor) extract(ctx context.Context, doc Document, res *Result) (string, error) {
	if doc.ImageDataURL != "" {
		raw, attempts, err := p.deps.Gateway.Extract(ctx, provider.Request{
			Capability:      provider.CapabilityVision,
			Prompt:          p.prompt,
			ImageDataURL:    doc.ImageDataURL,
			MaxOutputTokens: p.cfg.MaxOutputTokens,
		})
		res.Attempts = append(res.Attempts, attempts...)
		if err == nil {
			return raw, nil
		}
		if !errors.Is(err, common.ErrAllProvidersExhausted) {
			return "", err // cancellation
		}
		text, rerr := p.rasterize(ctx, doc)
		if rerr != nil {
			p.logger.Warn("pipeline.rasterize_fallback_failed", "doc_id", doc.ID, "error", rerr)
			return "", err
		}
		doc.Text = text
	}

	if doc.Text == "" && len(doc.Raw) > 0 {
		text, rerr := p.rasterize(ctx, doc)
		if rerr != nil {
			return "", &gateway.ExhaustedError{Capability: provider.CapabilityTextJSON}
		}
		doc.Text = text
	}

	raw, attempts, err := p.deps.Gateway.Extract(ctx, provider.Request{
		Capability:      provider.CapabilityTextJSON,
		Prompt:          p.prompt,
		Text:            parse.BuildUserText(doc.Text),
		MaxOutputTokens: p.cfg.MaxOutputTokens,
	})
	res.Attempts = append(res.Attempts, attempts...)
	return raw, err
}

func (p *Processor) rasterize(ctx context.Context, doc Document) (string, error) {
	if p.deps.Rasterizer == nil || len(doc.Raw) == 0 {
		return "", common.ErrEmptyExtraction
	}
	pages, err := p.deps.Rasterizer.Rasterize(ctx, doc.Raw)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(strings.Join(pages, "\n\n"))
	if text == "" {
		return "", common.ErrEmptyExtraction
	}
	return text, nil
}

// project resolves the location, asks the external modeler for production,
// and runs the financial model. Collaborator failures substitute fallbacks
// and set degraded flags; they never abort the run.
func (p *Processor) project(ctx context.Context, rec *bill.BillRecord, res *Result) (*projection.Projection, string) {
	coord := solar.Coordinate{Lat: constants.FallbackLatitude, Lon: constants.FallbackLongitude}
	if p.deps.Geocoder != nil && rec.ServiceAddress != "" {
		if c, err := p.deps.Geocoder.Geocode(ctx, rec.ServiceAddress); err == nil {
			coord = c
		} else {
			res.GeocodeDegraded = true
			p.logger.Warn("pipeline.geocode_degraded", "doc_id", rec.ID, "error", err)
		}
	} else {
		res.GeocodeDegraded = true
	}

	systemKW := p.projector.SystemSizeKW(rec)
	annualKWh := 0.0
	modeled := false
	if systemKW > 0 {
		if p.deps.Modeler != nil {
			if kwh, err := p.deps.Modeler.ModelProduction(ctx, coord, systemKW); err == nil {
				annualKWh = kwh
				modeled = true
			}
		}
		if !modeled {
			annualKWh = p.projector.EstimateProduction(systemKW)
			res.ModelDegraded = true
			p.logger.Warn("pipeline.production_estimated", "doc_id", rec.ID, "system_kw", systemKW)
		}
	}

	return p.projector.Project(rec, annualKWh, modeled)
}

func fallbackDepth(attempts []gateway.Attempt) int {
	n := 0
	for _, a := range attempts {
		if a.Outcome != gateway.OutcomeSuccess {
			n++
		}
	}
	return n
}
