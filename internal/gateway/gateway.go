package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oladayo-ade/solarbill/internal/common"
	"github.com/oladayo-ade/solarbill/internal/observability/metrics"
	"github.com/oladayo-ade/solarbill/internal/provider"
)

// Outcome classifies one routing attempt.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeProtocol    Outcome = "protocol_error"
)

// Attempt records one provider call made during routing. Attempts exist only
// for confidence scoring and observability; they are not persisted.
type Attempt struct {
	Provider   string              `json:"provider"`
	Capability provider.Capability `json:"capability"`
	Outcome    Outcome             `json:"outcome"`
	Elapsed    time.Duration       `json:"elapsed"`
}

// ExhaustedError carries the full attempt log when every provider failed.
type ExhaustedError struct {
	Capability provider.Capability
	Attempts   []Attempt
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all providers exhausted for %s after %d attempts", e.Capability, len(e.Attempts))
}

func (e *ExhaustedError) Unwrap() error { return common.ErrAllProvidersExhausted }

// Gateway routes an extraction request across an ordered provider list,
// falling through failed providers. Ordering is capability-dependent and
// fixed at construction; the gateway holds no other state, so one instance
// serves any number of concurrent pipelines.
type Gateway struct {
	logger     *slog.Logger
	priorities map[provider.Capability][]provider.Client
	timeout    time.Duration
}

// New builds a gateway from per-capability priority lists. Providers that do
// not support the capability they are listed under are skipped at call time.
func New(logger *slog.Logger, priorities map[provider.Capability][]provider.Client, timeout time.Duration) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Gateway{logger: logger, priorities: priorities, timeout: timeout}
}

// Extract tries each provider in priority order until one returns raw text.
// RateLimited, Timeout, Unavailable and ProtocolError are all treated as that
// provider's failure and routing continues. The only fatal outcome is the
// whole list failing, returned as *ExhaustedError with the attempt log.
func (g *Gateway) Extract(ctx context.Context, req provider.Request) (string, []Attempt, error) {
	clients := g.priorities[req.Capability]
	attempts := make([]Attempt, 0, len(clients))

	g.logger.Info("gateway.extract.start",
		"capability", string(req.Capability),
		"providers", len(clients),
	)

	for _, c := range clients {
		if !c.Supports(req.Capability) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", attempts, err
		}

		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		start := time.Now()
		raw, err := c.Extract(callCtx, req)
		elapsed := time.Since(start)
		cancel()

		if err == nil {
			attempts = append(attempts, Attempt{
				Provider:   c.ID(),
				Capability: req.Capability,
				Outcome:    OutcomeSuccess,
				Elapsed:    elapsed,
			})
			metrics.RecordExtractionAttempt(c.ID(), string(req.Capability), string(OutcomeSuccess))
			g.logger.Info("gateway.extract.ok",
				"provider", c.ID(),
				"capability", string(req.Capability),
				"attempts", len(attempts),
				"elapsed_ms", elapsed.Milliseconds(),
			)
			return raw, attempts, nil
		}

		outcome := classify(err)
		attempts = append(attempts, Attempt{
			Provider:   c.ID(),
			Capability: req.Capability,
			Outcome:    outcome,
			Elapsed:    elapsed,
		})
		metrics.RecordExtractionAttempt(c.ID(), string(req.Capability), string(outcome))
		g.logger.Warn("gateway.extract.provider_failed",
			"provider", c.ID(),
			"capability", string(req.Capability),
			"outcome", string(outcome),
			"error", err,
			"elapsed_ms", elapsed.Milliseconds(),
		)
	}

	metrics.RecordRoutingExhausted()
	g.logger.Error("gateway.extract.exhausted",
		"capability", string(req.Capability),
		"attempts", len(attempts),
	)
	return "", attempts, &ExhaustedError{Capability: req.Capability, Attempts: attempts}
}

func classify(err error) Outcome {
	var pe *provider.Error
	if errors.As(err, &pe) {
		switch pe.Kind {
		case provider.FailureRateLimited:
			return OutcomeRateLimited
		case provider.FailureTimeout:
			return OutcomeTimeout
		case provider.FailureUnavailable:
			return OutcomeUnavailable
		case provider.FailureProtocol:
			return OutcomeProtocol
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTimeout
	}
	return OutcomeProtocol
}
