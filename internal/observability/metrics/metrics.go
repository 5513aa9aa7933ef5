package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "solarbill_"

var (
	registerOnce sync.Once

	extractionAttempts *prometheus.CounterVec
	routingExhausted   prometheus.Counter

	parseLayerTotal *prometheus.CounterVec

	pipelineTotal   *prometheus.CounterVec
	pipelineLatency *prometheus.HistogramVec

	confidenceScore prometheus.Histogram
)

// Init registers pipeline metrics. Safe to call more than once; recording
// helpers are no-ops until it has run.
func Init() {
	registerOnce.Do(func() {
		extractionAttempts = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "extraction_attempts_total",
				Help: "Provider extraction attempts by provider, capability and outcome",
			},
			[]string{"provider", "capability", "outcome"},
		)
		routingExhausted = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "routing_exhausted_total",
				Help: "Routing runs where every provider in the priority list failed",
			},
		)
		parseLayerTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "parse_layer_total",
				Help: "Parser runs by the layer that produced the mapping",
			},
			[]string{"layer"},
		)
		pipelineTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "pipeline_runs_total",
				Help: "Completed pipeline runs by terminal state",
			},
			[]string{"state"},
		)
		pipelineLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "pipeline_latency_seconds",
				Help:    "End-to-end pipeline latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"state"},
		)
		confidenceScore = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "confidence_score",
				Help:    "Final confidence score distribution",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		)

		prometheus.MustRegister(
			extractionAttempts,
			routingExhausted,
			parseLayerTotal,
			pipelineTotal,
			pipelineLatency,
			confidenceScore,
		)
	})
}

func RecordExtractionAttempt(providerID, capability, outcome string) {
	if extractionAttempts == nil {
		return
	}
	extractionAttempts.WithLabelValues(providerID, capability, outcome).Inc()
}

func RecordRoutingExhausted() {
	if routingExhausted == nil {
		return
	}
	routingExhausted.Inc()
}

func RecordParseLayer(layer string) {
	if parseLayerTotal == nil {
		return
	}
	parseLayerTotal.WithLabelValues(layer).Inc()
}

func RecordPipelineRun(state string, seconds float64) {
	if pipelineTotal == nil {
		return
	}
	pipelineTotal.WithLabelValues(state).Inc()
	pipelineLatency.WithLabelValues(state).Observe(seconds)
}

func RecordConfidence(score int) {
	if confidenceScore == nil {
		return
	}
	confidenceScore.Observe(float64(score))
}
