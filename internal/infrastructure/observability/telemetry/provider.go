package telemetry

import (
	"github.com/stagelink/immersion/internal/infrastructure/observability/prometrics"
	"github.com/stagelink/immersion/internal/observability"
)

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

// New assembles an Observability provider from the supplied parts; nil
// parts fall back to no-ops.
func New(tracer observability.Tracer, logger observability.Logger, metrics observability.Metrics) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &provider{tracer: tracer, logger: logger, metrics: metrics}
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p.metrics }

type metricSet struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m *metricSet) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := m.counters[name]; ok {
		return c
	}
	return observability.NopMetrics().Counter(name)
}

func (m *metricSet) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[name]; ok {
		return h
	}
	return observability.NopMetrics().Histogram(name)
}

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var batchBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500}

// NewMetrics pre-registers every instrument the platform emits, keyed by
// the shared metric names.
func NewMetrics(reg prometrics.Registry) observability.Metrics {
	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: reg.Counter(
			string(observability.MUsecaseRequests),
			"Use case executions by outcome.",
			"use_case", "outcome",
		),
		observability.MOutboxPublishSuccess: reg.Counter(
			string(observability.MOutboxPublishSuccess),
			"Successful subscriber deliveries.",
			"topic", "subscriber",
		),
		observability.MOutboxPublishFailed: reg.Counter(
			string(observability.MOutboxPublishFailed),
			"Failed subscriber deliveries.",
			"topic", "subscriber",
		),
		observability.MOutboxQuarantined: reg.Counter(
			string(observability.MOutboxQuarantined),
			"Subscribers quarantined after exhausting their retry budget.",
			"topic", "subscriber",
		),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: reg.Histogram(
			string(observability.MUsecaseDuration),
			"Use case latency in seconds.",
			latencyBuckets,
			"use_case",
		),
		observability.MCrawlDuration: reg.Histogram(
			string(observability.MCrawlDuration),
			"Crawl tick latency in seconds.",
			latencyBuckets,
		),
		observability.MCrawlBatchSize: reg.Histogram(
			string(observability.MCrawlBatchSize),
			"Events fetched per crawl tick.",
			batchBuckets,
		),
	}
	return &metricSet{counters: counters, histograms: histograms}
}
