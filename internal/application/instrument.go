package application

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stagelink/immersion/internal/domain/domainerr"
	"github.com/stagelink/immersion/internal/observability"
	"github.com/stagelink/immersion/internal/observability/logctx"
)

const spanPrefix = "UC."

// Instrumentation carries the per-use-case span, RED metrics, and
// structured completion log, prebound the same way for every use case.
type Instrumentation struct {
	useCase      string
	log          observability.Logger
	tracer       observability.Tracer
	reqCounter   observability.Counter
	durHistogram observability.Histogram
}

func NewInstrumentation(useCase string, tel observability.Observability) *Instrumentation {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	return &Instrumentation{
		useCase:      useCase,
		log:          tel.Logger().With(observability.F("use_case", useCase)),
		tracer:       tel.Tracer(),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
	}
}

// Observe wraps one execution: span, latency histogram, request counter,
// and a use_case_done log line carrying the outcome. The wrapped error is
// returned unchanged.
func (i *Instrumentation) Observe(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, span := i.tracer.Start(ctx, spanPrefix+i.useCase,
		attribute.String("use_case", i.useCase),
	)
	logger := logctx.FromOr(ctx, i.log).With(observability.F("use_case", i.useCase))
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With(
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	ctx = logctx.With(ctx, logger)
	start := time.Now()

	err := fn(ctx)

	lat := time.Since(start).Seconds()
	outcome, statusText := "success", "OK"
	if err != nil {
		outcome = "error"
		if kind := domainerr.KindOf(err); kind != "" {
			statusText = strings.ToUpper(string(kind))
		} else {
			statusText = "INFRASTRUCTURE_ERROR"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, statusText)
	} else {
		span.SetStatus(codes.Ok, statusText)
	}
	span.End()

	i.reqCounter.Add(1,
		observability.L("use_case", i.useCase),
		observability.L("outcome", outcome),
	)
	i.durHistogram.Observe(lat,
		observability.L("use_case", i.useCase),
	)

	fields := []observability.Field{
		observability.F("outcome", outcome),
		observability.F("status", statusText),
		observability.F("latency_seconds", lat),
	}
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	logger.Info("use_case_done", fields...)

	return err
}
