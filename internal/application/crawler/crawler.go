package crawler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/stagelink/immersion/internal/domain/outbox"
	"github.com/stagelink/immersion/internal/observability"
	"github.com/stagelink/immersion/internal/observability/logctx"
)

const componentCrawler = "outbox_crawler"

// Config carries the operational tuning knobs; the exact values are not
// load-bearing for correctness and come from configuration.
type Config struct {
	// BatchSize bounds how many events one tick crawls.
	BatchSize int
	// MaxAttemptsPerSubscriber is the quarantine threshold: once a
	// subscriber accumulates this many failures for an event, it is never
	// invoked again for it.
	MaxAttemptsPerSubscriber int
	// HandlerTimeout bounds each subscriber invocation.
	HandlerTimeout time.Duration
	// Concurrency caps the subscriber fanout per event.
	Concurrency int
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxAttemptsPerSubscriber <= 0 {
		c.MaxAttemptsPerSubscriber = 3
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 30 * time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 8
	}
	return c
}

// Crawler drains the outbox: it fetches pending events, feeds each to its
// registered subscribers, and records one publication per event per tick.
// It never touches business aggregates, which is what makes running it
// alongside live transactions safe.
type Crawler struct {
	store    outbox.Repository
	registry *Registry
	cfg      Config

	log    observability.Logger
	tracer observability.Tracer

	successCounter    observability.Counter
	failedCounter     observability.Counter
	quarantineCounter observability.Counter
	durHistogram      observability.Histogram
	batchHistogram    observability.Histogram

	now func() time.Time
}

func New(store outbox.Repository, registry *Registry, cfg Config, tel observability.Observability) *Crawler {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	return &Crawler{
		store:             store,
		registry:          registry,
		cfg:               cfg.withDefaults(),
		log:               tel.Logger().With(observability.F("component", componentCrawler)),
		tracer:            tel.Tracer(),
		successCounter:    metrics.Counter(observability.MOutboxPublishSuccess),
		failedCounter:     metrics.Counter(observability.MOutboxPublishFailed),
		quarantineCounter: metrics.Counter(observability.MOutboxQuarantined),
		durHistogram:      metrics.Histogram(observability.MCrawlDuration),
		batchHistogram:    metrics.Histogram(observability.MCrawlBatchSize),
		now:               time.Now,
	}
}

// RunOnce crawls one batch. It is safe to invoke repeatedly, on a fixed
// interval or on demand; delivery failures are recorded on the events, not
// returned, so one flaky subscriber never aborts the tick.
func (c *Crawler) RunOnce(ctx context.Context) (err error) {
	ctx, span := c.tracer.Start(ctx, "Crawler.RunOnce")
	start := c.now()
	logger := logctx.FromOr(ctx, c.log)

	defer func() {
		c.durHistogram.Observe(c.now().Sub(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "CRAWL_FAILED")
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()
	}()

	events, err := c.store.FetchPending(ctx, c.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("crawler: fetch pending events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}
	span.SetAttributes(attribute.Int("outbox.batch_size", len(events)))
	c.batchHistogram.Observe(float64(len(events)))

	crawled := 0
	for i := range events {
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Warn("crawl_batch_interrupted",
				observability.F("crawled", crawled),
				observability.F("error", ctxErr.Error()),
			)
			return ctxErr
		}
		if procErr := c.processEvent(ctx, &events[i]); procErr != nil {
			logger.Error("event_publication_record_failed",
				observability.F("event_id", events[i].ID),
				observability.F("topic", string(events[i].Topic)),
				observability.F("error", procErr.Error()),
			)
			continue
		}
		crawled++
	}

	logger.Info("crawl_batch_done",
		observability.F("fetched", len(events)),
		observability.F("crawled", crawled),
	)
	return nil
}

func (c *Crawler) processEvent(ctx context.Context, e *outbox.Event) error {
	logger := logctx.FromOr(ctx, c.log).With(
		observability.F("event_id", e.ID),
		observability.F("topic", string(e.Topic)),
	)

	subs := c.registry.SubscribersFor(e.Topic)
	if len(subs) == 0 {
		// Nobody listens: settle the event so it is not retried forever.
		logger.Debug("event_published_trivially")
		return c.store.MarkAsPublished(ctx, e.ID, outbox.Publication{At: c.now()})
	}

	pending := make([]Subscriber, 0, len(subs))
	for _, sub := range subs {
		if e.SucceededFor(sub.Name) || e.QuarantinedFor(sub.Name) {
			continue
		}
		pending = append(pending, sub)
	}
	if len(pending) == 0 {
		// The registry shrank since the last attempt; nothing is owed.
		logger.Debug("event_published_trivially")
		return c.store.MarkAsPublished(ctx, e.ID, outbox.Publication{At: c.now()})
	}

	outcomes := make([]outbox.Outcome, len(pending))
	g := new(errgroup.Group)
	g.SetLimit(c.cfg.Concurrency)
	for i, sub := range pending {
		g.Go(func() error {
			outcomes[i] = c.invoke(ctx, sub, *e)
			return nil
		})
	}
	_ = g.Wait()

	for i := range outcomes {
		labels := []observability.Label{
			observability.L("topic", string(e.Topic)),
			observability.L("subscriber", outcomes[i].Subscriber),
		}
		if outcomes[i].Succeeded() {
			c.successCounter.Add(1, labels...)
			continue
		}
		c.failedCounter.Add(1, labels...)
		logger.Warn("subscriber_delivery_failed",
			observability.F("subscriber", outcomes[i].Subscriber),
			observability.F("error", outcomes[i].Err),
		)
		if e.FailureCountFor(outcomes[i].Subscriber)+1 >= c.cfg.MaxAttemptsPerSubscriber {
			outcomes[i].Quarantined = true
			c.quarantineCounter.Add(1, labels...)
			logger.Error("subscriber_quarantined",
				observability.F("subscriber", outcomes[i].Subscriber),
				observability.F("attempts", e.FailureCountFor(outcomes[i].Subscriber)+1),
			)
		}
	}

	return c.store.MarkAsPublished(ctx, e.ID, outbox.Publication{At: c.now(), Outcomes: outcomes})
}

// invoke runs one subscriber with a hard timeout and panic containment; a
// handler that ignores its context cannot stall the batch.
func (c *Crawler) invoke(ctx context.Context, sub Subscriber, e outbox.Event) outbox.Outcome {
	out := outbox.Outcome{Subscriber: sub.Name}

	hctx, cancel := context.WithTimeout(ctx, c.cfg.HandlerTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("subscriber_panic",
					observability.F("subscriber", sub.Name),
					observability.F("event_id", e.ID),
					observability.F("panic", r),
					observability.F("stack", string(debug.Stack())),
				)
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- sub.Handle(hctx, e)
	}()

	select {
	case err := <-done:
		if err != nil {
			out.Err = err.Error()
		}
	case <-hctx.Done():
		out.Err = fmt.Sprintf("handler timed out after %s", c.cfg.HandlerTimeout)
	}
	return out
}
