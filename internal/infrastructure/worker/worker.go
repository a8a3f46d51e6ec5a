package worker

import (
	"context"
	"sync"
	"time"

	"github.com/stagelink/immersion/internal/observability"
)

// Worker runs a function on a fixed interval with graceful shutdown. Stop
// waits for an in-flight run to finish, so nothing is interrupted mid-batch.
type Worker struct {
	name     string
	interval time.Duration
	log      observability.Logger
	work     func(ctx context.Context) error

	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopOnce sync.Once
	stopChan chan struct{}
	started  bool
}

func New(name string, interval time.Duration, log observability.Logger, work func(ctx context.Context) error) *Worker {
	if log == nil {
		log = observability.NopLogger()
	}
	return &Worker{
		name:     name,
		interval: interval,
		log:      log.With(observability.F("worker", name)),
		work:     work,
		stopChan: make(chan struct{}),
	}
}

// Start blocks until the context is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		w.log.Warn("worker_already_started")
		return
	}
	w.started = true
	w.mu.Unlock()

	w.log.Info("worker_started", observability.F("interval", w.interval.String()))
	defer w.log.Info("worker_stopped")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			select {
			case <-w.stopChan:
				return
			default:
			}
			w.run(ctx)
		}
	}
}

func (w *Worker) run(ctx context.Context) {
	w.wg.Add(1)
	defer w.wg.Done()

	select {
	case <-ctx.Done():
		return
	default:
	}

	if err := w.work(ctx); err != nil {
		w.log.Error("worker_run_failed", observability.F("error", err.Error()))
	}
}

// Stop shuts the loop down and waits for in-progress work. Safe to call
// more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.mu.RLock()
		defer w.mu.RUnlock()
		if !w.started {
			return
		}
		close(w.stopChan)
		w.wg.Wait()
	})
}

func (w *Worker) Name() string { return w.name }
