package crawler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagelink/immersion/internal/domain/convention"
	"github.com/stagelink/immersion/internal/domain/outbox"
	"github.com/stagelink/immersion/internal/infrastructure/memory"
	"github.com/stagelink/immersion/internal/observability"
)

var crawlNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func seedEvent(t *testing.T, store *memory.Store, id string) {
	t.Helper()
	e, err := outbox.New(id, crawlNow, convention.SubmittedEvent{
		ConventionID:       "conv-1",
		AgencyID:           "agency-1",
		EstablishmentSiret: "12345678901234",
	})
	require.NoError(t, err)
	require.NoError(t, store.Outbox().Save(context.Background(), e))
}

func fullRegistry(t *testing.T, submitted []Subscriber) *Registry {
	t.Helper()
	handlers := make(map[outbox.Topic][]Subscriber, len(outbox.Topics()))
	for _, topic := range outbox.Topics() {
		handlers[topic] = nil
	}
	handlers[outbox.TopicConventionSubmitted] = submitted
	reg, err := NewRegistry(handlers)
	require.NoError(t, err)
	return reg
}

func newTestCrawler(store *memory.Store, reg *Registry, cfg Config) *Crawler {
	store.SetLeaseTTL(0)
	return New(store.Outbox(), reg, cfg, observability.Nop())
}

func TestRunOnce_NoSubscribers_SettlesTrivially(t *testing.T) {
	store := memory.NewStore()
	seedEvent(t, store, "evt-1")

	c := newTestCrawler(store, fullRegistry(t, nil), Config{})
	require.NoError(t, c.RunOnce(context.Background()))

	e, err := store.Outbox().GetByID(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.True(t, e.Terminal())
	require.Len(t, e.Publications, 1)
	assert.Empty(t, e.Publications[0].Outcomes)

	// A settled event is never fetched again.
	require.NoError(t, c.RunOnce(context.Background()))
	e, err = store.Outbox().GetByID(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Len(t, e.Publications, 1)
}

func TestRunOnce_AtLeastOnce_RetriesUntilSuccess(t *testing.T) {
	store := memory.NewStore()
	seedEvent(t, store, "evt-1")

	var calls atomic.Int32
	sub := Subscriber{
		Name: "flaky",
		Handle: func(ctx context.Context, e outbox.Event) error {
			if calls.Add(1) < 3 {
				return errors.New("transient failure")
			}
			return nil
		},
	}
	c := newTestCrawler(store, fullRegistry(t, []Subscriber{sub}), Config{MaxAttemptsPerSubscriber: 5})

	for range 3 {
		require.NoError(t, c.RunOnce(context.Background()))
	}

	assert.Equal(t, int32(3), calls.Load())
	e, err := store.Outbox().GetByID(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.True(t, e.Terminal())
	assert.Equal(t, 2, e.FailureCountFor("flaky"))
	assert.True(t, e.SucceededFor("flaky"))
	assert.False(t, e.WasQuarantined)
}

func TestRunOnce_QuarantineAfterExactBudget(t *testing.T) {
	store := memory.NewStore()
	seedEvent(t, store, "evt-1")

	var calls atomic.Int32
	sub := Subscriber{
		Name: "broken",
		Handle: func(ctx context.Context, e outbox.Event) error {
			calls.Add(1)
			return errors.New("permanent failure")
		},
	}
	c := newTestCrawler(store, fullRegistry(t, []Subscriber{sub}), Config{MaxAttemptsPerSubscriber: 3})

	for range 5 {
		require.NoError(t, c.RunOnce(context.Background()))
	}

	assert.Equal(t, int32(3), calls.Load(), "quarantined subscriber must not be invoked again")
	e, err := store.Outbox().GetByID(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.True(t, e.WasQuarantined)
	assert.True(t, e.QuarantinedFor("broken"))
	assert.Equal(t, 3, e.FailureCountFor("broken"))
	assert.False(t, e.Terminal())
	assert.True(t, e.Settled())
}

func TestRunOnce_PartialFailure_OnlyPendingRetried(t *testing.T) {
	store := memory.NewStore()
	seedEvent(t, store, "evt-1")

	var okCalls, failCalls atomic.Int32
	okSub := Subscriber{
		Name: "ok",
		Handle: func(ctx context.Context, e outbox.Event) error {
			okCalls.Add(1)
			return nil
		},
	}
	failing := Subscriber{
		Name: "failing",
		Handle: func(ctx context.Context, e outbox.Event) error {
			if failCalls.Add(1) == 1 {
				return errors.New("first attempt fails")
			}
			return nil
		},
	}
	c := newTestCrawler(store, fullRegistry(t, []Subscriber{okSub, failing}), Config{MaxAttemptsPerSubscriber: 5})

	require.NoError(t, c.RunOnce(context.Background()))
	require.NoError(t, c.RunOnce(context.Background()))

	assert.Equal(t, int32(1), okCalls.Load(), "successful subscriber must not be re-invoked")
	assert.Equal(t, int32(2), failCalls.Load())

	e, err := store.Outbox().GetByID(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.True(t, e.Terminal())
	require.Len(t, e.Publications, 2)
	assert.Len(t, e.Publications[1].Outcomes, 1, "second attempt addresses only the pending subscriber")
}

func TestRunOnce_HandlerTimeout_IsBounded(t *testing.T) {
	store := memory.NewStore()
	seedEvent(t, store, "evt-1")

	stuck := Subscriber{
		Name: "stuck",
		Handle: func(ctx context.Context, e outbox.Event) error {
			// Ignores its context on purpose.
			time.Sleep(5 * time.Second)
			return nil
		},
	}
	c := newTestCrawler(store, fullRegistry(t, []Subscriber{stuck}), Config{
		HandlerTimeout:           20 * time.Millisecond,
		MaxAttemptsPerSubscriber: 5,
	})

	start := time.Now()
	require.NoError(t, c.RunOnce(context.Background()))
	assert.Less(t, time.Since(start), 2*time.Second)

	e, err := store.Outbox().GetByID(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 1, e.FailureCountFor("stuck"))
}

func TestRunOnce_HandlerPanic_IsContained(t *testing.T) {
	store := memory.NewStore()
	seedEvent(t, store, "evt-1")

	panicky := Subscriber{
		Name: "panicky",
		Handle: func(ctx context.Context, e outbox.Event) error {
			panic("boom")
		},
	}
	c := newTestCrawler(store, fullRegistry(t, []Subscriber{panicky}), Config{MaxAttemptsPerSubscriber: 5})

	require.NoError(t, c.RunOnce(context.Background()))

	e, err := store.Outbox().GetByID(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 1, e.FailureCountFor("panicky"))
}

func TestRunOnce_BatchLimit(t *testing.T) {
	store := memory.NewStore()
	for _, id := range []string{"evt-1", "evt-2", "evt-3"} {
		seedEvent(t, store, id)
	}

	c := newTestCrawler(store, fullRegistry(t, nil), Config{BatchSize: 2})
	require.NoError(t, c.RunOnce(context.Background()))

	settled := 0
	for _, id := range []string{"evt-1", "evt-2", "evt-3"} {
		e, err := store.Outbox().GetByID(context.Background(), id)
		require.NoError(t, err)
		if e.Settled() {
			settled++
		}
	}
	assert.Equal(t, 2, settled)
}
