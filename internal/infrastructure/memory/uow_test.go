package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagelink/immersion/internal/domain/convention"
	"github.com/stagelink/immersion/internal/domain/outbox"
	"github.com/stagelink/immersion/internal/domain/uow"
)

var txnNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func testConvention(t *testing.T, id string) *convention.Convention {
	t.Helper()
	conv, err := convention.New(id, "agency-1", "12345678901234", "observe the trade", convention.Signatories{
		Beneficiary:                 convention.Signatory{Name: "Ana Silva", Email: "ana@example.org"},
		EstablishmentRepresentative: convention.Signatory{Name: "Marc Petit", Email: "marc@acme.example"},
	}, txnNow)
	require.NoError(t, err)
	return conv
}

func testEvent(t *testing.T, id string) outbox.Event {
	t.Helper()
	e, err := outbox.New(id, txnNow, convention.SubmittedEvent{
		ConventionID:       "conv-1",
		AgencyID:           "agency-1",
		EstablishmentSiret: "12345678901234",
	})
	require.NoError(t, err)
	return e
}

func TestPerform_CommitsAggregateAndEventsTogether(t *testing.T) {
	store := NewStore()
	u := NewUnitOfWork(store)

	err := u.Perform(context.Background(), func(ctx context.Context, p uow.Ports) error {
		if err := p.Conventions.Save(ctx, testConvention(t, "conv-1")); err != nil {
			return err
		}
		return p.Outbox.Save(ctx, testEvent(t, "evt-1"))
	})
	require.NoError(t, err)

	conv, err := store.Conventions().GetByID(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", conv.ID)

	e, err := store.Outbox().GetByID(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, outbox.TopicConventionSubmitted, e.Topic)
}

func TestPerform_ErrorDiscardsEveryStagedWrite(t *testing.T) {
	store := NewStore()
	u := NewUnitOfWork(store)

	boom := errors.New("boom")
	err := u.Perform(context.Background(), func(ctx context.Context, p uow.Ports) error {
		if err := p.Conventions.Save(ctx, testConvention(t, "conv-1")); err != nil {
			return err
		}
		if err := p.Outbox.Save(ctx, testEvent(t, "evt-1")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Conventions().GetByID(context.Background(), "conv-1")
	assert.ErrorIs(t, err, convention.ErrNotFound)
	_, err = store.Outbox().GetByID(context.Background(), "evt-1")
	assert.ErrorIs(t, err, outbox.ErrEventNotFound)
}

func TestPerform_TransactionReadsItsOwnWrites(t *testing.T) {
	store := NewStore()
	u := NewUnitOfWork(store)

	err := u.Perform(context.Background(), func(ctx context.Context, p uow.Ports) error {
		conv := testConvention(t, "conv-1")
		if err := p.Conventions.Save(ctx, conv); err != nil {
			return err
		}
		got, err := p.Conventions.GetByID(ctx, "conv-1")
		if err != nil {
			return err
		}
		assert.Equal(t, conv.Status, got.Status)

		if err := p.Outbox.Save(ctx, testEvent(t, "evt-1")); err != nil {
			return err
		}
		e, err := p.Outbox.GetByID(ctx, "evt-1")
		if err != nil {
			return err
		}
		assert.Equal(t, "evt-1", e.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestPerform_DuplicateEventID_Rejected(t *testing.T) {
	store := NewStore()
	u := NewUnitOfWork(store)

	// Duplicate within one transaction.
	err := u.Perform(context.Background(), func(ctx context.Context, p uow.Ports) error {
		if err := p.Outbox.Save(ctx, testEvent(t, "evt-1")); err != nil {
			return err
		}
		return p.Outbox.Save(ctx, testEvent(t, "evt-1"))
	})
	assert.ErrorIs(t, err, outbox.ErrAlreadyExists)

	// The failed transaction left nothing behind; a fresh one commits.
	err = u.Perform(context.Background(), func(ctx context.Context, p uow.Ports) error {
		return p.Outbox.Save(ctx, testEvent(t, "evt-1"))
	})
	require.NoError(t, err)

	// Duplicate against committed state.
	err = u.Perform(context.Background(), func(ctx context.Context, p uow.Ports) error {
		return p.Outbox.Save(ctx, testEvent(t, "evt-1"))
	})
	assert.ErrorIs(t, err, outbox.ErrAlreadyExists)
}

func TestPerform_CrawlOperationsUnavailable(t *testing.T) {
	store := NewStore()
	u := NewUnitOfWork(store)

	err := u.Perform(context.Background(), func(ctx context.Context, p uow.Ports) error {
		_, err := p.Outbox.FetchPending(ctx, 10)
		assert.Error(t, err)
		return p.Outbox.MarkAsPublished(ctx, "evt-1", outbox.Publication{At: txnNow})
	})
	assert.Error(t, err)
}

func TestPerform_CancelledContext(t *testing.T) {
	store := NewStore()
	u := NewUnitOfWork(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := u.Perform(ctx, func(ctx context.Context, p uow.Ports) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
