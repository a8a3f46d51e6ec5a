package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stagelink/immersion/internal/domain/outbox"
)

const defaultEventLeaseTTL = time.Minute

// OutboxRepository stores events in one table. Settlement is denormalized
// into a column on write, so FetchPending stays an indexed scan instead of
// decoding every publication history.
type OutboxRepository struct {
	db       querier
	leaseTTL time.Duration
}

func NewOutboxRepository(db querier) *OutboxRepository {
	return &OutboxRepository{db: db, leaseTTL: defaultEventLeaseTTL}
}

// SetLeaseTTL overrides how long fetched events stay invisible to
// concurrent crawl ticks.
func (r *OutboxRepository) SetLeaseTTL(ttl time.Duration) { r.leaseTTL = ttl }

func (r *OutboxRepository) Save(ctx context.Context, e outbox.Event) error {
	payloadRaw, err := encodePayload(e.Payload)
	if err != nil {
		return fmt.Errorf("postgres: encode %s payload: %w", e.Topic, err)
	}
	const q = `
INSERT INTO outbox_events (id, occurred_at, topic, payload, publications, was_quarantined, settled)
VALUES ($1, $2, $3, $4, '[]'::jsonb, false, false)`

	_, err = r.db.Exec(ctx, q, e.ID, e.OccurredAt, string(e.Topic), payloadRaw)
	if err != nil {
		if isUniqueViolation(err) {
			return outbox.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: insert event %s: %w", e.ID, err)
	}
	return nil
}

// FetchPending leases up to limit unsettled events, oldest first. SKIP
// LOCKED keeps overlapping crawl ticks from fighting over the same rows.
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]outbox.Event, error) {
	const q = `
UPDATE outbox_events
SET leased_until = now() + make_interval(secs => $2)
WHERE id IN (
	SELECT id
	FROM outbox_events
	WHERE NOT settled
	  AND (leased_until IS NULL OR leased_until < now())
	ORDER BY occurred_at, id
	LIMIT $1
	FOR UPDATE SKIP LOCKED
)
RETURNING id, occurred_at, topic, payload, publications, was_quarantined`

	rows, err := r.db.Query(ctx, q, limit, r.leaseTTL.Seconds())
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch pending events: %w", err)
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate pending events: %w", err)
	}
	return events, nil
}

// MarkAsPublished appends the publication under the row lock, recomputes
// settlement, and releases the crawl lease.
func (r *OutboxRepository) MarkAsPublished(ctx context.Context, id string, p outbox.Publication) error {
	const sel = `
SELECT id, occurred_at, topic, payload, publications, was_quarantined
FROM outbox_events
WHERE id = $1
FOR UPDATE`

	e, err := scanEvent(r.db.QueryRow(ctx, sel, id))
	if err != nil {
		return err
	}
	e.RecordPublication(p)

	pubsRaw, err := encodePublications(e.Publications)
	if err != nil {
		return fmt.Errorf("postgres: encode publications: %w", err)
	}
	const upd = `
UPDATE outbox_events
SET publications = $2, was_quarantined = $3, settled = $4, leased_until = NULL
WHERE id = $1`

	if _, err := r.db.Exec(ctx, upd, id, pubsRaw, e.WasQuarantined, e.Settled()); err != nil {
		return fmt.Errorf("postgres: update event %s: %w", id, err)
	}
	return nil
}

func (r *OutboxRepository) GetByID(ctx context.Context, id string) (outbox.Event, error) {
	const q = `
SELECT id, occurred_at, topic, payload, publications, was_quarantined
FROM outbox_events
WHERE id = $1`

	return scanEvent(r.db.QueryRow(ctx, q, id))
}

func scanEvent(row pgx.Row) (outbox.Event, error) {
	var (
		e          outbox.Event
		topic      string
		payloadRaw []byte
		pubsRaw    []byte
	)
	err := row.Scan(&e.ID, &e.OccurredAt, &topic, &payloadRaw, &pubsRaw, &e.WasQuarantined)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return outbox.Event{}, outbox.ErrEventNotFound
		}
		return outbox.Event{}, fmt.Errorf("postgres: scan event: %w", err)
	}
	e.Topic = outbox.Topic(topic)
	e.Payload, err = decodePayload(e.Topic, payloadRaw)
	if err != nil {
		return outbox.Event{}, err
	}
	e.Publications, err = decodePublications(pubsRaw)
	if err != nil {
		return outbox.Event{}, err
	}
	return e, nil
}
