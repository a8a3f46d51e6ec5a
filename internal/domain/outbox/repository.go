package outbox

import "context"

// Repository is the durable append-only log of events.
//
// Save runs inside the caller's unit-of-work transaction; all other methods
// belong to the crawler and operate outside any business transaction.
type Repository interface {
	// Save appends one event. Saving an id that already exists fails with
	// a conflict and must not duplicate the row.
	Save(ctx context.Context, e Event) error

	// FetchPending returns up to limit unsettled events, oldest first.
	// Returned events are leased against concurrent crawl ticks; the lease
	// is released by MarkAsPublished or expires on its own.
	FetchPending(ctx context.Context, limit int) ([]Event, error)

	// MarkAsPublished appends a publication record to the event's history
	// and releases its crawl lease.
	MarkAsPublished(ctx context.Context, id string, p Publication) error

	// GetByID loads one event with its full publication history.
	GetByID(ctx context.Context, id string) (Event, error)
}
