package application

import (
	"context"
	"time"

	"github.com/stagelink/immersion/internal/domain/outbox"
)

// AppendEvents persists one outbox event per payload inside the caller's
// transaction. Any failure aborts the whole unit of work, so aggregate
// writes never commit without their events.
func AppendEvents(ctx context.Context, repo outbox.Repository, ids IDGenerator, now time.Time, payloads []outbox.Payload) error {
	for _, payload := range payloads {
		e, err := outbox.New(ids.NewID(), now, payload)
		if err != nil {
			return err
		}
		if err := repo.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
