package memory

import (
	"context"

	"github.com/stagelink/immersion/internal/domain/outbox"
)

// Outbox exposes the store as the event log the crawler works against.
// FetchPending leases what it returns, so overlapping crawl ticks never
// dispatch the same event twice within the lease window.
func (s *Store) Outbox() outbox.Repository { return outboxView{s} }

type outboxView struct{ s *Store }

func (v outboxView) Save(ctx context.Context, e outbox.Event) error {
	_ = ctx
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.appendEvent(e)
}

func (s *Store) appendEvent(e outbox.Event) error {
	if e.ID == "" {
		return outbox.ErrMissingID
	}
	if _, exists := s.events[e.ID]; exists {
		return outbox.ErrAlreadyExists
	}
	cp := e.Clone()
	s.events[e.ID] = &cp
	s.eventOrder = append(s.eventOrder, e.ID)
	return nil
}

func (v outboxView) FetchPending(ctx context.Context, limit int) ([]outbox.Event, error) {
	_ = ctx
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	now := v.s.now()
	var out []outbox.Event
	for _, id := range v.s.eventOrder {
		if limit > 0 && len(out) >= limit {
			break
		}
		e := v.s.events[id]
		if e.Settled() {
			continue
		}
		if expiry, leased := v.s.leases[id]; leased && now.Before(expiry) {
			continue
		}
		v.s.leases[id] = now.Add(v.s.leaseTTL)
		out = append(out, e.Clone())
	}
	return out, nil
}

func (v outboxView) MarkAsPublished(ctx context.Context, id string, p outbox.Publication) error {
	_ = ctx
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	e, ok := v.s.events[id]
	if !ok {
		return outbox.ErrEventNotFound
	}
	p.Outcomes = append([]outbox.Outcome(nil), p.Outcomes...)
	e.RecordPublication(p)
	delete(v.s.leases, id)
	return nil
}

// Events snapshots the full log in append order.
func (s *Store) Events() []outbox.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]outbox.Event, 0, len(s.eventOrder))
	for _, id := range s.eventOrder {
		out = append(out, s.events[id].Clone())
	}
	return out
}

func (v outboxView) GetByID(ctx context.Context, id string) (outbox.Event, error) {
	_ = ctx
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	e, ok := v.s.events[id]
	if !ok {
		return outbox.Event{}, outbox.ErrEventNotFound
	}
	return e.Clone(), nil
}
