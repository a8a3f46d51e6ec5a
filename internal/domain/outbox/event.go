package outbox

import (
	"errors"
	"time"
)

var (
	ErrMissingID     = errors.New("outbox: event id is required")
	ErrNilPayload    = errors.New("outbox: event payload is required")
	ErrUnknownTopic  = errors.New("outbox: unknown topic")
	ErrAlreadyExists = errors.New("outbox: event already exists")
	ErrEventNotFound = errors.New("outbox: event not found")
)

// Outcome records one subscriber's result within a publication attempt.
// An empty Err means success. Quarantined marks the attempt that exhausted
// the subscriber's retry budget; that subscriber is never invoked again.
type Outcome struct {
	Subscriber  string
	Err         string
	Quarantined bool
}

func (o Outcome) Succeeded() bool { return o.Err == "" }

// Publication is one delivery attempt addressing a set of subscribers.
type Publication struct {
	At       time.Time
	Outcomes []Outcome
}

// FullySuccessful reports whether every addressed subscriber succeeded.
// A publication with no outcomes (no registered subscribers) counts as
// fully successful, which is what settles events nobody listens to.
func (p Publication) FullySuccessful() bool {
	for _, o := range p.Outcomes {
		if !o.Succeeded() {
			return false
		}
	}
	return true
}

// Event is the immutable record of a committed business fact plus its
// delivery bookkeeping. The payload never changes after creation; only
// Publications and WasQuarantined accrue as the crawler works the event.
type Event struct {
	ID             string
	OccurredAt     time.Time
	Topic          Topic
	Payload        Payload
	Publications   []Publication
	WasQuarantined bool
}

func New(id string, occurredAt time.Time, payload Payload) (Event, error) {
	if id == "" {
		return Event{}, ErrMissingID
	}
	if payload == nil {
		return Event{}, ErrNilPayload
	}
	topic := payload.Topic()
	if !topic.Valid() {
		return Event{}, ErrUnknownTopic
	}
	return Event{
		ID:         id,
		OccurredAt: occurredAt.UTC(),
		Topic:      topic,
		Payload:    payload,
	}, nil
}

// RecordPublication appends one attempt to the history and flips the
// quarantine flag when any subscriber exhausted its budget in this attempt.
func (e *Event) RecordPublication(p Publication) {
	e.Publications = append(e.Publications, p)
	for _, o := range p.Outcomes {
		if o.Quarantined {
			e.WasQuarantined = true
		}
	}
}

// SucceededFor reports whether the subscriber has at least one successful
// attempt anywhere in the publication history.
func (e *Event) SucceededFor(subscriber string) bool {
	for _, p := range e.Publications {
		for _, o := range p.Outcomes {
			if o.Subscriber == subscriber && o.Succeeded() {
				return true
			}
		}
	}
	return false
}

// FailureCountFor counts the subscriber's recorded failures.
func (e *Event) FailureCountFor(subscriber string) int {
	n := 0
	for _, p := range e.Publications {
		for _, o := range p.Outcomes {
			if o.Subscriber == subscriber && !o.Succeeded() {
				n++
			}
		}
	}
	return n
}

// QuarantinedFor reports whether the subscriber's retries were suspended.
func (e *Event) QuarantinedFor(subscriber string) bool {
	for _, p := range e.Publications {
		for _, o := range p.Outcomes {
			if o.Subscriber == subscriber && o.Quarantined {
				return true
			}
		}
	}
	return false
}

// Terminal reports whether the event must never be re-dispatched: the last
// publication addressed a subscriber set whose members all have a success
// somewhere in the accumulated history.
func (e *Event) Terminal() bool {
	if len(e.Publications) == 0 {
		return false
	}
	last := e.Publications[len(e.Publications)-1]
	for _, o := range last.Outcomes {
		if !e.SucceededFor(o.Subscriber) {
			return false
		}
	}
	return true
}

// Settled reports whether the crawler has nothing left to do: every
// subscriber addressed by the last publication either succeeded once or is
// quarantined. A settled, non-terminal event is surfaced for operator
// inspection through WasQuarantined.
func (e *Event) Settled() bool {
	if len(e.Publications) == 0 {
		return false
	}
	last := e.Publications[len(e.Publications)-1]
	for _, o := range last.Outcomes {
		if !e.SucceededFor(o.Subscriber) && !e.QuarantinedFor(o.Subscriber) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy, so stores can hand out events without sharing
// publication slices with callers.
func (e Event) Clone() Event {
	out := e
	out.Publications = make([]Publication, len(e.Publications))
	for i, p := range e.Publications {
		cp := p
		cp.Outcomes = append([]Outcome(nil), p.Outcomes...)
		out.Publications[i] = cp
	}
	return out
}
