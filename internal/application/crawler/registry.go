package crawler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/stagelink/immersion/internal/domain/outbox"
)

// Subscriber reacts to events of one topic. Name must be stable across
// restarts: delivery bookkeeping (successes, failures, quarantine) is
// recorded against it. Handlers run at-least-once and must be idempotent.
type Subscriber struct {
	Name   string
	Handle func(ctx context.Context, e outbox.Event) error
}

// Registry is the immutable topic-to-subscribers mapping, built once at
// startup and never mutated afterwards.
type Registry struct {
	subs map[outbox.Topic][]Subscriber
}

// NewRegistry validates the mapping exhaustively: every topic of the closed
// enumeration must appear as a key, so forgetting a new topic is a startup
// error instead of a silent runtime no-op. An explicit empty list declares
// that nobody listens; such events are settled trivially by the crawler.
func NewRegistry(handlers map[outbox.Topic][]Subscriber) (*Registry, error) {
	var missing []string
	for _, topic := range outbox.Topics() {
		if _, ok := handlers[topic]; !ok {
			missing = append(missing, string(topic))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("crawler: registry is missing topics: %s", strings.Join(missing, ", "))
	}

	subs := make(map[outbox.Topic][]Subscriber, len(handlers))
	for topic, list := range handlers {
		if !topic.Valid() {
			return nil, fmt.Errorf("crawler: registry declares unknown topic %q", topic)
		}
		seen := make(map[string]struct{}, len(list))
		for _, sub := range list {
			if sub.Name == "" {
				return nil, fmt.Errorf("crawler: unnamed subscriber on topic %q", topic)
			}
			if sub.Handle == nil {
				return nil, fmt.Errorf("crawler: subscriber %q on topic %q has no handler", sub.Name, topic)
			}
			if _, dup := seen[sub.Name]; dup {
				return nil, fmt.Errorf("crawler: duplicate subscriber %q on topic %q", sub.Name, topic)
			}
			seen[sub.Name] = struct{}{}
		}
		subs[topic] = append([]Subscriber(nil), list...)
	}
	return &Registry{subs: subs}, nil
}

// SubscribersFor returns a copy of the subscriber list for the topic.
func (r *Registry) SubscribersFor(topic outbox.Topic) []Subscriber {
	return append([]Subscriber(nil), r.subs[topic]...)
}
