package application

import "context"

// UseCase is one business operation: validate input, open one unit of work,
// apply at most one state transition, commit aggregate and events together.
type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

// IDGenerator issues unique identifiers for aggregates and events.
type IDGenerator interface {
	NewID() string
}
