package uow

import (
	"context"

	"github.com/stagelink/immersion/internal/domain/agency"
	"github.com/stagelink/immersion/internal/domain/convention"
	"github.com/stagelink/immersion/internal/domain/establishment"
	"github.com/stagelink/immersion/internal/domain/outbox"
)

// Ports is the fixed set of repositories a use case may touch, all bound to
// one underlying transaction.
type Ports struct {
	Conventions    convention.Repository
	Agencies       agency.Repository
	Establishments establishment.Repository
	Outbox         outbox.Repository
}

// UnitOfWork groups repository mutations and outbox appends into a single
// atomic commit. On any error from fn the whole transaction rolls back and
// the error propagates unchanged: there is no partial-apply path, which is
// what keeps "state changed" and "event recorded" inseparable.
type UnitOfWork interface {
	Perform(ctx context.Context, fn func(ctx context.Context, p Ports) error) error
}
