package convention

import (
	"context"
	"fmt"
	"time"

	"github.com/stagelink/immersion/internal/application"
	domain "github.com/stagelink/immersion/internal/domain/convention"
	"github.com/stagelink/immersion/internal/domain/uow"
	"github.com/stagelink/immersion/internal/observability"
)

type SignInput struct {
	ConventionID string               `validate:"required"`
	Role         domain.SignatoryRole `validate:"required,oneof=beneficiary establishment_representative legal_representative current_employer"`
}

type SignResult struct {
	ConventionID string
	Status       domain.Status
	// Changed is false when the party had already signed; nothing was
	// written and no event was recorded.
	Changed bool
}

// SignUseCase records one party's signature. Re-signing is a harmless no-op.
type SignUseCase struct {
	uow uow.UnitOfWork
	ids application.IDGenerator
	ins *application.Instrumentation
}

func NewSignUseCase(u uow.UnitOfWork, ids application.IDGenerator, tel observability.Observability) *SignUseCase {
	return &SignUseCase{uow: u, ids: ids, ins: application.NewInstrumentation(useCaseSign, tel)}
}

func (uc *SignUseCase) Execute(ctx context.Context, cmd SignInput) (*SignResult, error) {
	var res *SignResult
	err := uc.ins.Observe(ctx, func(ctx context.Context) error {
		if err := application.ValidateInput(cmd); err != nil {
			return err
		}
		now := time.Now().UTC()

		return uc.uow.Perform(ctx, func(ctx context.Context, p uow.Ports) error {
			conv, err := loadConvention(ctx, p, cmd.ConventionID)
			if err != nil {
				return err
			}
			transition, err := conv.Sign(cmd.Role, now)
			if err != nil {
				return err
			}
			if !transition.Changed {
				res = &SignResult{ConventionID: conv.ID, Status: conv.Status}
				return nil
			}
			if err := p.Conventions.Save(ctx, conv); err != nil {
				return fmt.Errorf("convention: save %s: %w", conv.ID, err)
			}
			if err := application.AppendEvents(ctx, p.Outbox, uc.ids, now, transition.Events); err != nil {
				return err
			}
			res = &SignResult{ConventionID: conv.ID, Status: conv.Status, Changed: true}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
