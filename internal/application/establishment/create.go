package establishment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stagelink/immersion/internal/application"
	"github.com/stagelink/immersion/internal/domain/domainerr"
	domain "github.com/stagelink/immersion/internal/domain/establishment"
	"github.com/stagelink/immersion/internal/domain/outbox"
	"github.com/stagelink/immersion/internal/domain/uow"
	"github.com/stagelink/immersion/internal/observability"
)

const useCaseCreate = "establishment.create"

type CreateInput struct {
	Siret        string `validate:"required,len=14,numeric"`
	Name         string `validate:"required"`
	ContactEmail string `validate:"omitempty,email"`
}

type CreateResult struct {
	Siret string
}

// CreateUseCase registers a host establishment, one row per SIRET.
type CreateUseCase struct {
	uow uow.UnitOfWork
	ids application.IDGenerator
	ins *application.Instrumentation
}

func NewCreateUseCase(u uow.UnitOfWork, ids application.IDGenerator, tel observability.Observability) *CreateUseCase {
	return &CreateUseCase{uow: u, ids: ids, ins: application.NewInstrumentation(useCaseCreate, tel)}
}

func (uc *CreateUseCase) Execute(ctx context.Context, cmd CreateInput) (*CreateResult, error) {
	var res *CreateResult
	err := uc.ins.Observe(ctx, func(ctx context.Context) error {
		if err := application.ValidateInput(cmd); err != nil {
			return err
		}
		now := time.Now().UTC()

		return uc.uow.Perform(ctx, func(ctx context.Context, p uow.Ports) error {
			if _, err := p.Establishments.GetBySiret(ctx, cmd.Siret); err == nil {
				return domainerr.NewConflict(fmt.Sprintf("establishment %s already registered", cmd.Siret))
			} else if !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("establishment: lookup %s: %w", cmd.Siret, err)
			}

			est, err := domain.New(cmd.Siret, cmd.Name, cmd.ContactEmail, now)
			if err != nil {
				return fmt.Errorf("establishment: construct: %w", err)
			}
			if err := p.Establishments.Save(ctx, est); err != nil {
				if errors.Is(err, domain.ErrAlreadyExists) {
					return domainerr.NewConflict(fmt.Sprintf("establishment %s already registered", cmd.Siret))
				}
				return fmt.Errorf("establishment: save %s: %w", cmd.Siret, err)
			}
			payloads := []outbox.Payload{
				domain.CreatedEvent{Siret: est.Siret, Name: est.Name},
			}
			if err := application.AppendEvents(ctx, p.Outbox, uc.ids, now, payloads); err != nil {
				return err
			}
			res = &CreateResult{Siret: est.Siret}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
