package convention

import (
	"context"
	"fmt"
	"time"

	"github.com/stagelink/immersion/internal/application"
	"github.com/stagelink/immersion/internal/domain/agency"
	domain "github.com/stagelink/immersion/internal/domain/convention"
	"github.com/stagelink/immersion/internal/domain/uow"
	"github.com/stagelink/immersion/internal/observability"
)

type RejectInput struct {
	ConventionID  string `validate:"required"`
	UserID        string `validate:"required"`
	Justification string `validate:"required"`
}

type TerminateInput struct {
	ConventionID string `validate:"required"`
	UserID       string `validate:"required"`
}

type TerminateResult struct {
	ConventionID string
	Status       domain.Status
}

// terminate factors the three terminal transitions: load, authorize as
// validator or agency admin, apply, persist aggregate and events together.
func terminate(
	ctx context.Context,
	u uow.UnitOfWork,
	ids application.IDGenerator,
	conventionID, userID string,
	apply func(conv *domain.Convention, now time.Time) (domain.Result, error),
) (*TerminateResult, error) {
	now := time.Now().UTC()
	var res *TerminateResult
	err := u.Perform(ctx, func(ctx context.Context, p uow.Ports) error {
		conv, err := loadConvention(ctx, p, conventionID)
		if err != nil {
			return err
		}
		if err := authorize(ctx, p, userID, conv.AgencyID, agency.RoleValidator, agency.RoleAgencyAdmin); err != nil {
			return err
		}
		transition, err := apply(conv, now)
		if err != nil {
			return err
		}
		if err := p.Conventions.Save(ctx, conv); err != nil {
			return fmt.Errorf("convention: save %s: %w", conv.ID, err)
		}
		if err := application.AppendEvents(ctx, p.Outbox, ids, now, transition.Events); err != nil {
			return err
		}
		res = &TerminateResult{ConventionID: conv.ID, Status: conv.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RejectUseCase terminates a convention with a mandatory justification.
type RejectUseCase struct {
	uow uow.UnitOfWork
	ids application.IDGenerator
	ins *application.Instrumentation
}

func NewRejectUseCase(u uow.UnitOfWork, ids application.IDGenerator, tel observability.Observability) *RejectUseCase {
	return &RejectUseCase{uow: u, ids: ids, ins: application.NewInstrumentation(useCaseReject, tel)}
}

func (uc *RejectUseCase) Execute(ctx context.Context, cmd RejectInput) (*TerminateResult, error) {
	var res *TerminateResult
	err := uc.ins.Observe(ctx, func(ctx context.Context) error {
		if err := application.ValidateInput(cmd); err != nil {
			return err
		}
		var inner error
		res, inner = terminate(ctx, uc.uow, uc.ids, cmd.ConventionID, cmd.UserID,
			func(conv *domain.Convention, now time.Time) (domain.Result, error) {
				return conv.Reject(cmd.Justification, cmd.UserID, now)
			})
		return inner
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CancelUseCase terminates a convention under agency or admin action.
type CancelUseCase struct {
	uow uow.UnitOfWork
	ids application.IDGenerator
	ins *application.Instrumentation
}

func NewCancelUseCase(u uow.UnitOfWork, ids application.IDGenerator, tel observability.Observability) *CancelUseCase {
	return &CancelUseCase{uow: u, ids: ids, ins: application.NewInstrumentation(useCaseCancel, tel)}
}

func (uc *CancelUseCase) Execute(ctx context.Context, cmd TerminateInput) (*TerminateResult, error) {
	var res *TerminateResult
	err := uc.ins.Observe(ctx, func(ctx context.Context) error {
		if err := application.ValidateInput(cmd); err != nil {
			return err
		}
		var inner error
		res, inner = terminate(ctx, uc.uow, uc.ids, cmd.ConventionID, cmd.UserID,
			func(conv *domain.Convention, now time.Time) (domain.Result, error) {
				return conv.Cancel(cmd.UserID, now)
			})
		return inner
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeprecateUseCase marks a convention obsolete without deleting it.
type DeprecateUseCase struct {
	uow uow.UnitOfWork
	ids application.IDGenerator
	ins *application.Instrumentation
}

func NewDeprecateUseCase(u uow.UnitOfWork, ids application.IDGenerator, tel observability.Observability) *DeprecateUseCase {
	return &DeprecateUseCase{uow: u, ids: ids, ins: application.NewInstrumentation(useCaseDeprecate, tel)}
}

func (uc *DeprecateUseCase) Execute(ctx context.Context, cmd TerminateInput) (*TerminateResult, error) {
	var res *TerminateResult
	err := uc.ins.Observe(ctx, func(ctx context.Context) error {
		if err := application.ValidateInput(cmd); err != nil {
			return err
		}
		var inner error
		res, inner = terminate(ctx, uc.uow, uc.ids, cmd.ConventionID, cmd.UserID,
			func(conv *domain.Convention, now time.Time) (domain.Result, error) {
				return conv.Deprecate(cmd.UserID, now)
			})
		return inner
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
