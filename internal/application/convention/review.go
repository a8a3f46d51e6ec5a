package convention

import (
	"context"
	"fmt"
	"time"

	"github.com/stagelink/immersion/internal/application"
	"github.com/stagelink/immersion/internal/domain/agency"
	domain "github.com/stagelink/immersion/internal/domain/convention"
	"github.com/stagelink/immersion/internal/domain/domainerr"
	"github.com/stagelink/immersion/internal/domain/uow"
	"github.com/stagelink/immersion/internal/observability"
)

type ReviewInput struct {
	ConventionID string `validate:"required"`
	UserID       string `validate:"required"`
}

type ReviewResult struct {
	ConventionID string
	Status       domain.Status
}

// AcceptByCounsellorUseCase records the counsellor pre-validation step.
// Only users holding the counsellor role on the convention's agency may
// perform it.
type AcceptByCounsellorUseCase struct {
	uow uow.UnitOfWork
	ids application.IDGenerator
	ins *application.Instrumentation
}

func NewAcceptByCounsellorUseCase(u uow.UnitOfWork, ids application.IDGenerator, tel observability.Observability) *AcceptByCounsellorUseCase {
	return &AcceptByCounsellorUseCase{uow: u, ids: ids, ins: application.NewInstrumentation(useCaseAcceptByCounsellor, tel)}
}

func (uc *AcceptByCounsellorUseCase) Execute(ctx context.Context, cmd ReviewInput) (*ReviewResult, error) {
	var res *ReviewResult
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
			if err := authorize(ctx, p, cmd.UserID, conv.AgencyID, agency.RoleCounsellor); err != nil {
				return err
			}
			transition, err := conv.AcceptByCounsellor(cmd.UserID, now)
			if err != nil {
				return err
			}
			if err := p.Conventions.Save(ctx, conv); err != nil {
				return fmt.Errorf("convention: save %s: %w", conv.ID, err)
			}
			if err := application.AppendEvents(ctx, p.Outbox, uc.ids, now, transition.Events); err != nil {
				return err
			}
			res = &ReviewResult{ConventionID: conv.ID, Status: conv.Status}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AcceptByValidatorUseCase is the final agency validation. Agencies that
// require counsellor review refuse a direct validation from IN_REVIEW;
// broadcast-partner agencies get the partner notification scheduled in the
// same commit.
type AcceptByValidatorUseCase struct {
	uow uow.UnitOfWork
	ids application.IDGenerator
	ins *application.Instrumentation
}

func NewAcceptByValidatorUseCase(u uow.UnitOfWork, ids application.IDGenerator, tel observability.Observability) *AcceptByValidatorUseCase {
	return &AcceptByValidatorUseCase{uow: u, ids: ids, ins: application.NewInstrumentation(useCaseAcceptByValidator, tel)}
}

func (uc *AcceptByValidatorUseCase) Execute(ctx context.Context, cmd ReviewInput) (*ReviewResult, error) {
	var res *ReviewResult
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
			ag, err := loadAgency(ctx, p, conv.AgencyID)
			if err != nil {
				return err
			}
			if err := authorize(ctx, p, cmd.UserID, conv.AgencyID, agency.RoleValidator); err != nil {
				return err
			}
			if ag.RequiresCounsellorReview && conv.Status == domain.StatusInReview {
				return &domainerr.Error{
					Kind: domainerr.KindIllegalTransition,
					Msg:  fmt.Sprintf("agency %s requires counsellor review before validation", ag.ID),
				}
			}
			transition, err := conv.AcceptByValidator(cmd.UserID, ag.PartnerBroadcast, now)
			if err != nil {
				return err
			}
			if err := p.Conventions.Save(ctx, conv); err != nil {
				return fmt.Errorf("convention: save %s: %w", conv.ID, err)
			}
			if err := application.AppendEvents(ctx, p.Outbox, uc.ids, now, transition.Events); err != nil {
				return err
			}
			res = &ReviewResult{ConventionID: conv.ID, Status: conv.Status}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
