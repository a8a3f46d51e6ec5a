package agency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stagelink/immersion/internal/application"
	domain "github.com/stagelink/immersion/internal/domain/agency"
	"github.com/stagelink/immersion/internal/domain/domainerr"
	"github.com/stagelink/immersion/internal/domain/outbox"
	"github.com/stagelink/immersion/internal/domain/uow"
	"github.com/stagelink/immersion/internal/observability"
)

const useCaseRegisterUser = "agency.register_user"

type RegisterUserInput struct {
	UserID   string      `validate:"required"`
	AgencyID string      `validate:"required"`
	Role     domain.Role `validate:"required,oneof=counsellor validator agency_admin"`
}

type RegisterUserResult struct {
	UserID   string
	AgencyID string
	Roles    []domain.Role
	// Granted is false when the user already held the role; no event is
	// recorded in that case.
	Granted bool
}

// RegisterUserUseCase links a user to an agency with a role. Granting an
// already-held role is a no-op.
type RegisterUserUseCase struct {
	uow uow.UnitOfWork
	ids application.IDGenerator
	ins *application.Instrumentation
}

func NewRegisterUserUseCase(u uow.UnitOfWork, ids application.IDGenerator, tel observability.Observability) *RegisterUserUseCase {
	return &RegisterUserUseCase{uow: u, ids: ids, ins: application.NewInstrumentation(useCaseRegisterUser, tel)}
}

func (uc *RegisterUserUseCase) Execute(ctx context.Context, cmd RegisterUserInput) (*RegisterUserResult, error) {
	var res *RegisterUserResult
	err := uc.ins.Observe(ctx, func(ctx context.Context) error {
		if err := application.ValidateInput(cmd); err != nil {
			return err
		}
		now := time.Now().UTC()

		return uc.uow.Perform(ctx, func(ctx context.Context, p uow.Ports) error {
			if _, err := p.Agencies.GetByID(ctx, cmd.AgencyID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domainerr.NewNotFound("agency", cmd.AgencyID)
				}
				return fmt.Errorf("agency: load %s: %w", cmd.AgencyID, err)
			}

			right, err := p.Agencies.UserRight(ctx, cmd.UserID, cmd.AgencyID)
			if err != nil && !errors.Is(err, domain.ErrRightNotFound) {
				return fmt.Errorf("agency: load user right: %w", err)
			}
			if errors.Is(err, domain.ErrRightNotFound) {
				right = domain.UserRight{UserID: cmd.UserID, AgencyID: cmd.AgencyID}
			}

			if !right.Grant(cmd.Role) {
				res = &RegisterUserResult{UserID: right.UserID, AgencyID: right.AgencyID, Roles: right.Roles}
				return nil
			}
			if err := p.Agencies.SaveUserRight(ctx, right); err != nil {
				return fmt.Errorf("agency: save user right: %w", err)
			}
			payloads := []outbox.Payload{
				domain.RegisteredToUserEvent{UserID: cmd.UserID, AgencyID: cmd.AgencyID, Role: cmd.Role},
			}
			if err := application.AppendEvents(ctx, p.Outbox, uc.ids, now, payloads); err != nil {
				return err
			}
			res = &RegisterUserResult{UserID: right.UserID, AgencyID: right.AgencyID, Roles: right.Roles, Granted: true}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
