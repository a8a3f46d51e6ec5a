package convention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stagelink/immersion/internal/application"
	domain "github.com/stagelink/immersion/internal/domain/convention"
	"github.com/stagelink/immersion/internal/domain/domainerr"
	"github.com/stagelink/immersion/internal/domain/uow"
	"github.com/stagelink/immersion/internal/observability"
)

type SignatoryInput struct {
	Name  string `validate:"required"`
	Email string `validate:"required,email"`
}

func (s SignatoryInput) toDomain() domain.Signatory {
	return domain.Signatory{Name: s.Name, Email: s.Email}
}

func (s *SignatoryInput) toDomainPtr() *domain.Signatory {
	if s == nil {
		return nil
	}
	out := s.toDomain()
	return &out
}

type SubmitInput struct {
	// ConventionID is generated when empty; callers retrying a failed
	// request may resend the one they were given.
	ConventionID                string          `validate:"omitempty"`
	AgencyID                    string          `validate:"required"`
	EstablishmentSiret          string          `validate:"required,len=14,numeric"`
	Objective                   string          `validate:"required"`
	Beneficiary                 SignatoryInput  `validate:"required"`
	EstablishmentRepresentative SignatoryInput  `validate:"required"`
	LegalRepresentative         *SignatoryInput `validate:"omitempty"`
	CurrentEmployer             *SignatoryInput `validate:"omitempty"`
}

type SubmitResult struct {
	ConventionID string
	Status       domain.Status
}

// SubmitUseCase creates a convention and immediately moves it to
// READY_TO_SIGN; the row and its submitted event commit together.
type SubmitUseCase struct {
	uow uow.UnitOfWork
	ids application.IDGenerator
	ins *application.Instrumentation
}

func NewSubmitUseCase(u uow.UnitOfWork, ids application.IDGenerator, tel observability.Observability) *SubmitUseCase {
	return &SubmitUseCase{uow: u, ids: ids, ins: application.NewInstrumentation(useCaseSubmit, tel)}
}

func (uc *SubmitUseCase) Execute(ctx context.Context, cmd SubmitInput) (*SubmitResult, error) {
	var res *SubmitResult
	err := uc.ins.Observe(ctx, func(ctx context.Context) error {
		if err := application.ValidateInput(cmd); err != nil {
			return err
		}

		id := cmd.ConventionID
		if id == "" {
			id = uc.ids.NewID()
		}
		now := time.Now().UTC()

		return uc.uow.Perform(ctx, func(ctx context.Context, p uow.Ports) error {
			if _, err := loadAgency(ctx, p, cmd.AgencyID); err != nil {
				return err
			}
			if _, err := p.Conventions.GetByID(ctx, id); err == nil {
				return domainerr.NewConflict(fmt.Sprintf("convention %s already exists", id))
			} else if !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("convention: lookup %s: %w", id, err)
			}

			signatories := domain.Signatories{
				Beneficiary:                 cmd.Beneficiary.toDomain(),
				EstablishmentRepresentative: cmd.EstablishmentRepresentative.toDomain(),
				LegalRepresentative:         cmd.LegalRepresentative.toDomainPtr(),
				CurrentEmployer:             cmd.CurrentEmployer.toDomainPtr(),
			}
			conv, err := domain.New(id, cmd.AgencyID, cmd.EstablishmentSiret, cmd.Objective, signatories, now)
			if err != nil {
				return fmt.Errorf("convention: construct: %w", err)
			}

			transition, err := conv.Submit(now)
			if err != nil {
				return err
			}
			if err := p.Conventions.Save(ctx, conv); err != nil {
				return fmt.Errorf("convention: save %s: %w", id, err)
			}
			if err := application.AppendEvents(ctx, p.Outbox, uc.ids, now, transition.Events); err != nil {
				return err
			}
			res = &SubmitResult{ConventionID: conv.ID, Status: conv.Status}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
