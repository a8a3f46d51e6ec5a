package convention

import (
	"context"
	"errors"
	"fmt"

	"github.com/stagelink/immersion/internal/domain/agency"
	domain "github.com/stagelink/immersion/internal/domain/convention"
	"github.com/stagelink/immersion/internal/domain/domainerr"
	"github.com/stagelink/immersion/internal/domain/uow"
)

const (
	useCaseSubmit             = "convention.submit"
	useCaseSign               = "convention.sign"
	useCaseAcceptByCounsellor = "convention.accept_by_counsellor"
	useCaseAcceptByValidator  = "convention.accept_by_validator"
	useCaseReject             = "convention.reject"
	useCaseCancel             = "convention.cancel"
	useCaseDeprecate          = "convention.deprecate"
)

func loadConvention(ctx context.Context, p uow.Ports, id string) (*domain.Convention, error) {
	conv, err := p.Conventions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domainerr.NewNotFound("convention", id)
		}
		return nil, fmt.Errorf("convention: load %s: %w", id, err)
	}
	return conv, nil
}

func loadAgency(ctx context.Context, p uow.Ports, id string) (*agency.Agency, error) {
	ag, err := p.Agencies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, agency.ErrNotFound) {
			return nil, domainerr.NewNotFound("agency", id)
		}
		return nil, fmt.Errorf("convention: load agency %s: %w", id, err)
	}
	return ag, nil
}

// authorize admits the user when they hold any of the listed roles on the
// agency. Holding no right at all and holding the wrong role both read as
// unauthorized, never as not found, so the caller cannot probe for rights.
func authorize(ctx context.Context, p uow.Ports, userID, agencyID string, roles ...agency.Role) error {
	right, err := p.Agencies.UserRight(ctx, userID, agencyID)
	if err != nil {
		if errors.Is(err, agency.ErrRightNotFound) {
			return domainerr.NewUnauthorized(fmt.Sprintf("user %s has no role on agency %s", userID, agencyID))
		}
		return fmt.Errorf("convention: load user right: %w", err)
	}
	for _, role := range roles {
		if right.Has(role) {
			return nil
		}
	}
	return domainerr.NewUnauthorized(fmt.Sprintf("user %s lacks the required role on agency %s", userID, agencyID))
}
