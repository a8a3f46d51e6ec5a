package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	domain "github.com/stagelink/immersion/internal/domain/convention"
)

type ConventionRepository struct {
	db querier
}

func NewConventionRepository(db querier) *ConventionRepository {
	return &ConventionRepository{db: db}
}

// GetByID takes a row lock when running inside a transaction, so two
// concurrent transitions on the same convention serialize instead of
// clobbering each other.
func (r *ConventionRepository) GetByID(ctx context.Context, id string) (*domain.Convention, error) {
	const q = `
SELECT id, agency_id, establishment_siret, objective, status,
       signatories, status_justification, created_at, updated_at
FROM conventions
WHERE id = $1
FOR UPDATE`

	var (
		conv           domain.Convention
		signatoriesRaw []byte
		status         string
	)
	err := r.db.QueryRow(ctx, q, id).Scan(
		&conv.ID, &conv.AgencyID, &conv.EstablishmentSiret, &conv.Objective, &status,
		&signatoriesRaw, &conv.StatusJustification, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: select convention %s: %w", id, err)
	}
	conv.Status = domain.Status(status)
	conv.Signatories, err = decodeSignatories(signatoriesRaw)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConventionRepository) Save(ctx context.Context, conv *domain.Convention) error {
	signatoriesRaw, err := encodeSignatories(conv.Signatories)
	if err != nil {
		return fmt.Errorf("postgres: encode signatories: %w", err)
	}
	const q = `
INSERT INTO conventions (id, agency_id, establishment_siret, objective, status,
                         signatories, status_justification, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	status               = EXCLUDED.status,
	signatories          = EXCLUDED.signatories,
	status_justification = EXCLUDED.status_justification,
	updated_at           = EXCLUDED.updated_at`

	_, err = r.db.Exec(ctx, q,
		conv.ID, conv.AgencyID, conv.EstablishmentSiret, conv.Objective, string(conv.Status),
		signatoriesRaw, conv.StatusJustification, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert convention %s: %w", conv.ID, err)
	}
	return nil
}
