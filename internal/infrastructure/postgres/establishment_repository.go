package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	domain "github.com/stagelink/immersion/internal/domain/establishment"
)

type EstablishmentRepository struct {
	db querier
}

func NewEstablishmentRepository(db querier) *EstablishmentRepository {
	return &EstablishmentRepository{db: db}
}

func (r *EstablishmentRepository) GetBySiret(ctx context.Context, siret string) (*domain.Establishment, error) {
	const q = `
SELECT siret, name, contact_email, created_at
FROM establishments
WHERE siret = $1`

	var est domain.Establishment
	err := r.db.QueryRow(ctx, q, siret).Scan(&est.Siret, &est.Name, &est.ContactEmail, &est.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: select establishment %s: %w", siret, err)
	}
	return &est, nil
}

func (r *EstablishmentRepository) Save(ctx context.Context, est *domain.Establishment) error {
	const q = `
INSERT INTO establishments (siret, name, contact_email, created_at)
VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, q, est.Siret, est.Name, est.ContactEmail, est.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: insert establishment %s: %w", est.Siret, err)
	}
	return nil
}
