package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	domain "github.com/stagelink/immersion/internal/domain/agency"
)

type AgencyRepository struct {
	db querier
}

func NewAgencyRepository(db querier) *AgencyRepository {
	return &AgencyRepository{db: db}
}

func (r *AgencyRepository) GetByID(ctx context.Context, id string) (*domain.Agency, error) {
	const q = `
SELECT id, name, kind, requires_counsellor_review, partner_broadcast
FROM agencies
WHERE id = $1`

	var (
		ag   domain.Agency
		kind string
	)
	err := r.db.QueryRow(ctx, q, id).Scan(
		&ag.ID, &ag.Name, &kind, &ag.RequiresCounsellorReview, &ag.PartnerBroadcast,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: select agency %s: %w", id, err)
	}
	ag.Kind = domain.Kind(kind)
	return &ag, nil
}

func (r *AgencyRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Agency, error) {
	const q = `
SELECT id, name, kind, requires_counsellor_review, partner_broadcast
FROM agencies
WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: select agencies: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*domain.Agency, len(ids))
	for rows.Next() {
		var (
			ag   domain.Agency
			kind string
		)
		if err := rows.Scan(&ag.ID, &ag.Name, &kind, &ag.RequiresCounsellorReview, &ag.PartnerBroadcast); err != nil {
			return nil, fmt.Errorf("postgres: scan agency: %w", err)
		}
		ag.Kind = domain.Kind(kind)
		byID[ag.ID] = &ag
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate agencies: %w", err)
	}

	out := make([]*domain.Agency, 0, len(ids))
	for _, id := range ids {
		ag, ok := byID[id]
		if !ok {
			return nil, domain.ErrNotFound
		}
		out = append(out, ag)
	}
	return out, nil
}

func (r *AgencyRepository) Save(ctx context.Context, a *domain.Agency) error {
	const q = `
INSERT INTO agencies (id, name, kind, requires_counsellor_review, partner_broadcast)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
	name                       = EXCLUDED.name,
	kind                       = EXCLUDED.kind,
	requires_counsellor_review = EXCLUDED.requires_counsellor_review,
	partner_broadcast          = EXCLUDED.partner_broadcast`

	_, err := r.db.Exec(ctx, q, a.ID, a.Name, string(a.Kind), a.RequiresCounsellorReview, a.PartnerBroadcast)
	if err != nil {
		return fmt.Errorf("postgres: upsert agency %s: %w", a.ID, err)
	}
	return nil
}

func (r *AgencyRepository) UserRight(ctx context.Context, userID, agencyID string) (domain.UserRight, error) {
	const q = `
SELECT roles
FROM agency_user_rights
WHERE user_id = $1 AND agency_id = $2`

	var roles []string
	err := r.db.QueryRow(ctx, q, userID, agencyID).Scan(&roles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserRight{}, domain.ErrRightNotFound
		}
		return domain.UserRight{}, fmt.Errorf("postgres: select user right: %w", err)
	}
	right := domain.UserRight{UserID: userID, AgencyID: agencyID}
	for _, role := range roles {
		right.Roles = append(right.Roles, domain.Role(role))
	}
	return right, nil
}

func (r *AgencyRepository) SaveUserRight(ctx context.Context, right domain.UserRight) error {
	roles := make([]string, len(right.Roles))
	for i, role := range right.Roles {
		roles[i] = string(role)
	}
	const q = `
INSERT INTO agency_user_rights (user_id, agency_id, roles)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, agency_id) DO UPDATE SET roles = EXCLUDED.roles`

	_, err := r.db.Exec(ctx, q, right.UserID, right.AgencyID, roles)
	if err != nil {
		return fmt.Errorf("postgres: upsert user right: %w", err)
	}
	return nil
}
