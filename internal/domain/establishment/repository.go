package establishment

import "context"

type Repository interface {
	GetBySiret(ctx context.Context, siret string) (*Establishment, error)
	// Save fails with ErrAlreadyExists on a duplicate SIRET.
	Save(ctx context.Context, e *Establishment) error
}
