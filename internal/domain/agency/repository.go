package agency

import "context"

type Repository interface {
	GetByID(ctx context.Context, id string) (*Agency, error)
	GetByIDs(ctx context.Context, ids []string) ([]*Agency, error)
	Save(ctx context.Context, a *Agency) error

	// UserRight returns ErrRightNotFound when the user has no link to the
	// agency, which callers must keep distinct from ErrNotFound on the
	// agency itself.
	UserRight(ctx context.Context, userID, agencyID string) (UserRight, error)
	SaveUserRight(ctx context.Context, right UserRight) error
}
