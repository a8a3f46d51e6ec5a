package convention

import "context"

// Repository persists conventions. Inside a unit of work GetByID takes the
// row lock, so concurrent transitions on the same convention serialize and
// re-read fresh state before deciding.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Convention, error)
	Save(ctx context.Context, c *Convention) error
}
