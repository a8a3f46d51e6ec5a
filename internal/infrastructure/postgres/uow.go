package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stagelink/immersion/internal/domain/uow"
	"github.com/stagelink/immersion/internal/observability"
)

const defaultTxMaxTries = 3

// UnitOfWork runs each use-case callback inside one database transaction.
// Serialization failures and deadlocks are retried with exponential backoff;
// every other error rolls back and propagates unchanged, so domain errors
// cross the boundary intact.
type UnitOfWork struct {
	pool     *pgxpool.Pool
	log      observability.Logger
	maxTries uint
}

func NewUnitOfWork(pool *pgxpool.Pool, tel observability.Observability) *UnitOfWork {
	if tel == nil {
		tel = observability.Nop()
	}
	return &UnitOfWork{
		pool:     pool,
		log:      tel.Logger().With(observability.F("component", "postgres_uow")),
		maxTries: defaultTxMaxTries,
	}
}

func (u *UnitOfWork) Perform(ctx context.Context, fn func(ctx context.Context, p uow.Ports) error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := u.attempt(ctx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if retryable(err) {
			u.log.Warn("txn_retry",
				observability.F("attempt", attempt),
				observability.F("error", err.Error()),
			)
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(u.maxTries),
	)
	return err
}

func (u *UnitOfWork) attempt(ctx context.Context, fn func(ctx context.Context, p uow.Ports) error) (err error) {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			u.log.Error("txn_rollback_failed", observability.F("error", rbErr.Error()))
		}
	}()

	ports := uow.Ports{
		Conventions:    &ConventionRepository{db: tx},
		Agencies:       &AgencyRepository{db: tx},
		Establishments: &EstablishmentRepository{db: tx},
		Outbox:         &OutboxRepository{db: tx},
	}
	if err = fn(ctx, ports); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}
