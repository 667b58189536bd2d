package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/parkgo/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool   *pgxpool.Pool
	txOpts pgx.TxOptions
}

var _ repository.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		txOpts: pgx.TxOptions{
			IsoLevel:   pgx.Serializable,
			AccessMode: pgx.ReadWrite,
		},
	}
}

// RunTx runs fn in a serializable transaction. Serialization failures come
// back wrapped in repository.ErrRetryable.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	const op = "postgresrepo.Store.RunTx"

	tx, err := s.pool.BeginTx(ctx, s.txOpts)
	if err != nil {
		return wrapDBErr(op, err)
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, &txView{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, translateDBErr(err))
	}

	return nil
}

func (s *Store) Facilities() repository.FacilityRepo { return &FacilityRepo{pool: s.pool} }
func (s *Store) Spots() repository.SpotRepo           { return &SpotRepo{pool: s.pool} }
func (s *Store) Tickets() repository.TicketRepo       { return &TicketRepo{pool: s.pool} }

type txView struct {
	db DB
}

func (v *txView) Facilities() repository.FacilityRepo { return (&FacilityRepo{}).With(v.db) }
func (v *txView) Spots() repository.SpotRepo           { return (&SpotRepo{}).With(v.db) }
func (v *txView) Tickets() repository.TicketRepo       { return (&TicketRepo{}).With(v.db) }
