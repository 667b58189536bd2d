package uow

import (
	"context"
	"errors"

	"github.com/kirinyoku/parkgo/internal/repository"
)

const defaultAttempts = 3

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// UoW represents a unit of work.
type UoW struct {
	store    repository.Store
	attempts int
}

func NewUoW(store repository.Store) *UoW {
	return &UoW{store: store, attempts: defaultAttempts}
}

// WithAttempts returns a copy of u that runs a retryable transaction at most
// n times.
func (u *UoW) WithAttempts(n int) *UoW {
	cp := *u
	if n < 1 {
		n = 1
	}
	cp.attempts = n
	return &cp
}

// Do runs fn inside the transaction. After a successful commit,
// it executes all after-commit hooks.
//
// A transaction failing with repository.ErrRetryable is run again, hooks of
// failed attempts are discarded.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error,
) error {
	var (
		hooks []AfterCommit
		err   error
	)

	for attempt := 0; attempt < u.attempts; attempt++ {
		hooks = hooks[:0]

		err = u.store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err == nil || !errors.Is(err, repository.ErrRetryable) {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
