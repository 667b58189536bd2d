package repository

import (
	"context"
	"fmt"

	"github.com/kirinyoku/parkgo/internal/domain"
)

// LockTicket locks the facility owning the ticket and returns the ticket as
// seen under that lock. Any change to a ticket's state goes through here so
// it is serialized with park and exit on the same facility.
func LockTicket(ctx context.Context, tx Tx, number string) (*domain.Ticket, error) {
	const op = "repository.LockTicket"

	t, err := tx.Tickets().GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tx.Facilities().GetForUpdate(ctx, t.FacilityID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	t, err = tx.Tickets().GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}
