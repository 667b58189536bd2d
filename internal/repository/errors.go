package repository

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrRetryable  = errors.New("transaction must be retried")
	ErrNoSpot     = errors.New("no matching spot available")
	ErrStaleState = errors.New("row changed under the transaction")

	// ErrDuplicateTicketNumber is the ErrConflict raised when a ticket
	// number is already taken.
	ErrDuplicateTicketNumber = fmt.Errorf("duplicate ticket number: %w", ErrConflict)
)
