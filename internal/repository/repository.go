// Package repository defines the persistence contracts shared by the memory
// and Postgres stores.
package repository

import (
	"context"
	"time"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/shopspring/decimal"
)

// Tx groups the repositories bound to one transaction. A Store also satisfies
// Tx for reads outside a transaction.
type Tx interface {
	Facilities() FacilityRepo
	Spots() SpotRepo
	Tickets() TicketRepo
}

// Store runs fn as one atomic unit. If fn returns an error nothing it did is
// kept. ErrRetryable means the whole unit may be run again.
type Store interface {
	Tx
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type FacilityRepo interface {
	// Create stores f and fills in its ID and timestamps.
	// Returns ErrConflict if the name is taken.
	Create(ctx context.Context, f *domain.Facility) error
	CreateFloor(ctx context.Context, fl *domain.Floor) error
	ListFloors(ctx context.Context, facilityID int64) ([]domain.Floor, error)
	Get(ctx context.Context, id int64) (*domain.Facility, error)
	// GetForUpdate reads the facility and locks it until the transaction
	// ends. Every mutation of a facility's spots or counters starts here.
	GetForUpdate(ctx context.Context, id int64) (*domain.Facility, error)
	List(ctx context.Context, filter domain.FacilityFilter) ([]domain.Facility, error)
	Update(ctx context.Context, id int64, name, location string) error
	SetActive(ctx context.Context, id int64, active bool) error
	// Reserve decrements the available counter. Returns ErrConflict when it
	// is already zero.
	Reserve(ctx context.Context, id int64) error
	// Release increments the available counter. Returns ErrConflict when it
	// already equals the total.
	Release(ctx context.Context, id int64) error
}

type SpotRepo interface {
	// BatchCreate stores spots that already carry FacilityID and FloorID.
	BatchCreate(ctx context.Context, spots []domain.Spot) error
	// FirstAvailable returns the available spot of one of types with the
	// lowest floor number, then the lowest spot number by byte order.
	// Returns ErrNoSpot when there is none.
	FirstAvailable(ctx context.Context, facilityID int64, types []domain.SpotType) (*domain.Spot, error)
	Get(ctx context.Context, id int64) (*domain.Spot, error)
	// Occupy marks an available spot occupied and decrements its floor.
	// Returns ErrStaleState if the spot is not available.
	Occupy(ctx context.Context, id int64) error
	// Release marks an occupied spot available and increments its floor.
	// Returns ErrStaleState if the spot is not occupied.
	Release(ctx context.Context, id int64) error
	List(ctx context.Context, facilityID int64, onlyAvailable bool) ([]domain.Spot, error)
}

type TicketRepo interface {
	// Create returns ErrDuplicateTicketNumber if the number is taken and
	// ErrConflict if the plate already has an active ticket.
	Create(ctx context.Context, t *domain.Ticket) error
	NumberExists(ctx context.Context, number string) (bool, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	ListByFacility(ctx context.Context, facilityID int64) ([]domain.Ticket, error)
	ListActiveByPlate(ctx context.Context, plate string) ([]domain.Ticket, error)
	// ListOverdue lists active tickets of a facility that entered before
	// the given instant, oldest first.
	ListOverdue(ctx context.Context, facilityID int64, before time.Time) ([]domain.Ticket, error)
	// Complete closes an active ticket as paid. Returns ErrStaleState if it
	// is no longer active.
	Complete(ctx context.Context, id int64, exit time.Time, amount decimal.Decimal) error
	RecordPayment(ctx context.Context, id int64, amount decimal.Decimal) error
	// Cancel closes an active ticket without touching its payment.
	Cancel(ctx context.Context, id int64, exit time.Time) error
}
