// Package allocator picks and claims parking spots.
package allocator

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/repository"
)

var (
	ErrFacilityNotFound = errors.New("facility not found")
	ErrFacilityInactive = errors.New("facility is not active")
	ErrFacilityFull     = errors.New("facility is full")
	ErrNoCompatibleSpot = errors.New("no compatible spot available")
)

type Allocator struct{}

func New() *Allocator {
	return &Allocator{}
}

// Claim locks the facility, picks the first admissible available spot and
// marks it occupied, decrementing the floor and facility counters. It must run
// inside a transaction so the lock is held until the caller commits.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - tx: the transaction the claim belongs to.
//   - facilityID: facility to park in.
//   - v: type of the arriving vehicle.
//
// Returns:
//   - *domain.Facility: the facility with its counters after the claim.
//   - *domain.Spot: the claimed spot.
//   - error: ErrFacilityNotFound, ErrFacilityInactive, ErrFacilityFull or
//     ErrNoCompatibleSpot.
func (a *Allocator) Claim(
	ctx context.Context,
	tx repository.Tx,
	facilityID int64,
	v domain.VehicleType,
) (*domain.Facility, *domain.Spot, error) {
	const op = "allocator.Allocator.Claim"

	f, err := tx.Facilities().GetForUpdate(ctx, facilityID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	if !f.Active {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrFacilityInactive)
	}

	if !f.HasAvailableSpots() {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrFacilityFull)
	}

	sp, err := tx.Spots().FirstAvailable(ctx, f.ID, domain.AdmissibleSpotTypes(v))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	if err := tx.Spots().Occupy(ctx, sp.ID); err != nil {
		return nil, nil, fmt.Errorf("%s: occupy: %w", op, err)
	}

	if err := tx.Facilities().Reserve(ctx, f.ID); err != nil {
		return nil, nil, fmt.Errorf("%s: reserve: %w", op, err)
	}

	sp.Status = domain.SpotOccupied
	f.AvailableSpots--

	return f, sp, nil
}

// Release frees a spot and increments the floor and facility counters. The
// caller must already hold the facility lock in tx.
func (a *Allocator) Release(ctx context.Context, tx repository.Tx, facilityID, spotID int64) error {
	const op = "allocator.Allocator.Release"

	if err := tx.Spots().Release(ctx, spotID); err != nil {
		return fmt.Errorf("%s: spot: %w", op, err)
	}

	if err := tx.Facilities().Release(ctx, facilityID); err != nil {
		return fmt.Errorf("%s: facility: %w", op, err)
	}

	return nil
}

// Preview returns the spot Claim would pick right now without claiming it.
func (a *Allocator) Preview(
	ctx context.Context,
	tx repository.Tx,
	facilityID int64,
	v domain.VehicleType,
) (*domain.Spot, error) {
	const op = "allocator.Allocator.Preview"

	f, err := tx.Facilities().Get(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	if !f.HasAvailableSpots() {
		return nil, fmt.Errorf("%s: %w", op, ErrFacilityFull)
	}

	sp, err := tx.Spots().FirstAvailable(ctx, f.ID, domain.AdmissibleSpotTypes(v))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	return sp, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrFacilityNotFound
	case errors.Is(err, repository.ErrNoSpot):
		return ErrNoCompatibleSpot
	}
	return err
}
