package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/provision"
	"github.com/kirinyoku/parkgo/internal/repository"
	"github.com/kirinyoku/parkgo/internal/uow"
)

// Notifier is told about every committed change to a facility.
type Notifier interface {
	FacilityChanged(ctx context.Context, facilityID int64)
}

type Service struct {
	store    repository.Store
	uow      *uow.UoW
	notifier Notifier
	logger   *slog.Logger
}

// New returns the facility administration service. notifier may be nil.
func New(store repository.Store, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		uow:      uow.NewUoW(store),
		notifier: notifier,
		logger:   logger,
	}
}

type CreateFacilityInput struct {
	Name          string
	Location      string
	Floors        int
	SpotsPerFloor int
}

// CreateFacility provisions a facility whose spot types follow the position
// ratio rule.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: name, location, floor count and spots per floor.
//
// Returns:
//   - *domain.Facility: the facility with every spot available.
//   - error: admin.ErrDuplicateName if the name is taken.
//   - error: admin.ErrInvalidLayout if floors or spots per floor is not positive.
func (s *Service) CreateFacility(ctx context.Context, in CreateFacilityInput) (*domain.Facility, error) {
	const op = "service.admin.CreateFacility"

	plans, err := provision.Layout(in.Floors, in.SpotsPerFloor)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	f, err := s.provision(ctx, in.Name, in.Location, in.SpotsPerFloor, plans)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return f, nil
}

// CreateFacilityWithDistribution provisions a facility whose floors all carry
// the given number of spots of each type.
func (s *Service) CreateFacilityWithDistribution(
	ctx context.Context,
	name, location string,
	floors int,
	d provision.Distribution,
) (*domain.Facility, error) {
	const op = "service.admin.CreateFacilityWithDistribution"

	plans, err := provision.LayoutWithDistribution(floors, d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	f, err := s.provision(ctx, name, location, d.Total(), plans)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return f, nil
}

func (s *Service) provision(
	ctx context.Context,
	name, location string,
	perFloor int,
	plans []provision.FloorPlan,
) (*domain.Facility, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	total := perFloor * len(plans)
	f := &domain.Facility{
		Name:           name,
		Location:       strings.TrimSpace(location),
		TotalFloors:    len(plans),
		SpotsPerFloor:  perFloor,
		TotalSpots:     total,
		AvailableSpots: total,
		Active:         true,
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		if err := tx.Facilities().Create(ctx, f); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrDuplicateName
			}
			return err
		}

		for _, p := range plans {
			fl := &domain.Floor{
				FacilityID:     f.ID,
				Number:         p.Number,
				TotalSpots:     len(p.Spots),
				AvailableSpots: len(p.Spots),
			}
			if err := tx.Facilities().CreateFloor(ctx, fl); err != nil {
				return err
			}

			spots := make([]domain.Spot, len(p.Spots))
			for i, sp := range p.Spots {
				sp.FacilityID = f.ID
				sp.FloorID = fl.ID
				spots[i] = sp
			}
			if err := tx.Spots().BatchCreate(ctx, spots); err != nil {
				return err
			}
		}

		after(func(ctx context.Context) { s.notify(ctx, f.ID) })

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("facility created",
		"facility_id", f.ID,
		"name", f.Name,
		"floors", f.TotalFloors,
		"spots", f.TotalSpots,
	)

	return f, nil
}

// UpdateFacility renames or relocates a facility.
//
// Returns:
//   - error: admin.ErrFacilityNotFound if there is no such facility.
//   - error: admin.ErrDuplicateName if another facility has the name.
func (s *Service) UpdateFacility(ctx context.Context, id int64, name, location string) (*domain.Facility, error) {
	const op = "service.admin.UpdateFacility"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidName)
	}

	var out *domain.Facility

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		if _, err := tx.Facilities().GetForUpdate(ctx, id); err != nil {
			return translate(err)
		}

		if err := tx.Facilities().Update(ctx, id, name, strings.TrimSpace(location)); err != nil {
			return translate(err)
		}

		f, err := tx.Facilities().Get(ctx, id)
		if err != nil {
			return translate(err)
		}
		out = f

		after(func(ctx context.Context) { s.notify(ctx, id) })

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// DeactivateFacility stops a facility from admitting vehicles. It is refused
// while any spot is occupied. Deactivating an inactive facility is a no-op.
//
// Returns:
//   - error: admin.ErrFacilityNotFound if there is no such facility.
//   - error: admin.ErrFacilityOccupied if vehicles are still parked.
func (s *Service) DeactivateFacility(ctx context.Context, id int64) (*domain.Facility, error) {
	const op = "service.admin.DeactivateFacility"

	var out *domain.Facility

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		f, err := tx.Facilities().GetForUpdate(ctx, id)
		if err != nil {
			return translate(err)
		}

		if f.AvailableSpots != f.TotalSpots {
			return fmt.Errorf("%d of %d spots occupied: %w", f.OccupiedSpots(), f.TotalSpots, ErrFacilityOccupied)
		}

		if f.Active {
			if err := tx.Facilities().SetActive(ctx, id, false); err != nil {
				return translate(err)
			}
			f.Active = false
			after(func(ctx context.Context) { s.notify(ctx, id) })
		}

		out = f
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("facility deactivated", "facility_id", id)

	return out, nil
}

func (s *Service) notify(ctx context.Context, facilityID int64) {
	if s.notifier != nil {
		s.notifier.FacilityChanged(ctx, facilityID)
	}
}

func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrFacilityNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrDuplicateName
	}
	return err
}
