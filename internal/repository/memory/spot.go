package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/repository"
)

type spotRepo struct {
	s *Store
	t *txState
}

func (r *spotRepo) BatchCreate(_ context.Context, spots []domain.Spot) error {
	const op = "memory.SpotRepo.BatchCreate"

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := make(map[string]bool)
	for _, sp := range s.spots {
		taken[spotKey(sp.FacilityID, sp.Number)] = true
	}

	for _, sp := range spots {
		if _, ok := s.floors[sp.FloorID]; !ok {
			return fmt.Errorf("%s: floor %d: %w", op, sp.FloorID, repository.ErrNotFound)
		}
		key := spotKey(sp.FacilityID, sp.Number)
		if taken[key] {
			return fmt.Errorf("%s: spot %s: %w", op, sp.Number, repository.ErrConflict)
		}
		taken[key] = true
	}

	ids := make([]int64, 0, len(spots))
	for _, sp := range spots {
		cp := sp
		cp.ID = s.nextID()
		s.spots[cp.ID] = &cp
		ids = append(ids, cp.ID)
	}

	r.t.record(func() {
		for _, id := range ids {
			delete(s.spots, id)
		}
	})

	return nil
}

func (r *spotRepo) FirstAvailable(
	ctx context.Context,
	facilityID int64,
	types []domain.SpotType,
) (*domain.Spot, error) {
	const op = "memory.SpotRepo.FirstAvailable"

	s := r.s

	admissible := make(map[domain.SpotType]bool, len(types))
	for _, t := range types {
		admissible[t] = true
	}

	var best domain.Spot
	found := false
	err := s.committed(ctx, r.t, facilityID, func() {
		s.mu.RLock()
		defer s.mu.RUnlock()

		for _, sp := range s.spots {
			if sp.FacilityID != facilityID || !sp.IsAvailable() || !admissible[sp.Type] {
				continue
			}
			if !found || spotLess(sp, &best) {
				best, found = *sp, true
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !found {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNoSpot)
	}

	return &best, nil
}

func (r *spotRepo) Get(ctx context.Context, id int64) (*domain.Spot, error) {
	const op = "memory.SpotRepo.Get"

	s := r.s

	sp := s.spot(id)
	if sp == nil {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	if err := s.committed(ctx, r.t, sp.FacilityID, func() { sp = s.spot(id) }); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sp == nil {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return sp, nil
}

// spot returns a copy of the stored spot, or nil.
func (s *Store) spot(id int64) *domain.Spot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, ok := s.spots[id]
	if !ok {
		return nil
	}

	cp := *sp
	return &cp
}

func (r *spotRepo) Occupy(_ context.Context, id int64) error {
	const op = "memory.SpotRepo.Occupy"
	return r.transition(op, id, domain.SpotAvailable, domain.SpotOccupied, -1)
}

func (r *spotRepo) Release(_ context.Context, id int64) error {
	const op = "memory.SpotRepo.Release"
	return r.transition(op, id, domain.SpotOccupied, domain.SpotAvailable, +1)
}

func (r *spotRepo) List(ctx context.Context, facilityID int64, onlyAvailable bool) ([]domain.Spot, error) {
	const op = "memory.SpotRepo.List"

	s := r.s

	var out []domain.Spot
	err := s.committed(ctx, r.t, facilityID, func() {
		s.mu.RLock()
		defer s.mu.RUnlock()

		for _, sp := range s.spots {
			if sp.FacilityID != facilityID {
				continue
			}
			if onlyAvailable && !sp.IsAvailable() {
				continue
			}
			out = append(out, *sp)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sort.Slice(out, func(i, j int) bool { return spotLess(&out[i], &out[j]) })

	return out, nil
}

func (r *spotRepo) transition(op string, id int64, from, to domain.SpotStatus, floorDelta int) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.spots[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	if sp.Status != from {
		return fmt.Errorf("%s: spot %s is %s: %w", op, sp.Number, sp.Status, repository.ErrStaleState)
	}

	fl, ok := s.floors[sp.FloorID]
	if !ok {
		return fmt.Errorf("%s: floor %d: %w", op, sp.FloorID, repository.ErrNotFound)
	}

	sp.Status = to
	fl.AvailableSpots += floorDelta

	r.t.record(func() {
		sp.Status = from
		fl.AvailableSpots -= floorDelta
	})

	return nil
}

func spotLess(a, b *domain.Spot) bool {
	if a.FloorNumber != b.FloorNumber {
		return a.FloorNumber < b.FloorNumber
	}
	return a.Number < b.Number
}

func spotKey(facilityID int64, number string) string {
	return fmt.Sprintf("%d/%s", facilityID, number)
}
