package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/repository"
)

type facilityRepo struct {
	s *Store
	t *txState
}

func (r *facilityRepo) Create(ctx context.Context, f *domain.Facility) error {
	const op = "memory.FacilityRepo.Create"

	s := r.s
	s.mu.Lock()

	if _, ok := s.facilityByName[f.Name]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%s: name %q: %w", op, f.Name, repository.ErrConflict)
	}

	now := s.clock.Now()
	f.ID = s.nextID()
	f.CreatedAt, f.UpdatedAt = now, now

	cp := *f
	s.facilities[f.ID] = &cp
	s.facilityByName[f.Name] = f.ID

	id, name := f.ID, f.Name
	r.t.record(func() {
		delete(s.facilities, id)
		delete(s.facilityByName, name)
	})

	s.mu.Unlock()

	// Hide the facility from outside readers until its floors and spots
	// are committed with it.
	if r.t != nil {
		if err := r.t.lock(ctx, s, id); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

func (r *facilityRepo) CreateFloor(_ context.Context, fl *domain.Floor) error {
	const op = "memory.FacilityRepo.CreateFloor"

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.facilities[fl.FacilityID]; !ok {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	for _, existing := range s.floors {
		if existing.FacilityID == fl.FacilityID && existing.Number == fl.Number {
			return fmt.Errorf("%s: floor %d: %w", op, fl.Number, repository.ErrConflict)
		}
	}

	fl.ID = s.nextID()
	cp := *fl
	s.floors[fl.ID] = &cp

	id := fl.ID
	r.t.record(func() { delete(s.floors, id) })

	return nil
}

func (r *facilityRepo) ListFloors(ctx context.Context, facilityID int64) ([]domain.Floor, error) {
	const op = "memory.FacilityRepo.ListFloors"

	s := r.s

	var out []domain.Floor
	err := s.committed(ctx, r.t, facilityID, func() {
		s.mu.RLock()
		defer s.mu.RUnlock()

		for _, fl := range s.floors {
			if fl.FacilityID == facilityID {
				out = append(out, *fl)
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })

	return out, nil
}

func (r *facilityRepo) Get(ctx context.Context, id int64) (*domain.Facility, error) {
	const op = "memory.FacilityRepo.Get"

	var f *domain.Facility
	if err := r.s.committed(ctx, r.t, id, func() { f = r.s.facility(id) }); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if f == nil {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return f, nil
}

// facility returns a copy of the stored facility, or nil.
func (s *Store) facility(id int64) *domain.Facility {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.facilities[id]
	if !ok {
		return nil
	}

	cp := *f
	return &cp
}

func (r *facilityRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Facility, error) {
	const op = "memory.FacilityRepo.GetForUpdate"

	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}

	if r.t != nil {
		if err := r.t.lock(ctx, r.s, id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	// Re-read under the lock.
	return r.Get(ctx, id)
}

func (r *facilityRepo) List(ctx context.Context, filter domain.FacilityFilter) ([]domain.Facility, error) {
	const op = "memory.FacilityRepo.List"

	s := r.s

	s.mu.RLock()
	ids := make([]int64, 0, len(s.facilities))
	for id := range s.facilities {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	location := strings.ToLower(strings.TrimSpace(filter.Location))

	var out []domain.Facility
	for _, id := range ids {
		var f *domain.Facility
		if err := s.committed(ctx, r.t, id, func() { f = s.facility(id) }); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		// Gone when its creating transaction rolled back.
		if f == nil {
			continue
		}
		if filter.ActiveOnly && !f.Active {
			continue
		}
		if filter.WithAvailability && !f.HasAvailableSpots() {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(f.Location), location) {
			continue
		}
		if filter.MinAvailable > 0 && f.AvailableSpots < filter.MinAvailable {
			continue
		}
		out = append(out, *f)
	}

	return out, nil
}

func (r *facilityRepo) Update(_ context.Context, id int64, name, location string) error {
	const op = "memory.FacilityRepo.Update"

	return r.mutate(op, id, func(f *domain.Facility) error {
		s := r.s
		if owner, ok := s.facilityByName[name]; ok && owner != id {
			return repository.ErrConflict
		}

		oldName := f.Name
		delete(s.facilityByName, oldName)
		s.facilityByName[name] = id
		r.t.record(func() {
			delete(s.facilityByName, name)
			s.facilityByName[oldName] = id
		})

		f.Name = name
		f.Location = location
		return nil
	})
}

func (r *facilityRepo) SetActive(_ context.Context, id int64, active bool) error {
	const op = "memory.FacilityRepo.SetActive"

	return r.mutate(op, id, func(f *domain.Facility) error {
		f.Active = active
		return nil
	})
}

func (r *facilityRepo) Reserve(_ context.Context, id int64) error {
	const op = "memory.FacilityRepo.Reserve"

	return r.mutate(op, id, func(f *domain.Facility) error {
		if f.AvailableSpots <= 0 {
			return repository.ErrConflict
		}
		f.AvailableSpots--
		return nil
	})
}

func (r *facilityRepo) Release(_ context.Context, id int64) error {
	const op = "memory.FacilityRepo.Release"

	return r.mutate(op, id, func(f *domain.Facility) error {
		if f.AvailableSpots >= f.TotalSpots {
			return repository.ErrConflict
		}
		f.AvailableSpots++
		return nil
	})
}

// mutate applies fn to the stored facility and journals the previous value.
func (r *facilityRepo) mutate(op string, id int64, fn func(f *domain.Facility) error) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.facilities[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	prev := *f
	if err := fn(f); err != nil {
		*f = prev
		return fmt.Errorf("%s: %w", op, err)
	}
	f.UpdatedAt = s.clock.Now()

	r.t.record(func() { *f = prev })

	return nil
}
