package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/repository"
	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

type ticketRepo struct {
	s *Store
	t *txState
}

func (r *ticketRepo) Create(_ context.Context, t *domain.Ticket) error {
	const op = "memory.TicketRepo.Create"

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ticketByNumber[t.Number]; ok {
		return fmt.Errorf("%s: number %s: %w", op, t.Number, repository.ErrDuplicateTicketNumber)
	}
	if t.Status == domain.TicketActive {
		if _, ok := s.activeByPlate[t.LicensePlate]; ok {
			return fmt.Errorf("%s: plate %s: %w", op, t.LicensePlate, repository.ErrConflict)
		}
	}

	now := s.clock.Now()
	t.ID = s.nextID()
	t.CreatedAt, t.UpdatedAt = now, now

	cp := *t
	s.tickets[t.ID] = &cp
	s.ticketByNumber[t.Number] = t.ID
	if t.Status == domain.TicketActive {
		s.activeByPlate[t.LicensePlate] = t.ID
	}

	id, number, plate, active := t.ID, t.Number, t.LicensePlate, t.Status == domain.TicketActive
	r.t.record(func() {
		delete(s.tickets, id)
		delete(s.ticketByNumber, number)
		if active {
			delete(s.activeByPlate, plate)
		}
	})

	return nil
}

// NumberExists also counts numbers of transactions not yet committed.
func (r *ticketRepo) NumberExists(_ context.Context, number string) (bool, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.ticketByNumber[number]
	return ok, nil
}

func (r *ticketRepo) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	const op = "memory.TicketRepo.GetByNumber"

	s := r.s

	t := s.ticketByNumberCopy(number)
	if t == nil {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	if err := s.committed(ctx, r.t, t.FacilityID, func() { t = s.ticketByNumberCopy(number) }); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return t, nil
}

// ticketByNumberCopy returns the resolved ticket with the given number, or nil.
func (s *Store) ticketByNumberCopy(number string) *domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.ticketByNumber[number]
	if !ok {
		return nil
	}

	return s.resolve(s.tickets[id])
}

func (r *ticketRepo) ListByFacility(ctx context.Context, facilityID int64) ([]domain.Ticket, error) {
	const op = "memory.TicketRepo.ListByFacility"

	out, err := r.listIn(ctx, facilityID, func(t *domain.Ticket) bool { return t.FacilityID == facilityID })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ListActiveByPlate outside a transaction reads each facility the plate
// was ever parked in under that facility's lock.
func (r *ticketRepo) ListActiveByPlate(ctx context.Context, plate string) ([]domain.Ticket, error) {
	const op = "memory.TicketRepo.ListActiveByPlate"

	s := r.s

	active := func(t *domain.Ticket) bool { return t.LicensePlate == plate && t.IsActive() }
	if r.t != nil {
		return s.ticketsWhere(active), nil
	}

	seen := make(map[int64]bool)
	var facilityIDs []int64
	s.mu.RLock()
	for _, t := range s.tickets {
		if t.LicensePlate == plate && !seen[t.FacilityID] {
			seen[t.FacilityID] = true
			facilityIDs = append(facilityIDs, t.FacilityID)
		}
	}
	s.mu.RUnlock()

	var out []domain.Ticket
	for _, id := range facilityIDs {
		got, err := r.listIn(ctx, id, func(t *domain.Ticket) bool { return t.FacilityID == id && active(t) })
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, got...)
	}

	sortTickets(out)

	return out, nil
}

func (r *ticketRepo) ListOverdue(ctx context.Context, facilityID int64, before time.Time) ([]domain.Ticket, error) {
	const op = "memory.TicketRepo.ListOverdue"

	out, err := r.listIn(ctx, facilityID, func(t *domain.Ticket) bool {
		return t.FacilityID == facilityID && t.IsActive() && t.EntryTime.Before(before)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (r *ticketRepo) Complete(_ context.Context, id int64, exit time.Time, amount decimal.Decimal) error {
	const op = "memory.TicketRepo.Complete"

	return r.close(op, id, func(t *domain.Ticket) {
		t.ExitTime = null.TimeFrom(exit)
		t.AmountPaid = decimal.NewNullDecimal(amount)
		t.PaymentStatus = domain.PaymentPaid
		t.Status = domain.TicketCompleted
	})
}

func (r *ticketRepo) Cancel(_ context.Context, id int64, exit time.Time) error {
	const op = "memory.TicketRepo.Cancel"

	return r.close(op, id, func(t *domain.Ticket) {
		t.ExitTime = null.TimeFrom(exit)
		t.Status = domain.TicketCancelled
	})
}

func (r *ticketRepo) RecordPayment(_ context.Context, id int64, amount decimal.Decimal) error {
	const op = "memory.TicketRepo.RecordPayment"

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	prev := *t
	t.AmountPaid = decimal.NewNullDecimal(amount)
	t.PaymentStatus = domain.PaymentPaid
	t.UpdatedAt = s.clock.Now()

	r.t.record(func() { *t = prev })

	return nil
}

// close moves an active ticket to a terminal state and frees its plate.
func (r *ticketRepo) close(op string, id int64, fn func(t *domain.Ticket)) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	if !t.IsActive() {
		return fmt.Errorf("%s: ticket %s is %s: %w", op, t.Number, t.Status, repository.ErrStaleState)
	}

	prev := *t
	fn(t)
	t.UpdatedAt = s.clock.Now()
	delete(s.activeByPlate, t.LicensePlate)

	r.t.record(func() {
		*t = prev
		s.activeByPlate[prev.LicensePlate] = prev.ID
	})

	return nil
}

// listIn runs ticketsWhere under the lock of facilityID.
func (r *ticketRepo) listIn(ctx context.Context, facilityID int64, keep func(t *domain.Ticket) bool) ([]domain.Ticket, error) {
	var out []domain.Ticket
	if err := r.s.committed(ctx, r.t, facilityID, func() { out = r.s.ticketsWhere(keep) }); err != nil {
		return nil, err
	}
	return out, nil
}

// ticketsWhere returns the tickets kept by keep, oldest first.
func (s *Store) ticketsWhere(keep func(t *domain.Ticket) bool) []domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Ticket
	for _, t := range s.tickets {
		if keep(t) {
			out = append(out, *s.resolve(t))
		}
	}

	sortTickets(out)

	return out
}

func sortTickets(out []domain.Ticket) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].EntryTime.Before(out[j].EntryTime)
		}
		return out[i].ID < out[j].ID
	})
}

// resolve copies t and fills in the facility name and spot location.
// Callers hold s.mu.
func (s *Store) resolve(t *domain.Ticket) *domain.Ticket {
	cp := *t
	if f, ok := s.facilities[t.FacilityID]; ok {
		cp.FacilityName = f.Name
	}
	if sp, ok := s.spots[t.SpotID]; ok {
		cp.SpotNumber = sp.Number
		cp.FloorNumber = sp.FloorNumber
	}
	return &cp
}
