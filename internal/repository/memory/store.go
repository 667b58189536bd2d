// Package memory is an in-process repository.Store. Transactions lock the
// facilities they touch through GetForUpdate and undo their writes on error.
//
// Reads made outside a transaction wait for the lock of the facility they
// read, so they only observe committed state. Reads inside a transaction see
// its own writes, and also the pending writes of other transactions on
// facilities it has not locked.
package memory

import (
	"context"
	"sync"

	"github.com/kirinyoku/parkgo/internal/clock"
	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/repository"
)

type Option func(*Store)

// WithClock sets the clock used for created/updated timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

type Store struct {
	mu    sync.RWMutex
	seq   int64
	clock clock.Clock

	facilities     map[int64]*domain.Facility
	floors         map[int64]*domain.Floor
	spots          map[int64]*domain.Spot
	tickets        map[int64]*domain.Ticket
	facilityByName map[string]int64
	ticketByNumber map[string]int64
	activeByPlate  map[string]int64

	locksMu sync.Mutex
	locks   map[int64]chan struct{}
}

var _ repository.Store = (*Store)(nil)

func New(opts ...Option) *Store {
	s := &Store{
		clock:          clock.Real{},
		facilities:     make(map[int64]*domain.Facility),
		floors:         make(map[int64]*domain.Floor),
		spots:          make(map[int64]*domain.Spot),
		tickets:        make(map[int64]*domain.Ticket),
		facilityByName: make(map[string]int64),
		ticketByNumber: make(map[string]int64),
		activeByPlate:  make(map[string]int64),
		locks:          make(map[int64]chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) Facilities() repository.FacilityRepo { return &facilityRepo{s: s} }
func (s *Store) Spots() repository.SpotRepo           { return &spotRepo{s: s} }
func (s *Store) Tickets() repository.TicketRepo       { return &ticketRepo{s: s} }

// RunTx runs fn with a transaction-scoped view of the store. Facility locks
// taken by fn are held until fn returns. If fn fails its writes are undone
// in reverse order before the locks are released.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	t := &txState{held: make(map[int64]chan struct{})}

	defer t.unlock()

	if err := fn(ctx, &txView{s: s, t: t}); err != nil {
		s.mu.Lock()
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		s.mu.Unlock()
		return err
	}

	return nil
}

// committed runs read while holding the lock of facilityID, unless the caller
// is inside a transaction or the facility does not exist. read takes s.mu
// itself.
func (s *Store) committed(ctx context.Context, t *txState, facilityID int64, read func()) error {
	s.mu.RLock()
	_, ok := s.facilities[facilityID]
	s.mu.RUnlock()

	if t != nil || !ok {
		read()
		return nil
	}

	l := s.lockFor(facilityID)
	select {
	case l <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l }()

	read()

	return nil
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) lockFor(facilityID int64) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[facilityID]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[facilityID] = l
	}
	return l
}

type txState struct {
	held map[int64]chan struct{}
	undo []func()
}

// lock acquires the facility lock once per transaction.
func (t *txState) lock(ctx context.Context, s *Store, facilityID int64) error {
	if _, ok := t.held[facilityID]; ok {
		return nil
	}

	l := s.lockFor(facilityID)
	select {
	case l <- struct{}{}:
		t.held[facilityID] = l
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *txState) unlock() {
	for id, l := range t.held {
		<-l
		delete(t.held, id)
	}
}

// record registers an undo step. Callers hold s.mu. Outside a transaction
// writes are final.
func (t *txState) record(fn func()) {
	if t != nil {
		t.undo = append(t.undo, fn)
	}
}

type txView struct {
	s *Store
	t *txState
}

func (v *txView) Facilities() repository.FacilityRepo { return &facilityRepo{s: v.s, t: v.t} }
func (v *txView) Spots() repository.SpotRepo           { return &spotRepo{s: v.s, t: v.t} }
func (v *txView) Tickets() repository.TicketRepo       { return &ticketRepo{s: v.s, t: v.t} }
