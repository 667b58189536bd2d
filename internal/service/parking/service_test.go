package parking

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirinyoku/parkgo/internal/clock"
	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/metrics"
	"github.com/kirinyoku/parkgo/internal/pricing"
	"github.com/kirinyoku/parkgo/internal/provision"
	"github.com/kirinyoku/parkgo/internal/repository"
	"github.com/kirinyoku/parkgo/internal/repository/memory"
	"github.com/kirinyoku/parkgo/internal/service/admin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	start = time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)
	seq   atomic.Int64
)

type recordingNotifier struct {
	mu  sync.Mutex
	ids []int64
}

func (n *recordingNotifier) FacilityChanged(_ context.Context, id int64) {
	n.mu.Lock()
	n.ids = append(n.ids, id)
	n.mu.Unlock()
}

type fakeLimiter struct {
	allow bool
	calls int
}

func (l *fakeLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	l.calls++
	return l.allow, 30 * time.Second, nil
}

type env struct {
	svc   *Service
	admin *admin.Service
	store *memory.Store
	clock *clock.Manual
}

func newEnv(t *testing.T, opts ...Option) env {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	clk := clock.NewManual(start)
	store := memory.New(memory.WithClock(clk))

	return env{
		svc:   New(store, pricing.NewEngine(time.UTC, logger), clk, logger, Config{}, opts...),
		admin: admin.New(store, nil, logger),
		store: store,
		clock: clk,
	}
}

func (e env) facility(t *testing.T, floors, perFloor int) *domain.Facility {
	t.Helper()
	f, err := e.admin.CreateFacility(context.Background(), admin.CreateFacilityInput{
		Name: fmt.Sprintf("Facility %d", seq.Add(1)), Floors: floors, SpotsPerFloor: perFloor,
	})
	require.NoError(t, err)
	return f
}

func (e env) available(t *testing.T, id int64) int {
	t.Helper()
	f, err := e.store.Facilities().Get(context.Background(), id)
	require.NoError(t, err)
	return f.AvailableSpots
}

func scrape(t *testing.T, m *metrics.Recorder) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestParkIssuesTicket(t *testing.T) {
	n := &recordingNotifier{}
	e := newEnv(t, WithNotifier(n))
	f := e.facility(t, 2, 10)
	ctx := context.Background()

	tk, err := e.svc.Park(ctx, ParkInput{LicensePlate: " abc123 ", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	require.NoError(t, err)

	assert.Regexp(t, `^TKT-[0-9A-F]{8}$`, tk.Number)
	assert.Equal(t, "ABC123", tk.LicensePlate)
	assert.Equal(t, domain.TicketActive, tk.Status)
	assert.Equal(t, domain.PaymentPending, tk.PaymentStatus)
	assert.Equal(t, start, tk.EntryTime)
	assert.False(t, tk.ExitTime.Valid)
	assert.False(t, tk.AmountPaid.Valid)

	// Positions 1-2 are motorcycle spots, so a car lands on the first compact.
	assert.Equal(t, "F1-S03", tk.SpotNumber)
	assert.Equal(t, 1, tk.FloorNumber)
	assert.Equal(t, f.Name, tk.FacilityName)

	assert.Equal(t, 19, e.available(t, f.ID))
	assert.Equal(t, []int64{f.ID}, n.ids)

	spot, err := e.store.Spots().Get(ctx, tk.SpotID)
	require.NoError(t, err)
	assert.Equal(t, domain.SpotOccupied, spot.Status)

	parked, err := e.svc.IsVehicleParked(ctx, "ABC123")
	require.NoError(t, err)
	assert.True(t, parked)
}

func TestParkValidation(t *testing.T) {
	e := newEnv(t)
	f := e.facility(t, 1, 5)
	ctx := context.Background()

	_, err := e.svc.Park(ctx, ParkInput{LicensePlate: "  ", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	assert.ErrorIs(t, err, ErrInvalidLicensePlate)

	_, err = e.svc.Park(ctx, ParkInput{LicensePlate: "X1", VehicleType: "BUS", FacilityID: f.ID})
	assert.ErrorIs(t, err, ErrInvalidVehicleType)

	_, err = e.svc.Park(ctx, ParkInput{LicensePlate: "X1", VehicleType: domain.VehicleCar, FacilityID: 999})
	assert.ErrorIs(t, err, ErrFacilityNotFound)
}

func TestParkAlreadyParked(t *testing.T) {
	e := newEnv(t)
	a := e.facility(t, 1, 10)
	b := e.facility(t, 1, 10)
	ctx := context.Background()

	first, err := e.svc.Park(ctx, ParkInput{LicensePlate: "ABC123", VehicleType: domain.VehicleCar, FacilityID: a.ID})
	require.NoError(t, err)

	_, err = e.svc.Park(ctx, ParkInput{LicensePlate: "abc123", VehicleType: domain.VehicleCar, FacilityID: b.ID})
	require.ErrorIs(t, err, ErrAlreadyParked)

	var ap AlreadyParkedError
	require.ErrorAs(t, err, &ap)
	assert.Equal(t, first.Number, ap.TicketNumber)

	assert.Equal(t, 10, e.available(t, b.ID))
}

func TestParkFullFacilityLeavesCountersUnchanged(t *testing.T) {
	e := newEnv(t)
	f := e.facility(t, 1, 5)
	ctx := context.Background()

	// One motorcycle, three compact, one handicapped: a car fits in four.
	for i := range 4 {
		_, err := e.svc.Park(ctx, ParkInput{LicensePlate: fmt.Sprintf("CAR%d", i), VehicleType: domain.VehicleCar, FacilityID: f.ID})
		require.NoError(t, err)
	}

	_, err := e.svc.Park(ctx, ParkInput{LicensePlate: "CAR9", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	assert.ErrorIs(t, err, ErrNoCompatibleSpot)
	assert.Equal(t, 1, e.available(t, f.ID))

	_, err = e.svc.Park(ctx, ParkInput{LicensePlate: "MOTO", VehicleType: domain.VehicleMotorcycle, FacilityID: f.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, e.available(t, f.ID))

	_, err = e.svc.Park(ctx, ParkInput{LicensePlate: "MOTO2", VehicleType: domain.VehicleMotorcycle, FacilityID: f.ID})
	assert.ErrorIs(t, err, ErrFacilityFull)
	assert.Equal(t, 0, e.available(t, f.ID))
}

func TestParkTruckNeedsLargeSpot(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	f, err := e.admin.CreateFacilityWithDistribution(ctx, "Compact only", "", 1,
		provision.Distribution{Motorcycle: 1, Compact: 3})
	require.NoError(t, err)

	_, err = e.svc.Park(ctx, ParkInput{LicensePlate: "TRK", VehicleType: domain.VehicleTruck, FacilityID: f.ID})
	assert.ErrorIs(t, err, ErrNoCompatibleSpot)
	assert.Equal(t, 4, e.available(t, f.ID))

	parked, err := e.svc.IsVehicleParked(ctx, "TRK")
	require.NoError(t, err)
	assert.False(t, parked)
}

func TestParkInactiveFacility(t *testing.T) {
	e := newEnv(t)
	f := e.facility(t, 1, 5)
	ctx := context.Background()

	_, err := e.admin.DeactivateFacility(ctx, f.ID)
	require.NoError(t, err)

	_, err = e.svc.Park(ctx, ParkInput{LicensePlate: "X1", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	assert.ErrorIs(t, err, ErrFacilityInactive)
}

func TestParkConcurrentDistinctPlates(t *testing.T) {
	e := newEnv(t)
	f := e.facility(t, 1, 10)
	ctx := context.Background()

	const n = 20

	var (
		wg      sync.WaitGroup
		ok      atomic.Int32
		spotsMu sync.Mutex
		spots   = map[int64]bool{}
	)

	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk, err := e.svc.Park(ctx, ParkInput{
				LicensePlate: fmt.Sprintf("M%02d", i),
				VehicleType:  domain.VehicleMotorcycle,
				FacilityID:   f.ID,
			})
			if err != nil {
				// The handicapped spot stays free, so the facility never reads full.
				assert.ErrorIs(t, err, ErrNoCompatibleSpot)
				return
			}
			ok.Add(1)
			spotsMu.Lock()
			assert.False(t, spots[tk.SpotID], "spot %d assigned twice", tk.SpotID)
			spots[tk.SpotID] = true
			spotsMu.Unlock()
		}()
	}
	wg.Wait()

	// Motorcycles fit every spot type except handicapped.
	assert.Equal(t, int32(9), ok.Load())
	assert.Equal(t, 1, e.available(t, f.ID))

	all, err := e.store.Spots().List(ctx, f.ID, false)
	require.NoError(t, err)
	occupied := 0
	for _, sp := range all {
		if sp.Status == domain.SpotOccupied {
			occupied++
		}
	}
	assert.Equal(t, 10-occupied, e.available(t, f.ID))
}

func TestParkConcurrentSamePlate(t *testing.T) {
	e := newEnv(t)
	a := e.facility(t, 1, 10)
	b := e.facility(t, 1, 10)
	ctx := context.Background()

	var (
		wg sync.WaitGroup
		ok atomic.Int32
	)
	for _, id := range []int64{a.ID, b.ID, a.ID, b.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.Park(ctx, ParkInput{LicensePlate: "DUP1", VehicleType: domain.VehicleCar, FacilityID: id})
			if err == nil {
				ok.Add(1)
				return
			}
			assert.ErrorIs(t, err, ErrAlreadyParked)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, 19, e.available(t, a.ID)+e.available(t, b.ID))
}

func TestParkRetriesTicketNumberCollision(t *testing.T) {
	numbers := []string{"TKT-00000001", "TKT-00000001", "TKT-00000002"}
	var i int
	gen := func() string {
		n := numbers[i]
		i++
		return n
	}

	e := newEnv(t, WithNumberGenerator(gen))
	f := e.facility(t, 1, 10)
	ctx := context.Background()

	first, err := e.svc.Park(ctx, ParkInput{LicensePlate: "A1", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	require.NoError(t, err)
	assert.Equal(t, "TKT-00000001", first.Number)

	second, err := e.svc.Park(ctx, ParkInput{LicensePlate: "A2", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	require.NoError(t, err)
	assert.Equal(t, "TKT-00000002", second.Number)
}

func TestParkTicketNumberExhausted(t *testing.T) {
	e := newEnv(t, WithNumberGenerator(func() string { return "TKT-SAME0000" }))
	f := e.facility(t, 1, 10)
	ctx := context.Background()

	_, err := e.svc.Park(ctx, ParkInput{LicensePlate: "A1", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	require.NoError(t, err)

	_, err = e.svc.Park(ctx, ParkInput{LicensePlate: "A2", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	assert.ErrorIs(t, err, ErrTicketNumberExhausted)
	assert.Equal(t, 9, e.available(t, f.ID))
}

// staleNumberStore reports every ticket number as free, like a check that
// ran before a concurrent park inserted the same number.
type staleNumberStore struct{ *memory.Store }

func (s staleNumberStore) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.Store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, staleNumberTx{tx})
	})
}

type staleNumberTx struct{ repository.Tx }

func (tx staleNumberTx) Tickets() repository.TicketRepo { return staleNumberTickets{tx.Tx.Tickets()} }

type staleNumberTickets struct{ repository.TicketRepo }

func (staleNumberTickets) NumberExists(context.Context, string) (bool, error) { return false, nil }

func TestParkRetriesNumberTakenAtInsert(t *testing.T) {
	numbers := []string{"TKT-00000001", "TKT-00000001", "TKT-00000002"}
	var i int
	gen := func() string {
		n := numbers[i]
		i++
		return n
	}

	e := newEnv(t)
	f := e.facility(t, 1, 10)
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	svc := New(staleNumberStore{e.store}, pricing.NewEngine(time.UTC, logger), e.clock, logger, Config{},
		WithNumberGenerator(gen))

	_, err := svc.Park(ctx, ParkInput{LicensePlate: "A1", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	require.NoError(t, err)

	second, err := svc.Park(ctx, ParkInput{LicensePlate: "A2", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	require.NoError(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyParked)
	assert.Equal(t, "TKT-00000002", second.Number)
	assert.Equal(t, 8, e.available(t, f.ID))
}

func TestParkNumberTakenAtInsertExhausted(t *testing.T) {
	e := newEnv(t)
	f := e.facility(t, 1, 10)
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	svc := New(staleNumberStore{e.store}, pricing.NewEngine(time.UTC, logger), e.clock, logger, Config{},
		WithNumberGenerator(func() string { return "TKT-SAME0000" }))

	_, err := svc.Park(ctx, ParkInput{LicensePlate: "A1", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	require.NoError(t, err)

	_, err = svc.Park(ctx, ParkInput{LicensePlate: "A2", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	require.ErrorIs(t, err, ErrTicketNumberExhausted)
	assert.NotErrorIs(t, err, ErrAlreadyParked)
	assert.Equal(t, 9, e.available(t, f.ID))

	parked, err := svc.IsVehicleParked(ctx, "A2")
	require.NoError(t, err)
	assert.False(t, parked)
}

func TestParkRateLimited(t *testing.T) {
	l := &fakeLimiter{allow: false}
	m := metrics.New()
	e := newEnv(t, WithLimiter(l), WithMetrics(m))
	f := e.facility(t, 1, 10)
	ctx := context.Background()

	// No client key means no limiting.
	_, err := e.svc.Park(ctx, ParkInput{LicensePlate: "A1", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, l.calls)

	_, err = e.svc.Park(ctx, ParkInput{LicensePlate: "A2", VehicleType: domain.VehicleCar, FacilityID: f.ID, ClientKey: "10.0.0.1"})
	require.ErrorIs(t, err, ErrRateLimited)

	var rl RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 30*time.Second, rl.RetryAfter)
	assert.Equal(t, 9, e.available(t, f.ID))

	assert.Contains(t, scrape(t, m), `parkgo_park_rejections_total{reason="rate_limited"} 1`)
}

func TestExit(t *testing.T) {
	n := &recordingNotifier{}
	m := metrics.New()
	e := newEnv(t, WithNotifier(n), WithMetrics(m))
	f := e.facility(t, 1, 10)
	ctx := context.Background()

	tk, err := e.svc.Park(ctx, ParkInput{LicensePlate: "ABC123", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	require.NoError(t, err)

	e.clock.Advance(2 * time.Hour)

	closed, err := e.svc.Exit(ctx, tk.Number)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketCompleted, closed.Status)
	assert.Equal(t, domain.PaymentPaid, closed.PaymentStatus)
	assert.Equal(t, start.Add(2*time.Hour), closed.ExitTime.Time)
	assert.Equal(t, "10.00", closed.AmountPaid.Decimal.StringFixed(2))

	assert.Equal(t, 10, e.available(t, f.ID))
	spot, err := e.store.Spots().Get(ctx, tk.SpotID)
	require.NoError(t, err)
	assert.Equal(t, domain.SpotAvailable, spot.Status)

	parked, err := e.svc.IsVehicleParked(ctx, "ABC123")
	require.NoError(t, err)
	assert.False(t, parked)

	assert.Equal(t, []int64{f.ID, f.ID}, n.ids)
	body := scrape(t, m)
	assert.Contains(t, body, `parkgo_vehicles_exited_total{strategy="HOURLY",vehicle_type="CAR"} 1`)
	assert.Contains(t, body, "parkgo_revenue_total 10")

	_, err = e.svc.Exit(ctx, tk.Number)
	assert.ErrorIs(t, err, ErrTicketNotActive)
	assert.Equal(t, 10, e.available(t, f.ID))

	_, err = e.svc.Exit(ctx, "TKT-NOPE")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestExitLongStayUsesDaily(t *testing.T) {
	e := newEnv(t)
	f := e.facility(t, 1, 10)
	ctx := context.Background()

	tk, err := e.svc.Park(ctx, ParkInput{LicensePlate: "LONG", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	require.NoError(t, err)

	e.clock.Advance(26 * time.Hour)

	closed, err := e.svc.Exit(ctx, tk.Number)
	require.NoError(t, err)
	assert.Equal(t, "35.00", closed.AmountPaid.Decimal.StringFixed(2))
}

func TestCancel(t *testing.T) {
	e := newEnv(t)
	f := e.facility(t, 1, 10)
	ctx := context.Background()

	tk, err := e.svc.Park(ctx, ParkInput{LicensePlate: "ABC123", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	require.NoError(t, err)

	e.clock.Advance(time.Hour)

	got, err := e.svc.Cancel(ctx, tk.Number)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketCancelled, got.Status)
	assert.Equal(t, domain.PaymentPending, got.PaymentStatus)
	assert.True(t, got.ExitTime.Valid)
	assert.False(t, got.AmountPaid.Valid)
	assert.Equal(t, 10, e.available(t, f.ID))

	_, err = e.svc.Cancel(ctx, tk.Number)
	assert.ErrorIs(t, err, ErrTicketNotActive)

	// The plate may park again once its ticket is closed.
	_, err = e.svc.Park(ctx, ParkInput{LicensePlate: "ABC123", VehicleType: domain.VehicleCar, FacilityID: f.ID})
	assert.NoError(t, err)
}

func TestAvailabilityMatchesOccupiedSpots(t *testing.T) {
	e := newEnv(t)
	f := e.facility(t, 2, 10)
	ctx := context.Background()

	var tickets []*domain.Ticket
	for i := range 6 {
		tk, err := e.svc.Park(ctx, ParkInput{LicensePlate: fmt.Sprintf("P%d", i), VehicleType: domain.VehicleCar, FacilityID: f.ID})
		require.NoError(t, err)
		tickets = append(tickets, tk)
	}

	_, err := e.svc.Exit(ctx, tickets[0].Number)
	require.NoError(t, err)
	_, err = e.svc.Cancel(ctx, tickets[1].Number)
	require.NoError(t, err)

	free, err := e.store.Spots().List(ctx, f.ID, true)
	require.NoError(t, err)

	got, err := e.store.Facilities().Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, len(free), got.AvailableSpots)
	assert.Equal(t, 4, got.OccupiedSpots())

	floors, err := e.store.Facilities().ListFloors(ctx, f.ID)
	require.NoError(t, err)
	sum := 0
	for _, fl := range floors {
		sum += fl.AvailableSpots
	}
	assert.Equal(t, got.AvailableSpots, sum)
}

func TestFindSpot(t *testing.T) {
	e := newEnv(t)
	f := e.facility(t, 1, 10)
	ctx := context.Background()

	spot, err := e.svc.FindSpot(ctx, f.ID, domain.VehicleTruck)
	require.NoError(t, err)
	assert.Equal(t, domain.SpotLarge, spot.Type)
	assert.Equal(t, "F1-S09", spot.Number)

	// A preview claims nothing.
	assert.Equal(t, 10, e.available(t, f.ID))

	_, err = e.svc.FindSpot(ctx, f.ID, "BUS")
	assert.ErrorIs(t, err, ErrInvalidVehicleType)

	_, err = e.svc.FindSpot(ctx, 999, domain.VehicleCar)
	assert.ErrorIs(t, err, ErrFacilityNotFound)
}

func TestNewTicketNumber(t *testing.T) {
	seen := map[string]bool{}
	for range 100 {
		n := NewTicketNumber()
		assert.Regexp(t, `^TKT-[0-9A-F]{8}$`, n)
		seen[n] = true
	}
	assert.Greater(t, len(seen), 95)
}
