package query

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/kirinyoku/parkgo/internal/clock"
	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/pricing"
	"github.com/kirinyoku/parkgo/internal/repository/memory"
	redisrepo "github.com/kirinyoku/parkgo/internal/repository/redis"
	"github.com/kirinyoku/parkgo/internal/service/admin"
	"github.com/kirinyoku/parkgo/internal/service/parking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)

type env struct {
	q       *Service
	admin   *admin.Service
	parking *parking.Service
	store   *memory.Store
	clock   *clock.Manual
}

func newEnv(t *testing.T) env {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	clk := clock.NewManual(start)
	store := memory.New(memory.WithClock(clk))

	return env{
		q:       New(store, nil, clk, Config{}),
		admin:   admin.New(store, nil, logger),
		parking: parking.New(store, pricing.NewEngine(time.UTC, logger), clk, logger, parking.Config{}),
		store:   store,
		clock:   clk,
	}
}

func (e env) facility(t *testing.T, name, location string, floors, perFloor int) *domain.Facility {
	t.Helper()
	f, err := e.admin.CreateFacility(context.Background(), admin.CreateFacilityInput{
		Name: name, Location: location, Floors: floors, SpotsPerFloor: perFloor,
	})
	require.NoError(t, err)
	return f
}

func (e env) park(t *testing.T, plate string, facilityID int64) *domain.Ticket {
	t.Helper()
	tk, err := e.parking.Park(context.Background(), parking.ParkInput{
		LicensePlate: plate, VehicleType: domain.VehicleCar, FacilityID: facilityID,
	})
	require.NoError(t, err)
	return tk
}

func TestGetFacility(t *testing.T) {
	e := newEnv(t)
	f := e.facility(t, "Central", "Main St", 1, 10)
	ctx := context.Background()

	e.park(t, "A1", f.ID)

	got, err := e.q.GetFacility(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Central", got.Name)
	assert.Equal(t, 9, got.AvailableSpots)
	assert.InDelta(t, 10.0, got.OccupancyPercentage(), 0.001)

	_, err = e.q.GetFacility(ctx, 999)
	assert.ErrorIs(t, err, ErrFacilityNotFound)
}

func TestListFacilitiesWithAvailability(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	open := e.facility(t, "Open", "North", 1, 10)
	full := e.facility(t, "Full", "North", 1, 1)
	closed := e.facility(t, "Closed", "South", 1, 10)

	_, err := e.admin.DeactivateFacility(ctx, closed.ID)
	require.NoError(t, err)

	// The single spot of a 1-spot floor is handicapped.
	e.park(t, "H1", full.ID)

	got, err := e.q.ListFacilitiesWithAvailability(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, open.ID, got[0].ID)

	all, err := e.q.ListFacilities(ctx, domain.FacilityFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	north, err := e.q.ListFacilities(ctx, domain.FacilityFilter{Location: "nor"})
	require.NoError(t, err)
	assert.Len(t, north, 2)

	roomy, err := e.q.ListFacilities(ctx, domain.FacilityFilter{MinAvailable: 5, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, roomy, 1)
	assert.Equal(t, open.ID, roomy[0].ID)
}

func TestListSpots(t *testing.T) {
	e := newEnv(t)
	f := e.facility(t, "Central", "", 2, 5)
	ctx := context.Background()

	tk := e.park(t, "A1", f.ID)

	all, err := e.q.ListSpots(ctx, f.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 10)
	assert.Equal(t, "F1-S01", all[0].Number)
	assert.Equal(t, "F2-S05", all[9].Number)

	free, err := e.q.ListSpots(ctx, f.ID, true)
	require.NoError(t, err)
	assert.Len(t, free, 9)
	for _, sp := range free {
		assert.NotEqual(t, tk.SpotID, sp.ID)
	}

	_, err = e.q.ListSpots(ctx, 999, false)
	assert.ErrorIs(t, err, ErrFacilityNotFound)
}

func TestTickets(t *testing.T) {
	e := newEnv(t)
	a := e.facility(t, "A", "", 1, 10)
	b := e.facility(t, "B", "", 1, 10)
	ctx := context.Background()

	first := e.park(t, "A1", a.ID)
	e.clock.Advance(time.Minute)
	second := e.park(t, "A2", a.ID)
	e.park(t, "B1", b.ID)

	got, err := e.q.GetTicket(ctx, first.Number)
	require.NoError(t, err)
	assert.Equal(t, "A1", got.LicensePlate)
	assert.Equal(t, "A", got.FacilityName)

	_, err = e.q.GetTicket(ctx, "TKT-NOPE")
	assert.ErrorIs(t, err, ErrTicketNotFound)

	list, err := e.q.ListTickets(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.Number, list[0].Number)
	assert.Equal(t, second.Number, list[1].Number)

	_, err = e.q.ListTickets(ctx, 999)
	assert.ErrorIs(t, err, ErrFacilityNotFound)

	active, err := e.q.ListActiveTickets(ctx, "A2")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.Number, active[0].Number)

	_, err = e.parking.Exit(ctx, second.Number)
	require.NoError(t, err)

	active, err = e.q.ListActiveTickets(ctx, "A2")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestListActiveTicketsNormalizesPlate(t *testing.T) {
	e := newEnv(t)
	f := e.facility(t, "Central", "", 1, 10)
	ctx := context.Background()

	tk := e.park(t, "ab 12", f.ID)

	active, err := e.q.ListActiveTickets(ctx, "  ab 12 ")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, tk.Number, active[0].Number)
	assert.Equal(t, "AB 12", active[0].LicensePlate)
}

func TestListOverdueTickets(t *testing.T) {
	e := newEnv(t)
	f := e.facility(t, "Central", "", 1, 10)
	ctx := context.Background()

	old := e.park(t, "OLD", f.ID)
	e.clock.Advance(20 * time.Hour)
	e.park(t, "NEW", f.ID)
	e.clock.Advance(5 * time.Hour)

	overdue, err := e.q.ListOverdueTickets(ctx, f.ID, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, old.Number, overdue[0].Number)

	_, err = e.parking.Exit(ctx, old.Number)
	require.NoError(t, err)

	overdue, err = e.q.ListOverdueTickets(ctx, f.ID, 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, overdue)
}

func TestGetFacilityServedFromCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := memory.New()
	q := New(store, redisrepo.NewCache(db), clock.Real{}, Config{})

	key := redisrepo.KeyFacilitySummary(42)
	mock.ExpectGet(key).SetVal(`{"ID":42,"Name":"Cached","TotalSpots":10,"AvailableSpots":4,"Active":true}`)

	got, err := q.GetFacility(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Cached", got.Name)
	assert.Equal(t, 6, got.OccupiedSpots())
	assert.NoError(t, mock.ExpectationsWereMet())
}
