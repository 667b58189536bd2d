package allocator

import (
	"context"
	"sync"
	"testing"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/provision"
	"github.com/kirinyoku/parkgo/internal/repository"
	"github.com/kirinyoku/parkgo/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFacility provisions a facility with an explicit per-floor distribution.
func newFacility(t *testing.T, s *memory.Store, floors int, d provision.Distribution) *domain.Facility {
	t.Helper()
	ctx := context.Background()

	plans, err := provision.LayoutWithDistribution(floors, d)
	require.NoError(t, err)

	f := &domain.Facility{
		Name:           "Central",
		TotalFloors:    floors,
		SpotsPerFloor:  d.Total(),
		TotalSpots:     floors * d.Total(),
		AvailableSpots: floors * d.Total(),
		Active:         true,
	}
	require.NoError(t, s.Facilities().Create(ctx, f))

	for _, p := range plans {
		fl := &domain.Floor{FacilityID: f.ID, Number: p.Number, TotalSpots: len(p.Spots), AvailableSpots: len(p.Spots)}
		require.NoError(t, s.Facilities().CreateFloor(ctx, fl))

		for i := range p.Spots {
			p.Spots[i].FacilityID = f.ID
			p.Spots[i].FloorID = fl.ID
		}
		require.NoError(t, s.Spots().BatchCreate(ctx, p.Spots))
	}

	return f
}

func claim(s *memory.Store, a *Allocator, facilityID int64, v domain.VehicleType) (*domain.Spot, error) {
	var sp *domain.Spot
	err := s.RunTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		_, sp, err = a.Claim(ctx, tx, facilityID, v)
		return err
	})
	return sp, err
}

func TestClaimPicksLowestFloorThenNumber(t *testing.T) {
	s := memory.New()
	a := New()
	f := newFacility(t, s, 2, provision.Distribution{Motorcycle: 1, Compact: 1, Large: 1})

	sp, err := claim(s, a, f.ID, domain.VehicleTruck)
	require.NoError(t, err)
	assert.Equal(t, "F1-S03", sp.Number)

	sp, err = claim(s, a, f.ID, domain.VehicleTruck)
	require.NoError(t, err)
	assert.Equal(t, "F2-S03", sp.Number)

	sp, err = claim(s, a, f.ID, domain.VehicleCar)
	require.NoError(t, err)
	assert.Equal(t, "F1-S02", sp.Number)

	got, err := s.Facilities().Get(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AvailableSpots)
}

func TestClaimNoCompatibleSpotLeavesCounters(t *testing.T) {
	s := memory.New()
	a := New()
	f := newFacility(t, s, 1, provision.Distribution{Motorcycle: 2, Compact: 1})

	_, err := claim(s, a, f.ID, domain.VehicleTruck)
	assert.ErrorIs(t, err, ErrNoCompatibleSpot)

	got, err := s.Facilities().Get(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AvailableSpots)

	floors, err := s.Facilities().ListFloors(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, floors[0].AvailableSpots)
}

func TestClaimFailures(t *testing.T) {
	s := memory.New()
	a := New()
	f := newFacility(t, s, 1, provision.Distribution{Compact: 1})

	_, err := claim(s, a, 999, domain.VehicleCar)
	assert.ErrorIs(t, err, ErrFacilityNotFound)

	_, err = claim(s, a, f.ID, domain.VehicleCar)
	require.NoError(t, err)

	_, err = claim(s, a, f.ID, domain.VehicleCar)
	assert.ErrorIs(t, err, ErrFacilityFull)

	require.NoError(t, s.Facilities().SetActive(context.Background(), f.ID, false))
	_, err = claim(s, a, f.ID, domain.VehicleCar)
	assert.ErrorIs(t, err, ErrFacilityInactive)
}

func TestConcurrentClaimsForLastSpot(t *testing.T) {
	s := memory.New()
	a := New()
	f := newFacility(t, s, 1, provision.Distribution{Motorcycle: 3, Large: 1})

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		won     []string
		refused int
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sp, err := claim(s, a, f.ID, domain.VehicleTruck)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, ErrNoCompatibleSpot)
				refused++
				return
			}
			won = append(won, sp.Number)
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"F1-S04"}, won)
	assert.Equal(t, callers-1, refused)

	got, err := s.Facilities().Get(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AvailableSpots)
}

func TestReleaseRestoresCounters(t *testing.T) {
	s := memory.New()
	a := New()
	f := newFacility(t, s, 1, provision.Distribution{Compact: 2})

	sp, err := claim(s, a, f.ID, domain.VehicleCar)
	require.NoError(t, err)

	err = s.RunTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Facilities().GetForUpdate(ctx, f.ID); err != nil {
			return err
		}
		return a.Release(ctx, tx, f.ID, sp.ID)
	})
	require.NoError(t, err)

	got, err := s.Facilities().Get(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AvailableSpots)
}

func TestPreviewDoesNotClaim(t *testing.T) {
	s := memory.New()
	a := New()
	f := newFacility(t, s, 1, provision.Distribution{Compact: 1, Large: 1})

	sp, err := a.Preview(context.Background(), s, f.ID, domain.VehicleCar)
	require.NoError(t, err)
	assert.Equal(t, "F1-S01", sp.Number)

	again, err := a.Preview(context.Background(), s, f.ID, domain.VehicleCar)
	require.NoError(t, err)
	assert.Equal(t, sp.ID, again.ID)

	_, err = a.Preview(context.Background(), s, f.ID, domain.VehicleMotorcycle)
	require.NoError(t, err)
}
