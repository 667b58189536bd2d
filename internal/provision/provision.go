// Package provision lays out the floors and spots of a new facility.
package provision

import (
	"errors"
	"fmt"

	"github.com/kirinyoku/parkgo/internal/domain"
)

var ErrInvalidLayout = errors.New("invalid facility layout")

type FloorPlan struct {
	Number int
	Spots  []domain.Spot
}

// Distribution is an explicit per-floor count of each spot type.
type Distribution struct {
	Motorcycle  int
	Compact     int
	Large       int
	Handicapped int
}

func (d Distribution) Total() int {
	return d.Motorcycle + d.Compact + d.Large + d.Handicapped
}

// SpotNumber formats the facility-unique number of a spot, e.g. F1-S07.
func SpotNumber(floor, position int) string {
	return fmt.Sprintf("F%d-S%02d", floor, position)
}

// SpotTypeFor assigns a type to the 1-based position on a floor with
// perFloor spots, from r = position/perFloor:
//
//	r <= 0.20  MOTORCYCLE
//	r <= 0.80  COMPACT
//	r <= 0.95  LARGE
//	otherwise  HANDICAPPED
//
// The comparisons are done on integers so the boundaries are exact.
func SpotTypeFor(position, perFloor int) domain.SpotType {
	switch {
	case 5*position <= perFloor:
		return domain.SpotMotorcycle
	case 5*position <= 4*perFloor:
		return domain.SpotCompact
	case 20*position <= 19*perFloor:
		return domain.SpotLarge
	default:
		return domain.SpotHandicapped
	}
}

// Layout builds floors floors of perFloor spots using the ratio rule.
func Layout(floors, perFloor int) ([]FloorPlan, error) {
	const op = "provision.Layout"

	if floors < 1 || perFloor < 1 {
		return nil, fmt.Errorf("%s: floors=%d spots_per_floor=%d: %w", op, floors, perFloor, ErrInvalidLayout)
	}

	plans := make([]FloorPlan, 0, floors)
	for f := 1; f <= floors; f++ {
		spots := make([]domain.Spot, 0, perFloor)
		for pos := 1; pos <= perFloor; pos++ {
			spots = append(spots, newSpot(f, pos, SpotTypeFor(pos, perFloor)))
		}
		plans = append(plans, FloorPlan{Number: f, Spots: spots})
	}

	return plans, nil
}

// LayoutWithDistribution builds floors floors, each numbered sequentially by
// type in the order motorcycle, compact, large, handicapped.
func LayoutWithDistribution(floors int, d Distribution) ([]FloorPlan, error) {
	const op = "provision.LayoutWithDistribution"

	if floors < 1 || d.Total() < 1 ||
		d.Motorcycle < 0 || d.Compact < 0 || d.Large < 0 || d.Handicapped < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidLayout)
	}

	order := []struct {
		t     domain.SpotType
		count int
	}{
		{domain.SpotMotorcycle, d.Motorcycle},
		{domain.SpotCompact, d.Compact},
		{domain.SpotLarge, d.Large},
		{domain.SpotHandicapped, d.Handicapped},
	}

	plans := make([]FloorPlan, 0, floors)
	for f := 1; f <= floors; f++ {
		spots := make([]domain.Spot, 0, d.Total())
		pos := 1
		for _, o := range order {
			for i := 0; i < o.count; i++ {
				spots = append(spots, newSpot(f, pos, o.t))
				pos++
			}
		}
		plans = append(plans, FloorPlan{Number: f, Spots: spots})
	}

	return plans, nil
}

func newSpot(floor, position int, t domain.SpotType) domain.Spot {
	return domain.Spot{
		FloorNumber: floor,
		Number:      SpotNumber(floor, position),
		Type:        t,
		Status:      domain.SpotAvailable,
	}
}
