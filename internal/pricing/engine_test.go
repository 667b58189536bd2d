package pricing

import (
	"testing"
	"time"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/stretchr/testify/assert"
)

// 2024-01-03 is a Wednesday.
var wednesday = time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return NewEngine(time.UTC, nil)
}

func TestBilledHours(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int64
	}{
		{0, 0},
		{-time.Hour, 0},
		{30 * time.Second, 0},
		{time.Minute, 1},
		{time.Hour, 1},
		{time.Hour + 59*time.Second, 1},
		{time.Hour + time.Minute, 2},
		{30 * time.Hour, 30},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BilledHours(tt.d), tt.d.String())
	}
}

func TestHourlyExamples(t *testing.T) {
	h := NewHourly()

	assert.Equal(t, "10.00", h.CalculateFee(time.Hour+time.Minute, domain.VehicleCar, false).StringFixed(2))
	assert.Equal(t, "4.00", h.CalculateFee(10*time.Minute, domain.VehicleMotorcycle, false).StringFixed(2))
	assert.Equal(t, "7.50", h.CalculateFee(time.Hour, domain.VehicleTruck, false).StringFixed(2))
	assert.Equal(t, "6.00", h.CalculateFee(time.Hour, domain.VehicleCar, true).StringFixed(2))
}

func TestHourlyMinimum(t *testing.T) {
	h := NewHourly()

	assert.Equal(t, "2.00", h.CalculateFee(0, domain.VehicleCar, false).StringFixed(2))
	assert.Equal(t, "2.00", h.CalculateFee(20*time.Second, domain.VehicleMotorcycle, true).StringFixed(2))
}

func TestDailyExamples(t *testing.T) {
	dl := NewDaily()

	assert.Equal(t, "71.50", dl.CalculateFee(30*time.Hour, domain.VehicleTruck, false).StringFixed(2))
	assert.Equal(t, "78.65", dl.CalculateFee(30*time.Hour, domain.VehicleTruck, true).StringFixed(2))
	assert.Equal(t, "21.00", dl.CalculateFee(6*time.Hour, domain.VehicleMotorcycle, false).StringFixed(2))
	assert.Equal(t, "50.00", dl.CalculateFee(48*time.Hour, domain.VehicleCar, false).StringFixed(2))
}

func TestDailyApplicability(t *testing.T) {
	dl := NewDaily()

	assert.False(t, dl.IsApplicable(5*time.Hour, domain.VehicleCar))
	// 5h01m bills as 6 hours.
	assert.True(t, dl.IsApplicable(5*time.Hour+time.Minute, domain.VehicleCar))
	assert.True(t, dl.IsApplicable(6*time.Hour, domain.VehicleCar))
}

func TestEngineSelectsStrategy(t *testing.T) {
	e := newTestEngine()

	q := e.Quote(wednesday, wednesday.Add(time.Hour+time.Minute), domain.VehicleCar)
	assert.Equal(t, StrategyHourly, q.Strategy)
	assert.Equal(t, "10.00", q.Fee.StringFixed(2))
	assert.Equal(t, int64(2), q.BilledHours)
	assert.False(t, q.Weekend)

	q = e.Quote(wednesday, wednesday.Add(30*time.Hour), domain.VehicleTruck)
	assert.Equal(t, StrategyDaily, q.Strategy)
	assert.Equal(t, "71.50", q.Fee.StringFixed(2))

	q = e.Quote(wednesday, wednesday.Add(5*time.Hour), domain.VehicleMotorcycle)
	assert.Equal(t, StrategyHourly, q.Strategy)
	assert.Equal(t, "20.00", q.Fee.StringFixed(2))
}

func TestEngineFallback(t *testing.T) {
	e := NewEngine(time.UTC, nil, NewDaily())

	// Daily is not applicable for an hour but it is the only strategy left.
	q := e.Quote(wednesday, wednesday.Add(time.Hour), domain.VehicleCar)
	assert.Equal(t, StrategyDaily, q.Strategy)
	assert.Equal(t, "5.00", q.Fee.StringFixed(2))
}

func TestEngineLookup(t *testing.T) {
	e := newTestEngine()

	s, ok := e.Strategy(StrategyDaily)
	assert.True(t, ok)
	assert.Equal(t, StrategyDaily, s.Name())

	_, ok = e.Strategy("WEEKLY")
	assert.False(t, ok)

	assert.Len(t, e.Strategies(), 2)
}

func TestIsWeekend(t *testing.T) {
	friday := time.Date(2024, 1, 5, 23, 0, 0, 0, time.UTC)
	saturday := time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC)

	// Only the entry instant is visited.
	assert.False(t, IsWeekend(friday, friday.Add(2*time.Hour), time.UTC))
	assert.True(t, IsWeekend(saturday, saturday.Add(time.Hour), time.UTC))
	assert.True(t, IsWeekend(friday, friday.Add(25*time.Hour), time.UTC))
	assert.False(t, IsWeekend(wednesday, wednesday.Add(30*time.Hour), time.UTC))
	assert.False(t, IsWeekend(saturday, saturday, time.UTC))
}

func TestIsWeekendUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// Friday 22:00 UTC is Saturday 01:00 at UTC+3.
	entry := time.Date(2024, 1, 5, 22, 0, 0, 0, time.UTC)

	assert.False(t, IsWeekend(entry, entry.Add(time.Hour), time.UTC))
	assert.True(t, IsWeekend(entry, entry.Add(time.Hour), loc))
}

func TestEngineWeekendSurcharge(t *testing.T) {
	e := newTestEngine()
	saturday := time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC)

	q := e.Quote(saturday, saturday.Add(time.Hour), domain.VehicleCar)
	assert.True(t, q.Weekend)
	assert.Equal(t, "6.00", q.Fee.StringFixed(2))
}
