package pricing

import (
	"log/slog"
	"time"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/shopspring/decimal"
)

type Quote struct {
	Fee         decimal.Decimal
	Strategy    string
	Duration    time.Duration
	BilledHours int64
	Weekend     bool
}

// Engine picks the first applicable strategy in registration order and falls
// back to the hourly one (or the first registered) when none applies.
type Engine struct {
	strategies []Strategy
	fallback   Strategy
	loc        *time.Location
	logger     *slog.Logger
}

// NewEngine registers strategies in order of preference. With none given it
// uses Daily then Hourly. A nil loc means time.Local.
func NewEngine(loc *time.Location, logger *slog.Logger, strategies ...Strategy) *Engine {
	if len(strategies) == 0 {
		strategies = []Strategy{NewDaily(), NewHourly()}
	}

	if loc == nil {
		loc = time.Local
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fallback := strategies[0]
	for _, s := range strategies {
		if s.Name() == StrategyHourly {
			fallback = s
			break
		}
	}

	return &Engine{
		strategies: strategies,
		fallback:   fallback,
		loc:        loc,
		logger:     logger,
	}
}

func (e *Engine) Strategies() []Strategy {
	out := make([]Strategy, len(e.strategies))
	copy(out, e.strategies)
	return out
}

func (e *Engine) Strategy(name string) (Strategy, bool) {
	for _, s := range e.strategies {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

func (e *Engine) Quote(entry, end time.Time, v domain.VehicleType) Quote {
	d := end.Sub(entry)
	weekend := IsWeekend(entry, end, e.loc)

	strategy := e.pick(d, v)
	fee := strategy.CalculateFee(d, v, weekend)

	e.logger.Debug("fee calculated",
		"strategy", strategy.Name(),
		"vehicle_type", v,
		"minutes", int64(d/time.Minute),
		"weekend", weekend,
		"fee", fee.StringFixed(2),
	)

	return Quote{
		Fee:         fee,
		Strategy:    strategy.Name(),
		Duration:    d,
		BilledHours: BilledHours(d),
		Weekend:     weekend,
	}
}

func (e *Engine) CalculateFee(entry, end time.Time, v domain.VehicleType) decimal.Decimal {
	return e.Quote(entry, end, v).Fee
}

func (e *Engine) pick(d time.Duration, v domain.VehicleType) Strategy {
	for _, s := range e.strategies {
		if s.IsApplicable(d, v) {
			return s
		}
	}

	e.logger.Warn("no applicable pricing strategy, using fallback", "fallback", e.fallback.Name())
	return e.fallback
}

// IsWeekend walks from entry in whole-day steps while still before end and
// reports whether any visited instant falls on a Saturday or Sunday in loc.
// A stay from Friday 23:00 to Saturday 01:00 is therefore not a weekend stay.
func IsWeekend(entry, end time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}

	cur := entry.In(loc)
	for cur.Before(end) {
		switch cur.Weekday() {
		case time.Saturday, time.Sunday:
			return true
		}
		cur = cur.AddDate(0, 0, 1)
	}

	return false
}
