package pricing

import (
	"time"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	StrategyHourly = "HOURLY"
	StrategyDaily  = "DAILY"
)

// Strategy computes a fee for one stay.
type Strategy interface {
	Name() string
	CalculateFee(d time.Duration, v domain.VehicleType, weekend bool) decimal.Decimal
	IsApplicable(d time.Duration, v domain.VehicleType) bool
}

// BilledHours rounds d up to whole hours. Only whole minutes count towards
// the remainder, seconds are ignored.
func BilledHours(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}

	hours := int64(d / time.Hour)
	if int64(d/time.Minute)%60 > 0 {
		hours++
	}

	return hours
}

type Multipliers map[domain.VehicleType]decimal.Decimal

func (m Multipliers) For(v domain.VehicleType) decimal.Decimal {
	if x, ok := m[v]; ok {
		return x
	}
	return decimal.NewFromInt(1)
}

type Hourly struct {
	Rate    decimal.Decimal
	Minimum decimal.Decimal
	Weekend decimal.Decimal
	Vehicle Multipliers
}

func NewHourly() *Hourly {
	return &Hourly{
		Rate:    decimal.RequireFromString("5.00"),
		Minimum: decimal.RequireFromString("2.00"),
		Weekend: decimal.RequireFromString("1.2"),
		Vehicle: Multipliers{
			domain.VehicleMotorcycle: decimal.RequireFromString("0.8"),
			domain.VehicleCar:        decimal.RequireFromString("1.0"),
			domain.VehicleTruck:      decimal.RequireFromString("1.5"),
		},
	}
}

func (h *Hourly) Name() string { return StrategyHourly }

func (h *Hourly) CalculateFee(d time.Duration, v domain.VehicleType, weekend bool) decimal.Decimal {
	fee := h.Rate.Mul(decimal.NewFromInt(BilledHours(d)))
	fee = fee.Mul(h.Vehicle.For(v))
	if weekend {
		fee = fee.Mul(h.Weekend)
	}

	return decimal.Max(fee, h.Minimum).Round(2)
}

func (h *Hourly) IsApplicable(time.Duration, domain.VehicleType) bool { return true }

// Daily charges each full 24-hour block at Rate and the remaining hours at
// HourlyRate.
type Daily struct {
	Rate       decimal.Decimal
	HourlyRate decimal.Decimal
	MinHours   int64
	Weekend    decimal.Decimal
	Vehicle    Multipliers
}

func NewDaily() *Daily {
	return &Daily{
		Rate:       decimal.RequireFromString("25.00"),
		HourlyRate: decimal.RequireFromString("5.00"),
		MinHours:   6,
		Weekend:    decimal.RequireFromString("1.1"),
		Vehicle: Multipliers{
			domain.VehicleMotorcycle: decimal.RequireFromString("0.7"),
			domain.VehicleCar:        decimal.RequireFromString("1.0"),
			domain.VehicleTruck:      decimal.RequireFromString("1.3"),
		},
	}
}

func (dl *Daily) Name() string { return StrategyDaily }

func (dl *Daily) CalculateFee(d time.Duration, v domain.VehicleType, weekend bool) decimal.Decimal {
	hours := BilledHours(d)
	days, rest := hours/24, hours%24

	fee := dl.Rate.Mul(decimal.NewFromInt(days)).
		Add(dl.HourlyRate.Mul(decimal.NewFromInt(rest)))
	fee = fee.Mul(dl.Vehicle.For(v))
	if weekend {
		fee = fee.Mul(dl.Weekend)
	}

	return fee.Round(2)
}

func (dl *Daily) IsApplicable(d time.Duration, _ domain.VehicleType) bool {
	return BilledHours(d) >= dl.MinHours
}
