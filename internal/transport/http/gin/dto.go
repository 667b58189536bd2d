package httpgin

import (
	"time"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/service/billing"
	"github.com/shopspring/decimal"
)

type CreateFacilityRequest struct {
	Name          string `json:"name" binding:"required"`
	Location      string `json:"location"`
	Floors        int    `json:"floors" binding:"required,gt=0"`
	SpotsPerFloor int    `json:"spots_per_floor" binding:"required,gt=0"`
}

type CreateCustomFacilityRequest struct {
	Name        string `json:"name" binding:"required"`
	Location    string `json:"location"`
	Floors      int    `json:"floors" binding:"required,gt=0"`
	Motorcycle  int    `json:"motorcycle" binding:"gte=0"`
	Compact     int    `json:"compact" binding:"gte=0"`
	Large       int    `json:"large" binding:"gte=0"`
	Handicapped int    `json:"handicapped" binding:"gte=0"`
}

type UpdateFacilityRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
}

type ParkRequest struct {
	LicensePlate string `json:"license_plate" binding:"required"`
	VehicleType  string `json:"vehicle_type" binding:"required"`
	FacilityID   int64  `json:"facility_id" binding:"required,gt=0"`
}

type PayRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type FacilityView struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Location            string    `json:"location"`
	TotalFloors         int       `json:"total_floors"`
	SpotsPerFloor       int       `json:"spots_per_floor"`
	TotalSpots          int       `json:"total_spots"`
	AvailableSpots      int       `json:"available_spots"`
	OccupiedSpots       int       `json:"occupied_spots"`
	OccupancyPercentage float64   `json:"occupancy_percentage"`
	Active              bool      `json:"active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func facilityView(f domain.Facility) FacilityView {
	return FacilityView{
		ID:                  f.ID,
		Name:                f.Name,
		Location:            f.Location,
		TotalFloors:         f.TotalFloors,
		SpotsPerFloor:       f.SpotsPerFloor,
		TotalSpots:          f.TotalSpots,
		AvailableSpots:      f.AvailableSpots,
		OccupiedSpots:       f.OccupiedSpots(),
		OccupancyPercentage: f.OccupancyPercentage(),
		Active:              f.Active,
		CreatedAt:           f.CreatedAt,
		UpdatedAt:           f.UpdatedAt,
	}
}

type SpotView struct {
	ID          int64  `json:"id"`
	FacilityID  int64  `json:"facility_id"`
	FloorNumber int    `json:"floor_number"`
	SpotNumber  string `json:"spot_number"`
	SpotType    string `json:"spot_type"`
	Status      string `json:"status"`
}

func spotView(s domain.Spot) SpotView {
	return SpotView{
		ID:          s.ID,
		FacilityID:  s.FacilityID,
		FloorNumber: s.FloorNumber,
		SpotNumber:  s.Number,
		SpotType:    string(s.Type),
		Status:      string(s.Status),
	}
}

type TicketView struct {
	TicketNumber  string     `json:"ticket_number"`
	LicensePlate  string     `json:"license_plate"`
	VehicleType   string     `json:"vehicle_type"`
	EntryTime     time.Time  `json:"entry_time"`
	ExitTime      *time.Time `json:"exit_time"`
	AmountPaid    *string    `json:"amount_paid"`
	PaymentStatus string     `json:"payment_status"`
	Status        string     `json:"status"`
	FacilityID    int64      `json:"facility_id"`
	FacilityName  string     `json:"facility_name"`
	SpotNumber    string     `json:"spot_number"`
	FloorNumber   int        `json:"floor_number"`
}

func ticketView(t domain.Ticket) TicketView {
	v := TicketView{
		TicketNumber:  t.Number,
		LicensePlate:  t.LicensePlate,
		VehicleType:   string(t.VehicleType),
		EntryTime:     t.EntryTime,
		ExitTime:      t.ExitTime.Ptr(),
		PaymentStatus: string(t.PaymentStatus),
		Status:        string(t.Status),
		FacilityID:    t.FacilityID,
		FacilityName:  t.FacilityName,
		SpotNumber:    t.SpotNumber,
		FloorNumber:   t.FloorNumber,
	}
	if t.AmountPaid.Valid {
		amount := t.AmountPaid.Decimal.StringFixed(2)
		v.AmountPaid = &amount
	}
	return v
}

type FeeView struct {
	TicketNumber string `json:"ticket_number"`
	Fee          string `json:"fee"`
}

type QuoteView struct {
	TicketNumber    string `json:"ticket_number"`
	Fee             string `json:"fee"`
	Strategy        string `json:"strategy"`
	BilledHours     int64  `json:"billed_hours"`
	DurationMinutes int64  `json:"duration_minutes"`
	Weekend         bool   `json:"weekend"`
}

func quoteView(q *billing.Quote) QuoteView {
	return QuoteView{
		TicketNumber:    q.Ticket.Number,
		Fee:             q.Fee.StringFixed(2),
		Strategy:        q.Strategy,
		BilledHours:     q.BilledHours,
		DurationMinutes: int64(q.Duration.Minutes()),
		Weekend:         q.Weekend,
	}
}

type ParkedView struct {
	LicensePlate string `json:"license_plate"`
	Parked       bool   `json:"parked"`
}

func mapSlice[T, V any](in []T, fn func(T) V) []V {
	out := make([]V, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
