package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

type VehicleType string

const (
	VehicleMotorcycle VehicleType = "MOTORCYCLE"
	VehicleCar        VehicleType = "CAR"
	VehicleTruck      VehicleType = "TRUCK"
)

// NormalizePlate trims and upper-cases a license plate. Plates are stored
// and looked up in this form.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// ParseVehicleType accepts any letter case.
func ParseVehicleType(s string) (VehicleType, error) {
	v := VehicleType(strings.ToUpper(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("unknown vehicle type %q", s)
	}

	return v, nil
}

func (v VehicleType) Valid() bool {
	switch v {
	case VehicleMotorcycle, VehicleCar, VehicleTruck:
		return true
	}
	return false
}

type SpotType string

const (
	SpotMotorcycle  SpotType = "MOTORCYCLE"
	SpotCompact     SpotType = "COMPACT"
	SpotLarge       SpotType = "LARGE"
	SpotHandicapped SpotType = "HANDICAPPED"
)

// Admits reports whether a vehicle of type v may occupy a spot of type t.
func (t SpotType) Admits(v VehicleType) bool {
	switch t {
	case SpotMotorcycle:
		return v == VehicleMotorcycle
	case SpotCompact:
		return v == VehicleMotorcycle || v == VehicleCar
	case SpotLarge:
		return v == VehicleMotorcycle || v == VehicleCar || v == VehicleTruck
	case SpotHandicapped:
		return v == VehicleCar
	}
	return false
}

var spotTypes = []SpotType{SpotMotorcycle, SpotCompact, SpotLarge, SpotHandicapped}

// AdmissibleSpotTypes lists the spot types that admit v.
func AdmissibleSpotTypes(v VehicleType) []SpotType {
	var out []SpotType
	for _, t := range spotTypes {
		if t.Admits(v) {
			out = append(out, t)
		}
	}
	return out
}

type SpotStatus string

const (
	SpotAvailable    SpotStatus = "AVAILABLE"
	SpotOccupied     SpotStatus = "OCCUPIED"
	SpotReserved     SpotStatus = "RESERVED"
	SpotOutOfService SpotStatus = "OUT_OF_SERVICE"
)

type TicketStatus string

const (
	TicketActive    TicketStatus = "ACTIVE"
	TicketCompleted TicketStatus = "COMPLETED"
	TicketCancelled TicketStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type Facility struct {
	ID             int64
	Name           string
	Location       string
	TotalFloors    int
	SpotsPerFloor  int
	TotalSpots     int
	AvailableSpots int
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (f Facility) HasAvailableSpots() bool {
	return f.AvailableSpots > 0
}

func (f Facility) OccupiedSpots() int {
	return f.TotalSpots - f.AvailableSpots
}

// OccupancyPercentage is 0 for a facility without spots.
func (f Facility) OccupancyPercentage() float64 {
	if f.TotalSpots == 0 {
		return 0
	}
	return float64(f.OccupiedSpots()) / float64(f.TotalSpots) * 100
}

type Floor struct {
	ID             int64
	FacilityID     int64
	Number         int
	TotalSpots     int
	AvailableSpots int
}

type Spot struct {
	ID          int64
	FacilityID  int64
	FloorID     int64
	FloorNumber int
	Number      string
	Type        SpotType
	Status      SpotStatus
}

func (s Spot) IsAvailable() bool {
	return s.Status == SpotAvailable
}

type Ticket struct {
	ID            int64
	Number        string
	LicensePlate  string
	VehicleType   VehicleType
	EntryTime     time.Time
	ExitTime      null.Time
	AmountPaid    decimal.NullDecimal
	PaymentStatus PaymentStatus
	Status        TicketStatus
	FacilityID    int64
	SpotID        int64

	// Resolved from the owning facility and spot on read.
	FacilityName string
	SpotNumber   string
	FloorNumber  int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t Ticket) IsActive() bool {
	return t.Status == TicketActive
}

// BilledUntil is the end of the billed interval: the exit time once set,
// now otherwise.
func (t Ticket) BilledUntil(now time.Time) time.Time {
	if t.ExitTime.Valid {
		return t.ExitTime.Time
	}
	return now
}

type FacilityFilter struct {
	ActiveOnly       bool
	WithAvailability bool
	Location         string
	MinAvailable     int
}
