package parking

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/parkgo/internal/allocator"
)

var (
	ErrFacilityNotFound = allocator.ErrFacilityNotFound
	ErrFacilityInactive = allocator.ErrFacilityInactive
	ErrFacilityFull     = allocator.ErrFacilityFull
	ErrNoCompatibleSpot = allocator.ErrNoCompatibleSpot

	ErrAlreadyParked         = errors.New("vehicle is already parked")
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrTicketNotActive       = errors.New("ticket is not active")
	ErrInvalidVehicleType    = errors.New("invalid vehicle type")
	ErrInvalidLicensePlate   = errors.New("invalid license plate")
	ErrRateLimited           = errors.New("rate limited")
	ErrTicketNumberExhausted = errors.New("could not generate a unique ticket number")
)

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

func (e RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

type AlreadyParkedError struct {
	LicensePlate string
	TicketNumber string
}

func (e AlreadyParkedError) Error() string {
	if e.TicketNumber == "" {
		return fmt.Sprintf("vehicle %s is already parked", e.LicensePlate)
	}
	return fmt.Sprintf("vehicle %s is already parked on ticket %s", e.LicensePlate, e.TicketNumber)
}

func (e AlreadyParkedError) Unwrap() error {
	return ErrAlreadyParked
}
