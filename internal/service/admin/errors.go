package admin

import (
	"errors"

	"github.com/kirinyoku/parkgo/internal/allocator"
	"github.com/kirinyoku/parkgo/internal/provision"
)

var (
	ErrFacilityNotFound = allocator.ErrFacilityNotFound
	ErrInvalidLayout    = provision.ErrInvalidLayout

	ErrDuplicateName    = errors.New("facility name already exists")
	ErrInvalidName      = errors.New("facility name is required")
	ErrFacilityOccupied = errors.New("facility still has parked vehicles")
)
