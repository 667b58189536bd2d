package query

import (
	"errors"
)

var (
	ErrFacilityNotFound = errors.New("facility not found")
	ErrTicketNotFound   = errors.New("ticket not found")
)
