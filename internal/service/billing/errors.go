package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTicketNotActive     = errors.New("ticket is not active")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrInvalidAmount       = errors.New("payment amount must not be negative")
)

type InsufficientPaymentError struct {
	Required decimal.Decimal
	Provided decimal.Decimal
}

func (e InsufficientPaymentError) Error() string {
	return fmt.Sprintf("insufficient payment: required %s, provided %s",
		e.Required.StringFixed(2), e.Provided.StringFixed(2))
}

func (e InsufficientPaymentError) Unwrap() error {
	return ErrInsufficientPayment
}
