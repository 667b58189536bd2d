package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/parkgo/internal/clock"
	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/pricing"
	"github.com/kirinyoku/parkgo/internal/repository"
	"github.com/kirinyoku/parkgo/internal/uow"
	"github.com/shopspring/decimal"
)

type Service struct {
	store   repository.Store
	uow     *uow.UoW
	pricing *pricing.Engine
	clock   clock.Clock
	logger  *slog.Logger
}

func New(store repository.Store, engine *pricing.Engine, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		uow:     uow.NewUoW(store),
		pricing: engine,
		clock:   clk,
		logger:  logger,
	}
}

// Pay records a payment against an active ticket. The ticket stays ACTIVE so
// a driver can pay before leaving.
//
// Parameters:
//   - ctx: request-scoped context.
//   - number: ticket number.
//   - amount: amount tendered.
//
// Returns:
//   - *domain.Ticket: the ticket marked PAID.
//   - error: billing.ErrTicketNotFound if there is no such ticket.
//   - error: billing.ErrTicketNotActive if the ticket is closed.
//   - error: billing.InsufficientPaymentError if amount is below the fee owed now.
func (s *Service) Pay(ctx context.Context, number string, amount decimal.Decimal) (*domain.Ticket, error) {
	const op = "service.billing.Pay"

	if amount.IsNegative() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}

	var ticket *domain.Ticket

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		t, err := repository.LockTicket(ctx, tx, number)
		if err != nil {
			return translate(err)
		}

		if !t.IsActive() {
			return fmt.Errorf("ticket %s is %s: %w", t.Number, t.Status, ErrTicketNotActive)
		}

		owed := s.pricing.CalculateFee(t.EntryTime, s.clock.Now(), t.VehicleType)
		if amount.LessThan(owed) {
			return InsufficientPaymentError{Required: owed, Provided: amount}
		}

		// owed is whole cents, so rounding cannot take amount below it.
		paid := amount.Round(2)

		if err := tx.Tickets().RecordPayment(ctx, t.ID, paid); err != nil {
			return translate(err)
		}

		t.AmountPaid = decimal.NewNullDecimal(paid)
		t.PaymentStatus = domain.PaymentPaid
		ticket = t

		return nil
	})
	if err != nil {
		var short InsufficientPaymentError
		if errors.As(err, &short) {
			s.logger.Info("payment refused",
				"ticket", number,
				"required", short.Required.StringFixed(2),
				"provided", short.Provided.StringFixed(2),
			)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("payment recorded", "ticket", ticket.Number, "amount", ticket.AmountPaid.Decimal.StringFixed(2))

	return ticket, nil
}

// CalculateFee returns the fee for the ticket's stay, billed until its exit
// time or until now while it is active.
func (s *Service) CalculateFee(ctx context.Context, number string) (decimal.Decimal, error) {
	const op = "service.billing.CalculateFee"

	q, err := s.Quote(ctx, number)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	return q.Fee, nil
}

type Quote struct {
	Ticket *domain.Ticket
	pricing.Quote
}

// Quote is CalculateFee with the pricing details behind the fee.
func (s *Service) Quote(ctx context.Context, number string) (*Quote, error) {
	const op = "service.billing.Quote"

	t, err := s.store.Tickets().GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	q := s.pricing.Quote(t.EntryTime, t.BilledUntil(s.clock.Now()), t.VehicleType)

	return &Quote{Ticket: t, Quote: q}, nil
}

func translate(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTicketNotFound
	}
	return err
}
