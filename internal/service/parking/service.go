package parking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/parkgo/internal/allocator"
	"github.com/kirinyoku/parkgo/internal/clock"
	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/metrics"
	"github.com/kirinyoku/parkgo/internal/pricing"
	"github.com/kirinyoku/parkgo/internal/repository"
	"github.com/kirinyoku/parkgo/internal/uow"
)

type Config struct {
	// TicketNumberAttempts bounds the retries on a ticket number collision.
	TicketNumberAttempts int
}

// Notifier is told about every committed change to a facility.
type Notifier interface {
	FacilityChanged(ctx context.Context, facilityID int64)
}

type Limiter interface {
	Allow(ctx context.Context, client string) (allowed bool, retryAfter time.Duration, err error)
}

type Option func(*Service)

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithLimiter(l Limiter) Option { return func(s *Service) { s.limiter = l } }

func WithMetrics(m *metrics.Recorder) Option { return func(s *Service) { s.metrics = m } }

// WithNumberGenerator replaces the random ticket number source.
func WithNumberGenerator(gen func() string) Option { return func(s *Service) { s.newNumber = gen } }

type Service struct {
	store     repository.Store
	uow       *uow.UoW
	alloc     *allocator.Allocator
	pricing   *pricing.Engine
	clock     clock.Clock
	logger    *slog.Logger
	notifier  Notifier
	limiter   Limiter
	metrics   *metrics.Recorder
	newNumber func() string
	cfg       Config
}

func New(
	store repository.Store,
	engine *pricing.Engine,
	clk clock.Clock,
	logger *slog.Logger,
	cfg Config,
	opts ...Option,
) *Service {
	if cfg.TicketNumberAttempts <= 0 {
		cfg.TicketNumberAttempts = 5
	}

	s := &Service{
		store:     store,
		uow:       uow.NewUoW(store),
		alloc:     allocator.New(),
		pricing:   engine,
		clock:     clk,
		logger:    logger,
		newNumber: NewTicketNumber,
		cfg:       cfg,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewTicketNumber returns TKT- followed by 8 uppercase hex characters.
func NewTicketNumber() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

type ParkInput struct {
	LicensePlate string
	VehicleType  domain.VehicleType
	FacilityID   int64
	// ClientKey identifies the caller for rate limiting. Empty disables it.
	ClientKey string
}

// Park admits a vehicle: it claims the first admissible spot of the facility
// and opens an ACTIVE ticket for it in one transaction.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: plate, vehicle type, facility and the caller's rate limit key.
//
// Returns:
//   - *domain.Ticket: the new ticket.
//   - error: parking.ErrAlreadyParked if the plate has an active ticket.
//   - error: parking.ErrFacilityNotFound, ErrFacilityInactive, ErrFacilityFull
//     or ErrNoCompatibleSpot if no spot can be claimed.
//   - error: parking.ErrRateLimited if the caller exceeded the limit.
func (s *Service) Park(ctx context.Context, in ParkInput) (*domain.Ticket, error) {
	const op = "service.parking.Park"

	plate := domain.NormalizePlate(in.LicensePlate)
	if plate == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidLicensePlate)
	}

	if !in.VehicleType.Valid() {
		return nil, fmt.Errorf("%s: %q: %w", op, in.VehicleType, ErrInvalidVehicleType)
	}

	if s.limiter != nil && in.ClientKey != "" {
		ok, retry, err := s.limiter.Allow(ctx, in.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			s.metrics.Rejected("rate_limited")
			return nil, fmt.Errorf("%s: %w", op, RateLimitedError{RetryAfter: retry})
		}
	}

	var ticket *domain.Ticket

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		active, err := tx.Tickets().ListActiveByPlate(ctx, plate)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return AlreadyParkedError{LicensePlate: plate, TicketNumber: active[0].Number}
		}

		f, spot, err := s.alloc.Claim(ctx, tx, in.FacilityID, in.VehicleType)
		if err != nil {
			return err
		}

		number, err := s.uniqueNumber(ctx, tx)
		if err != nil {
			return err
		}

		t := &domain.Ticket{
			Number:        number,
			LicensePlate:  plate,
			VehicleType:   in.VehicleType,
			EntryTime:     s.clock.Now(),
			PaymentStatus: domain.PaymentPending,
			Status:        domain.TicketActive,
			FacilityID:    f.ID,
			SpotID:        spot.ID,
		}
		if err := tx.Tickets().Create(ctx, t); err != nil {
			// A concurrent park took the number after the check above. The
			// failed insert poisons the transaction, so run it again.
			if errors.Is(err, repository.ErrDuplicateTicketNumber) {
				s.logger.Warn("ticket number taken concurrently", "number", number)
				return fmt.Errorf("%w: %w", repository.ErrRetryable, err)
			}
			// The active-plate index catches a concurrent park in another
			// facility.
			if errors.Is(err, repository.ErrConflict) {
				return AlreadyParkedError{LicensePlate: plate}
			}
			return err
		}

		t.FacilityName = f.Name
		t.SpotNumber = spot.Number
		t.FloorNumber = spot.FloorNumber
		ticket = t

		after(func(ctx context.Context) { s.notify(ctx, f.ID) })

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateTicketNumber) {
			s.logger.Error("ticket number generator exhausted", "error", err)
			err = fmt.Errorf("%w: %w", ErrTicketNumberExhausted, err)
		}
		s.rejected(plate, in, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Parked(string(ticket.VehicleType))
	s.logger.Info("vehicle parked",
		"ticket", ticket.Number,
		"plate", ticket.LicensePlate,
		"facility_id", ticket.FacilityID,
		"spot", ticket.SpotNumber,
	)

	return ticket, nil
}

// Exit closes an active ticket: it charges the fee owed as of now, marks the
// ticket COMPLETED and PAID and frees the spot, all in one transaction.
//
// Returns:
//   - *domain.Ticket: the closed ticket.
//   - error: parking.ErrTicketNotFound if there is no such ticket.
//   - error: parking.ErrTicketNotActive if it is already closed.
func (s *Service) Exit(ctx context.Context, number string) (*domain.Ticket, error) {
	const op = "service.parking.Exit"

	var (
		ticket *domain.Ticket
		quote  pricing.Quote
	)

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		t, err := s.lockActive(ctx, tx, number)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		quote = s.pricing.Quote(t.EntryTime, now, t.VehicleType)

		if err := tx.Tickets().Complete(ctx, t.ID, now, quote.Fee); err != nil {
			return translate(err)
		}

		if err := s.alloc.Release(ctx, tx, t.FacilityID, t.SpotID); err != nil {
			return err
		}

		t.ExitTime.SetValid(now)
		t.AmountPaid.Decimal, t.AmountPaid.Valid = quote.Fee, true
		t.PaymentStatus = domain.PaymentPaid
		t.Status = domain.TicketCompleted
		ticket = t

		after(func(ctx context.Context) { s.notify(ctx, t.FacilityID) })

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Exited(string(ticket.VehicleType), quote.Strategy, quote.Fee)
	s.logger.Info("vehicle exited",
		"ticket", ticket.Number,
		"plate", ticket.LicensePlate,
		"strategy", quote.Strategy,
		"fee", quote.Fee.StringFixed(2),
	)

	return ticket, nil
}

// Cancel closes an active ticket without charging it and frees the spot.
// The payment status is left as it is.
func (s *Service) Cancel(ctx context.Context, number string) (*domain.Ticket, error) {
	const op = "service.parking.Cancel"

	var ticket *domain.Ticket

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		t, err := s.lockActive(ctx, tx, number)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := tx.Tickets().Cancel(ctx, t.ID, now); err != nil {
			return translate(err)
		}

		if err := s.alloc.Release(ctx, tx, t.FacilityID, t.SpotID); err != nil {
			return err
		}

		t.ExitTime.SetValid(now)
		t.Status = domain.TicketCancelled
		ticket = t

		after(func(ctx context.Context) { s.notify(ctx, t.FacilityID) })

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Warn("ticket cancelled", "ticket", ticket.Number, "plate", ticket.LicensePlate)

	return ticket, nil
}

// FindSpot returns the spot Park would claim right now, without claiming it.
func (s *Service) FindSpot(ctx context.Context, facilityID int64, v domain.VehicleType) (*domain.Spot, error) {
	const op = "service.parking.FindSpot"

	if !v.Valid() {
		return nil, fmt.Errorf("%s: %q: %w", op, v, ErrInvalidVehicleType)
	}

	spot, err := s.alloc.Preview(ctx, s.store, facilityID, v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return spot, nil
}

func (s *Service) IsVehicleParked(ctx context.Context, plate string) (bool, error) {
	const op = "service.parking.IsVehicleParked"

	active, err := s.store.Tickets().ListActiveByPlate(ctx, domain.NormalizePlate(plate))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return len(active) > 0, nil
}

func (s *Service) lockActive(ctx context.Context, tx repository.Tx, number string) (*domain.Ticket, error) {
	t, err := repository.LockTicket(ctx, tx, number)
	if err != nil {
		return nil, translate(err)
	}

	if !t.IsActive() {
		return nil, fmt.Errorf("ticket %s is %s: %w", t.Number, t.Status, ErrTicketNotActive)
	}

	return t, nil
}

func (s *Service) uniqueNumber(ctx context.Context, tx repository.Tx) (string, error) {
	for attempt := 1; attempt <= s.cfg.TicketNumberAttempts; attempt++ {
		number := s.newNumber()

		exists, err := tx.Tickets().NumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}

		s.logger.Warn("ticket number collision", "number", number, "attempt", attempt)
	}

	s.logger.Error("ticket number generator exhausted", "attempts", s.cfg.TicketNumberAttempts)

	return "", ErrTicketNumberExhausted
}

func (s *Service) notify(ctx context.Context, facilityID int64) {
	if s.notifier != nil {
		s.notifier.FacilityChanged(ctx, facilityID)
	}
}

func (s *Service) rejected(plate string, in ParkInput, err error) {
	reason := ""
	switch {
	case errors.Is(err, ErrAlreadyParked):
		reason = "already_parked"
	case errors.Is(err, ErrFacilityFull):
		reason = "facility_full"
	case errors.Is(err, ErrNoCompatibleSpot):
		reason = "no_compatible_spot"
	case errors.Is(err, ErrFacilityNotFound):
		reason = "facility_not_found"
	case errors.Is(err, ErrFacilityInactive):
		reason = "facility_inactive"
	default:
		return
	}

	s.metrics.Rejected(reason)
	s.logger.Info("park rejected",
		"plate", plate,
		"vehicle_type", in.VehicleType,
		"facility_id", in.FacilityID,
		"reason", reason,
	)
}

func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrTicketNotFound
	case errors.Is(err, repository.ErrStaleState):
		return ErrTicketNotActive
	}
	return err
}
