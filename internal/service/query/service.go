package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/parkgo/internal/clock"
	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/repository"
	redisrepo "github.com/kirinyoku/parkgo/internal/repository/redis"
)

type Config struct {
	FacilitySummaryTTL time.Duration
	SpotsTTL           time.Duration
}

type Service struct {
	store repository.Store
	cache *redisrepo.Cache
	clock clock.Clock
	cfg   Config
}

// New returns the read side. cache may be nil, reads then go to the store.
func New(store repository.Store, cache *redisrepo.Cache, clk clock.Clock, cfg Config) *Service {
	if cfg.FacilitySummaryTTL <= 0 {
		cfg.FacilitySummaryTTL = 15 * time.Second
	}

	if cfg.SpotsTTL <= 0 {
		cfg.SpotsTTL = 15 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		clock: clk,
		cfg:   cfg,
	}
}

// GetFacility retrieves a facility by its ID, utilizing a caching layer to
// improve performance.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ID of the facility to retrieve.
//
// Returns:
//   - *domain.Facility: the facility with its current counters.
//   - error: query.ErrFacilityNotFound if the facility is not found.
func (s *Service) GetFacility(ctx context.Context, id int64) (*domain.Facility, error) {
	const op = "service.query.GetFacility"

	f, err := cached(ctx, s, redisrepo.KeyFacilitySummary(id), s.cfg.FacilitySummaryTTL,
		func(ctx context.Context) (domain.Facility, error) {
			f, err := s.store.Facilities().Get(ctx, id)
			if err != nil {
				return domain.Facility{}, translate(err, ErrFacilityNotFound)
			}
			return *f, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &f, nil
}

// ListFacilities lists facilities matching filter, ordered by ID.
func (s *Service) ListFacilities(ctx context.Context, filter domain.FacilityFilter) ([]domain.Facility, error) {
	const op = "service.query.ListFacilities"

	out, err := s.store.Facilities().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ListFacilitiesWithAvailability lists active facilities with at least one
// free spot.
func (s *Service) ListFacilitiesWithAvailability(ctx context.Context) ([]domain.Facility, error) {
	return s.ListFacilities(ctx, domain.FacilityFilter{ActiveOnly: true, WithAvailability: true})
}

// ListSpots lists the spots of a facility ordered by floor and spot number.
//
// Returns:
//   - error: query.ErrFacilityNotFound if the facility is not found.
func (s *Service) ListSpots(ctx context.Context, facilityID int64, onlyAvailable bool) ([]domain.Spot, error) {
	const op = "service.query.ListSpots"

	if _, err := s.GetFacility(ctx, facilityID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	spots, err := cached(ctx, s, redisrepo.KeyFacilitySpots(facilityID, onlyAvailable), s.cfg.SpotsTTL,
		func(ctx context.Context) ([]domain.Spot, error) {
			return s.store.Spots().List(ctx, facilityID, onlyAvailable)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return spots, nil
}

// GetTicket retrieves a ticket by its number.
//
// Returns:
//   - error: query.ErrTicketNotFound if the ticket is not found.
func (s *Service) GetTicket(ctx context.Context, number string) (*domain.Ticket, error) {
	const op = "service.query.GetTicket"

	t, err := s.store.Tickets().GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err, ErrTicketNotFound))
	}

	return t, nil
}

// ListTickets lists every ticket of a facility by entry time.
func (s *Service) ListTickets(ctx context.Context, facilityID int64) ([]domain.Ticket, error) {
	const op = "service.query.ListTickets"

	if _, err := s.store.Facilities().Get(ctx, facilityID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err, ErrFacilityNotFound))
	}

	out, err := s.store.Tickets().ListByFacility(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ListActiveTickets lists the active tickets of a license plate. There is at
// most one.
func (s *Service) ListActiveTickets(ctx context.Context, plate string) ([]domain.Ticket, error) {
	const op = "service.query.ListActiveTickets"

	out, err := s.store.Tickets().ListActiveByPlate(ctx, domain.NormalizePlate(plate))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ListOverdueTickets lists active tickets of a facility parked for longer
// than olderThan.
func (s *Service) ListOverdueTickets(ctx context.Context, facilityID int64, olderThan time.Duration) ([]domain.Ticket, error) {
	const op = "service.query.ListOverdueTickets"

	if _, err := s.store.Facilities().Get(ctx, facilityID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err, ErrFacilityNotFound))
	}

	out, err := s.store.Tickets().ListOverdue(ctx, facilityID, s.clock.Now().Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func cached[T any](
	ctx context.Context,
	s *Service,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if s.cache == nil {
		return loader(ctx)
	}
	return redisrepo.ReadThrough(ctx, s.cache, key, ttl, loader)
}

func translate(err, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return err
}
