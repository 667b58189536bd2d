package service

import (
	"log/slog"

	"github.com/kirinyoku/parkgo/internal/clock"
	"github.com/kirinyoku/parkgo/internal/metrics"
	"github.com/kirinyoku/parkgo/internal/pricing"
	"github.com/kirinyoku/parkgo/internal/repository"
	redisrepo "github.com/kirinyoku/parkgo/internal/repository/redis"
	"github.com/kirinyoku/parkgo/internal/service/admin"
	"github.com/kirinyoku/parkgo/internal/service/billing"
	"github.com/kirinyoku/parkgo/internal/service/parking"
	"github.com/kirinyoku/parkgo/internal/service/query"
)

type Services struct {
	Admin   *admin.Service
	Parking *parking.Service
	Billing *billing.Service
	Query   *query.Service
}

type Config struct {
	Parking parking.Config
	Query   query.Config
}

// Deps are the collaborators shared by the services. Cache, Notifier and
// Limiter are optional and stay nil when Redis is disabled.
type Deps struct {
	Store    repository.Store
	Pricing  *pricing.Engine
	Clock    clock.Clock
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
	Cache    *redisrepo.Cache
	Notifier *redisrepo.ChangeNotifier
	Limiter  *redisrepo.SlidingWindowLimiter
}

func NewServices(d Deps, cfg Config) *Services {
	opts := []parking.Option{parking.WithMetrics(d.Metrics)}

	// A typed nil must not reach the interface fields.
	var notifier admin.Notifier
	if d.Notifier != nil {
		notifier = d.Notifier
		opts = append(opts, parking.WithNotifier(d.Notifier))
	}
	if d.Limiter != nil {
		opts = append(opts, parking.WithLimiter(d.Limiter))
	}

	return &Services{
		Admin:   admin.New(d.Store, notifier, d.Logger),
		Parking: parking.New(d.Store, d.Pricing, d.Clock, d.Logger, cfg.Parking, opts...),
		Billing: billing.New(d.Store, d.Pricing, d.Clock, d.Logger),
		Query:   query.New(d.Store, d.Cache, d.Clock, cfg.Query),
	}
}
