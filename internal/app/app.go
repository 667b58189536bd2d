package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirinyoku/parkgo/internal/clock"
	"github.com/kirinyoku/parkgo/internal/config"
	"github.com/kirinyoku/parkgo/internal/metrics"
	"github.com/kirinyoku/parkgo/internal/postgres"
	"github.com/kirinyoku/parkgo/internal/pricing"
	redisx "github.com/kirinyoku/parkgo/internal/redis"
	"github.com/kirinyoku/parkgo/internal/repository"
	"github.com/kirinyoku/parkgo/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/parkgo/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/parkgo/internal/repository/redis"
	"github.com/kirinyoku/parkgo/internal/service"
	httpgin "github.com/kirinyoku/parkgo/internal/transport/http/gin"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	pubsub     *redisrepo.FacilitiesPubSub
	cache      *redisrepo.Cache
	closers    []func()
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	deps := service.Deps{
		Store:   store,
		Pricing: pricing.NewEngine(cfg.Parking.Location, logger),
		Clock:   clock.Real{},
		Logger:  logger,
		Metrics: metrics.New(),
	}

	var replays *redisrepo.ParkReplays

	if cfg.Redis.Enabled {
		rdb, err := redisx.New(ctx, redisx.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })

		a.cache = redisrepo.NewCache(rdb)
		a.pubsub = redisrepo.NewFacilitiesPubSub(rdb)

		deps.Cache = a.cache
		deps.Notifier = redisrepo.NewChangeNotifier(a.cache, a.pubsub, logger)
		deps.Limiter = redisrepo.NewSlidingWindowLimiter(rdb, "park", cfg.Parking.RateLimit, time.Minute)
		replays = redisrepo.NewParkReplays(rdb, cfg.Parking.IdempotencyTTL)
	} else {
		logger.Warn("redis disabled: no cache, rate limiting or idempotency")
	}

	services := service.NewServices(deps, service.Config{})

	router := httpgin.NewRouter(httpgin.RouterDeps{
		Services:    services,
		Replays:     replays,
		Metrics:     deps.Metrics.Handler(),
		Logger:      logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	if a.cfg.Store.Driver == config.StoreDriverMemory {
		a.logger.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil
	}

	pool, err := postgres.New(ctx, postgres.Config{
		Host:     a.cfg.Postgres.Host,
		Port:     a.cfg.Postgres.Port,
		User:     a.cfg.Postgres.User,
		Password: a.cfg.Postgres.Password,
		Database: a.cfg.Postgres.Name,
		SSLMode:  a.cfg.Postgres.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	if err := postgresrepo.Migrate(ctx, pool, a.logger); err != nil {
		return nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}

	return postgresrepo.NewStore(pool), nil
}

// Run serves HTTP until ctx is cancelled or the process is signalled, then
// shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Changes committed by other replicas invalidate the local cache.
	if a.pubsub != nil {
		g.Go(func() error {
			err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, facilityID int64) {
				if err := a.cache.InvalidateFacility(ctx, facilityID); err != nil {
					a.logger.Warn("cache invalidation failed", "facility_id", facilityID, "error", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("facility change subscriber: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	err := g.Wait()
	a.Close()

	return err
}

// Close releases the connections opened by New.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
