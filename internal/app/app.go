// Package app assembles the system: store, cache tiers, providers, engines,
// realtime hub, watch registry, and background workers.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/availability"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/cache"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/clock"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/config"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/demand"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/hub"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/loyalty"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/metrics"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/pricing"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/providers"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/store"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/store/postgres"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/watch"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/workers"
)

// App is the assembled system.
type App struct {
	Env     config.Env
	Cfg     *config.Config
	Metrics *metrics.Registry
	Clock   clock.Clock

	Store        store.Gateway
	Cache        *cache.Hybrid
	Competitor   providers.CompetitorProvider
	Demand       *demand.Tracker
	Pricing      *pricing.Engine
	Availability *availability.Service
	Hub          *hub.Hub
	Watches      *watch.Registry
	Loyalty      *loyalty.Engine
	Scheduler    *workers.Scheduler

	opsServer *http.Server
	hubServer *http.Server
}

// New wires the full system. Construction touches the store and the cache
// backend, so it can fail.
func New(ctx context.Context, env config.Env, cfg *config.Config) (*App, error) {
	clk := clock.Real()
	reg := metrics.New()

	gw, err := postgres.Connect(ctx, env.PostgresDSN)
	if err != nil {
		return nil, err
	}

	driver := cache.NewRedisDriver(env.RedisAddr, env.RedisPassword, cfg.Cache.OpTimeout)
	local := cache.NewLocal(cfg.Cache.LocalCleanupInterval)
	hybrid := cache.NewHybrid(driver, local, cfg.Cache, reg, clk)

	currency := providers.WrapCurrency(providers.NewStaticCurrency(defaultRates()))
	competitor := providers.WrapCompetitor(providers.NewStaticCompetitor(nil))

	verifier := hub.NewVerifier(env.AuthSecret)
	h := hub.New(verifier, cfg.Hub, reg, clk, env.CORSOrigin)

	watches := watch.NewRegistry(clk, cfg.Hub.WatchExpiry)

	engine := pricing.New(gw, gw, hybrid, nil, competitor, currency, clk, cfg.Pricing, reg)
	avail := availability.New(gw, gw, gw, hybrid, engine, clk, cfg.Availability, reg)

	tracker := demand.New(hybrid, clk, cfg.Pricing.OccupancyThresholds, avail.Recount, avail.Capacity, reg)
	avail.SetDemand(tracker)
	engine.SetDemand(tracker)

	loyal := loyalty.New(gw, cfg.Loyalty, clk, reg)

	a := &App{
		Env:          env,
		Cfg:          cfg,
		Metrics:      reg,
		Clock:        clk,
		Store:        gw,
		Cache:        hybrid,
		Competitor:   competitor,
		Demand:       tracker,
		Pricing:      engine,
		Availability: avail,
		Hub:          h,
		Watches:      watches,
		Loyalty:      loyal,
		Scheduler:    workers.NewScheduler(clk, reg),
	}
	a.wireSinks()
	a.registerJobs()
	return a, nil
}

// defaultRates seeds the static currency provider until a live rate feed is
// configured.
func defaultRates() map[string]float64 {
	return map[string]float64{
		"EUR/USD": 1.09,
		"EUR/GBP": 0.85,
		"EUR/CHF": 0.94,
		"USD/EUR": 0.92,
	}
}

func (a *App) registerJobs() {
	horizon := a.Cfg.Cache.WarmingHorizonDays
	a.Scheduler.Add(workers.DemandRefreshJob(a.Store, a.Demand, a.Clock, a.Cfg.Workers, horizon))
	a.Scheduler.Add(workers.CacheWarmingJob(a.Store, a.Availability, a.Cfg.Workers))
	a.Scheduler.Add(workers.CompetitorRefreshJob(a.Store, a.Competitor, a.Cache, a.Cfg.Workers))
	a.Scheduler.Add(workers.CacheSweepJob(a.Cache, a.Watches, a.Cfg.Workers))
	a.Scheduler.Add(workers.MetricRolloverJob(a.Store, a.Metrics, a.Clock, a.Cfg.Workers, &rollupNotifier{hub: a.Hub, clk: a.Clock}))
	a.Scheduler.Add(workers.LoyaltyExpiryJob(a.Loyalty, a.Cfg.Workers))
}

// OnBookingChanged is the external mutation entry point: it refreshes
// availability and, on completion, accrues loyalty points.
func (a *App) OnBookingChanged(ctx context.Context, booking *domain.Booking, action string) error {
	if err := a.Availability.OnBookingChanged(ctx, booking, action); err != nil {
		return err
	}
	if booking.Status == domain.BookingCompleted {
		if _, err := a.Loyalty.Accrue(ctx, booking); err != nil {
			return err
		}
	}
	return nil
}

// Run serves the realtime and ops endpoints and drives the workers until the
// context ends, then tears everything down in dependency order.
func (a *App) Run(ctx context.Context) error {
	hubRouter := mux.NewRouter()
	hubRouter.Handle("/ws", a.Hub)
	a.hubServer = &http.Server{Addr: a.Env.HubAddr, Handler: hubRouter}

	opsRouter := mux.NewRouter()
	opsRouter.Handle("/metrics", a.Metrics.Handler())
	opsRouter.HandleFunc("/healthz", a.healthz)
	a.opsServer = &http.Server{Addr: a.Env.OpsAddr, Handler: opsRouter}

	errc := make(chan error, 2)
	go func() {
		log.Info().Str("addr", a.Env.HubAddr).Msg("hub listening")
		if err := a.hubServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	go func() {
		log.Info().Str("addr", a.Env.OpsAddr).Msg("ops listening")
		if err := a.opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	go a.Hub.Run(ctx)
	go a.Scheduler.Start(ctx)

	select {
	case <-ctx.Done():
	case err := <-errc:
		log.Error().Err(err).Msg("server failed")
		return err
	}
	return a.Shutdown()
}

// Shutdown tears the system down: ingress first, then fan-out, then the
// derived state layers, the store last.
func (a *App) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.hubServer != nil {
		_ = a.hubServer.Shutdown(shutdownCtx)
	}
	if a.opsServer != nil {
		_ = a.opsServer.Shutdown(shutdownCtx)
	}
	if err := a.Cache.Close(); err != nil {
		log.Warn().Err(err).Msg("cache shutdown failed")
	}
	if err := a.Store.Close(); err != nil {
		log.Warn().Err(err).Msg("store shutdown failed")
	}
	log.Info().Msg("shutdown complete")
	return nil
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	if err := a.Store.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
	}
	if err := a.Cache.Ping(ctx); err != nil {
		// Degraded but serving: the local tier still answers.
		log.Warn().Err(err).Msg("shared cache unhealthy")
	}
	w.WriteHeader(status)
}
