package workers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/availability"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/cache"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/clock"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/config"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/demand"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/loyalty"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/providers"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/store"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/watch"
)

// Notifier receives rollup events for fan-out.
type Notifier interface {
	RevenueOptimization(hotelID domain.HotelID, payload map[string]any)
}

// DemandRefreshJob forces an authoritative recount of every demand counter
// inside the warming horizon.
func DemandRefreshJob(hotels store.HotelStore, tracker *demand.Tracker, clk clock.Clock, cfg config.Workers, horizonDays int) Job {
	return Job{
		Name:     "demand-refresh",
		Interval: cfg.DemandRefresh,
		Run: func(ctx context.Context) error {
			list, err := hotels.ListHotels(ctx)
			if err != nil {
				return err
			}
			now := clk.Now()
			for i := range list {
				hotel := &list[i]
				loc := hotel.Location()
				today := midnight(now.In(loc))
				for day := 0; day < horizonDays; day++ {
					date := today.AddDate(0, 0, day)
					for _, rt := range domain.AllRoomTypes {
						if err := tracker.Refresh(ctx, hotel.ID, rt, date); err != nil {
							log.Warn().Err(err).
								Str("hotel", string(hotel.ID)).
								Str("room_type", string(rt)).
								Msg("demand refresh failed for counter")
						}
						if ctx.Err() != nil {
							return ctx.Err()
						}
					}
				}
			}
			return nil
		},
	}
}

// CacheWarmingJob precomputes availability and prices for warming-enabled
// hotels over their horizon.
func CacheWarmingJob(hotels store.HotelStore, svc *availability.Service, cfg config.Workers) Job {
	return Job{
		Name:     "cache-warming",
		Interval: cfg.CacheWarming,
		Run: func(ctx context.Context) error {
			list, err := hotels.ListHotels(ctx)
			if err != nil {
				return err
			}
			for i := range list {
				hotel := &list[i]
				if !hotel.Cache.WarmingEnabled {
					continue
				}
				if err := svc.Warm(ctx, hotel.ID, hotel.Cache.WarmingHorizonDays); err != nil {
					log.Warn().Err(err).Str("hotel", string(hotel.ID)).Msg("cache warming failed")
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
			return nil
		},
	}
}

// CompetitorRefreshJob primes the analytics cache with fresh competitor
// snapshots so the pricing hot path never waits on the provider.
func CompetitorRefreshJob(hotels store.HotelStore, provider providers.CompetitorProvider, c *cache.Hybrid, cfg config.Workers) Job {
	return Job{
		Name:     "competitor-refresh",
		Interval: cfg.CompetitorRefresh,
		Run: func(ctx context.Context) error {
			list, err := hotels.ListHotels(ctx)
			if err != nil {
				return err
			}
			for i := range list {
				hotel := &list[i]
				snap, err := provider.Fetch(ctx, hotel.ID)
				if err != nil {
					log.Warn().Err(err).Str("hotel", string(hotel.ID)).Msg("competitor refresh failed")
					continue
				}
				if snap == nil {
					continue
				}
				raw, err := json.Marshal(snap)
				if err != nil {
					continue
				}
				key := "analytics:" + string(hotel.ID) + ":competitor"
				c.Set(ctx, key, raw, cache.CategoryAnalytics, &hotel.Cache, "analytics:"+string(hotel.ID))
			}
			return nil
		},
	}
}

// CacheSweepJob evicts expired local entries, processes scheduled
// invalidations, and prunes expired price watches.
func CacheSweepJob(c *cache.Hybrid, watches *watch.Registry, cfg config.Workers) Job {
	return Job{
		Name:     "cache-sweep",
		Interval: cfg.CacheSweep,
		Run: func(ctx context.Context) error {
			flushed := c.FlushLocal()
			swept := c.SweepScheduled(ctx, nil)
			pruned := 0
			if watches != nil {
				pruned = watches.Sweep()
			}
			log.Debug().
				Int("local_flushed", flushed).
				Int("scheduled_swept", swept).
				Int("watches_pruned", pruned).
				Msg("cache sweep complete")
			return nil
		},
	}
}

// LoyaltyExpiryJob runs the daily points expiry scan.
func LoyaltyExpiryJob(engine *loyalty.Engine, cfg config.Workers) Job {
	return Job{
		Name:     "loyalty-expiry",
		Interval: cfg.LoyaltyExpiryScan,
		Run: func(ctx context.Context) error {
			result, err := engine.ScanExpiry(ctx)
			if err != nil {
				return err
			}
			log.Info().
				Int("alerts", result.AlertsSent).
				Int("expired_tx", result.TxExpired).
				Int64("points_expired", result.PointsExpired).
				Msg("loyalty expiry scan complete")
			return nil
		},
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
