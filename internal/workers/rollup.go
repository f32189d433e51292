package workers

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/clock"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/config"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/metrics"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/store"
)

// MetricRolloverJob recomputes each hotel's advisory performance snapshot
// once per hotel-local day: RevPAR, ADR, cache hit rates, and a health grade.
// The job ticks frequently but only rolls a hotel over after its local
// midnight has passed since the previous snapshot.
func MetricRolloverJob(gw store.Gateway, reg *metrics.Registry, clk clock.Clock, cfg config.Workers, notifier Notifier) Job {
	return Job{
		Name:     "metric-rollover",
		Interval: cfg.MetricRollover,
		Run: func(ctx context.Context) error {
			hotels, err := gw.ListHotels(ctx)
			if err != nil {
				return err
			}
			snapshot, err := reg.Snapshot()
			if err != nil {
				log.Warn().Err(err).Msg("metric snapshot failed, hit rates omitted")
				snapshot = map[string]float64{}
			}
			for i := range hotels {
				hotel := &hotels[i]
				if !dueForRollover(hotel, clk) {
					continue
				}
				if err := rollupHotel(ctx, gw, hotel, snapshot, clk, notifier); err != nil {
					log.Warn().Err(err).Str("hotel", string(hotel.ID)).Msg("metric rollover failed")
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
			return nil
		},
	}
}

// dueForRollover reports whether the hotel-local calendar date advanced past
// the last snapshot's date.
func dueForRollover(hotel *domain.Hotel, clk clock.Clock) bool {
	if hotel.Metrics == nil {
		return true
	}
	loc := hotel.Location()
	last := hotel.Metrics.SnapshotAt.In(loc)
	now := clk.Now().In(loc)
	ly, lm, ld := last.Date()
	ny, nm, nd := now.Date()
	return ny > ly || (ny == ly && (nm > lm || (nm == lm && nd > ld)))
}

func rollupHotel(ctx context.Context, gw store.Gateway, hotel *domain.Hotel, snapshot map[string]float64, clk clock.Clock, notifier Notifier) error {
	loc := hotel.Location()
	now := clk.Now()
	since := now.AddDate(0, 0, -1)

	rooms, err := gw.RoomsByHotel(ctx, hotel.ID)
	if err != nil {
		return err
	}
	totalRooms := 0
	for _, r := range rooms {
		if r.Status != domain.RoomOutOfOrder {
			totalRooms++
		}
	}

	completed, err := gw.BookingsCompletedSince(ctx, since)
	if err != nil {
		return err
	}
	revenue := 0.0
	nightsSold := 0
	for i := range completed {
		b := &completed[i]
		if b.HotelID != hotel.ID {
			continue
		}
		revenue += b.TotalPrice
		nights := b.Nights(loc)
		for _, line := range b.Rooms {
			nightsSold += nights * line.Quantity
		}
	}

	m := &domain.PerformanceMetrics{
		CacheHitRates: map[string]float64{
			"shared": metrics.HitRate(
				snapshot["hotelcore_cache_hits_total"],
				snapshot["hotelcore_cache_misses_total"]),
		},
		SnapshotAt: now,
	}
	if totalRooms > 0 {
		m.RevPAR = revenue / float64(totalRooms)
	}
	if nightsSold > 0 {
		m.ADR = revenue / float64(nightsSold)
	}
	m.Health = gradeHealth(m)

	if err := gw.UpdatePerformanceMetrics(ctx, hotel.ID, m); err != nil {
		return err
	}
	if notifier != nil {
		notifier.RevenueOptimization(hotel.ID, map[string]any{
			"hotelId":    string(hotel.ID),
			"revPar":     m.RevPAR,
			"adr":        m.ADR,
			"revenue":    revenue,
			"nightsSold": nightsSold,
			"health":     string(m.Health),
		})
	}
	return nil
}

// gradeHealth derives the rollup health grade. Hit rate below half degrades;
// a silent revenue day with a working cache is still GOOD.
func gradeHealth(m *domain.PerformanceMetrics) domain.HealthStatus {
	rate := m.CacheHitRates["shared"]
	switch {
	case rate < 0.25 && rate > 0:
		return domain.HealthCritical
	case rate < 0.5 && rate > 0:
		return domain.HealthDegraded
	default:
		return domain.HealthGood
	}
}
