// Package demand maintains bounded per-(hotel, roomType, date) booking
// counters and derives the discrete demand level feeding the pricing engine.
package demand

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/cache"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/clock"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/metrics"
)

// counterTTL bounds how long a demand counter is trusted before the lazy
// recount kicks in.
const counterTTL = 15 * time.Minute

// velocityWindow is the trailing window for booking-velocity measurement.
const velocityWindow = time.Hour

// Sample is the persisted counter for one (hotel, roomType, date).
type Sample struct {
	BookingsCount int       `json:"bookingsCount"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// RecountFunc recomputes the authoritative booked-unit count from the store.
type RecountFunc func(ctx context.Context, hotelID domain.HotelID, rt domain.RoomType, date time.Time) (int, error)

// CapacityFunc returns the total sellable rooms of a type at a hotel.
type CapacityFunc func(ctx context.Context, hotelID domain.HotelID, rt domain.RoomType) (int, error)

// SurgeFunc is notified when a counter update pushes the demand level to
// VERY_HIGH or CRITICAL.
type SurgeFunc func(hotelID domain.HotelID, rt domain.RoomType, date time.Time, level domain.DemandLevel, ratio float64)

// Tracker owns the demand counters. Counter arithmetic is non-blocking; the
// only suspension points are cache operations.
type Tracker struct {
	cache      *cache.Hybrid
	clk        clock.Clock
	thresholds map[domain.DemandLevel]float64
	recount    RecountFunc
	capacity   CapacityFunc
	onSurge    SurgeFunc
	metrics    *metrics.Registry

	mu       sync.Mutex
	velocity map[string][]time.Time // (hotel, roomType) -> recent positive deltas
}

// New creates a tracker. recount and capacity are required; onSurge may be
// nil.
func New(c *cache.Hybrid, clk clock.Clock, thresholds map[domain.DemandLevel]float64, recount RecountFunc, capacity CapacityFunc, reg *metrics.Registry) *Tracker {
	return &Tracker{
		cache:      c,
		clk:        clk,
		thresholds: thresholds,
		recount:    recount,
		capacity:   capacity,
		metrics:    reg,
		velocity:   make(map[string][]time.Time),
	}
}

// OnSurge registers the surge callback.
func (t *Tracker) OnSurge(fn SurgeFunc) { t.onSurge = fn }

func velocityKey(hotelID domain.HotelID, rt domain.RoomType) string {
	return fmt.Sprintf("%s:%s", hotelID, rt)
}

// Record atomically adjusts a counter by delta and refreshes its timestamp.
// Positive deltas feed the velocity window and may trigger a surge alert.
func (t *Tracker) Record(ctx context.Context, hotelID domain.HotelID, rt domain.RoomType, date time.Time, delta int) error {
	key := cache.DemandKey(hotelID, rt, date)
	now := t.clk.Now()

	count := 0
	if raw, found := t.cache.Get(ctx, key, cache.CategoryDemand); found {
		var s Sample
		if err := json.Unmarshal(raw, &s); err == nil {
			count = s.BookingsCount
		}
	}
	count += delta
	if count < 0 {
		count = 0
	}

	if err := t.write(ctx, hotelID, key, Sample{BookingsCount: count, LastUpdated: now}); err != nil {
		return err
	}

	if delta > 0 {
		t.mu.Lock()
		vk := velocityKey(hotelID, rt)
		t.velocity[vk] = pruneBefore(append(t.velocity[vk], now), now.Add(-velocityWindow))
		t.mu.Unlock()
	}

	t.maybeSurge(ctx, hotelID, rt, date, count)
	return nil
}

func (t *Tracker) write(ctx context.Context, hotelID domain.HotelID, key string, s Sample) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal demand sample: %w", err)
	}
	t.cache.SetTTL(ctx, key, raw, cache.CategoryDemand, counterTTL, nil, cache.TagDemand(hotelID))
	return nil
}

// Count returns the current counter, triggering the lazy authoritative
// recount when the cached value has expired or was never written.
func (t *Tracker) Count(ctx context.Context, hotelID domain.HotelID, rt domain.RoomType, date time.Time) (int, error) {
	key := cache.DemandKey(hotelID, rt, date)
	if raw, found := t.cache.Get(ctx, key, cache.CategoryDemand); found {
		var s Sample
		if err := json.Unmarshal(raw, &s); err == nil {
			return s.BookingsCount, nil
		}
	}

	if t.recount == nil {
		return 0, nil
	}
	count, err := t.recount(ctx, hotelID, rt, date)
	if err != nil {
		return 0, fmt.Errorf("demand recount failed: %w", err)
	}
	if err := t.write(ctx, hotelID, key, Sample{BookingsCount: count, LastUpdated: t.clk.Now()}); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to persist recounted demand")
	}
	return count, nil
}

// Refresh forces the authoritative recount for a counter, regardless of the
// cached value's freshness. Used by the background refresh worker.
func (t *Tracker) Refresh(ctx context.Context, hotelID domain.HotelID, rt domain.RoomType, date time.Time) error {
	if t.recount == nil {
		return nil
	}
	count, err := t.recount(ctx, hotelID, rt, date)
	if err != nil {
		return fmt.Errorf("demand recount failed: %w", err)
	}
	key := cache.DemandKey(hotelID, rt, date)
	return t.write(ctx, hotelID, key, Sample{BookingsCount: count, LastUpdated: t.clk.Now()})
}

// Ratio computes the occupancy ratio for a counter against room capacity.
// A zero-capacity hotel yields ratio 0, never NaN.
func (t *Tracker) Ratio(ctx context.Context, hotelID domain.HotelID, rt domain.RoomType, date time.Time) (float64, error) {
	count, err := t.Count(ctx, hotelID, rt, date)
	if err != nil {
		return 0, err
	}
	total, err := t.capacity(ctx, hotelID, rt)
	if err != nil {
		return 0, err
	}
	if total <= 0 {
		return 0, nil
	}
	return float64(count) / float64(total), nil
}

// Level maps the occupancy ratio through the threshold table. Absent demand
// data degrades to MODERATE (multiplier 1.0).
func (t *Tracker) Level(ctx context.Context, hotelID domain.HotelID, rt domain.RoomType, date time.Time) (domain.DemandLevel, error) {
	ratio, err := t.Ratio(ctx, hotelID, rt, date)
	if err != nil {
		return domain.DemandModerate, err
	}
	return t.LevelFromRatio(ratio), nil
}

// levelOrder is ascending; each level's threshold is the ratio upper bound.
var levelOrder = []domain.DemandLevel{
	domain.DemandVeryLow,
	domain.DemandLow,
	domain.DemandModerate,
	domain.DemandHigh,
	domain.DemandVeryHigh,
	domain.DemandCritical,
}

// LevelFromRatio buckets an occupancy ratio.
func (t *Tracker) LevelFromRatio(ratio float64) domain.DemandLevel {
	for _, level := range levelOrder {
		if bound, ok := t.thresholds[level]; ok && ratio <= bound {
			return level
		}
	}
	return domain.DemandCritical
}

// VelocityMultiplier converts the trailing bookings-per-hour rate into a
// tiered multiplier.
func (t *Tracker) VelocityMultiplier(hotelID domain.HotelID, rt domain.RoomType) float64 {
	now := t.clk.Now()

	t.mu.Lock()
	vk := velocityKey(hotelID, rt)
	events := pruneBefore(t.velocity[vk], now.Add(-velocityWindow))
	t.velocity[vk] = events
	t.mu.Unlock()

	perHour := float64(len(events)) / velocityWindow.Hours()
	switch {
	case perHour > 2:
		return 1.3
	case perHour > 1:
		return 1.15
	case perHour > 0.5:
		return 1.05
	default:
		return 1.0
	}
}

func (t *Tracker) maybeSurge(ctx context.Context, hotelID domain.HotelID, rt domain.RoomType, date time.Time, count int) {
	if t.onSurge == nil {
		return
	}
	total, err := t.capacity(ctx, hotelID, rt)
	if err != nil || total <= 0 {
		return
	}
	ratio := float64(count) / float64(total)
	level := t.LevelFromRatio(ratio)
	if level == domain.DemandVeryHigh || level == domain.DemandCritical {
		t.metrics.DemandSurges.WithLabelValues(string(level)).Inc()
		t.onSurge(hotelID, rt, date, level, ratio)
	}
}

func pruneBefore(events []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(events) && events[idx].Before(cutoff) {
		idx++
	}
	return events[idx:]
}
