package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/clock"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/config"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/metrics"
)

// Policy controls which tiers a category uses.
type Policy struct {
	UseShared   bool
	UseFallback bool
}

// defaultPolicy enables both tiers for every category.
func defaultPolicy(Category) Policy {
	return Policy{UseShared: true, UseFallback: true}
}

// Stats carries tier counters for tests and the ops surface. The prometheus
// registry mirrors these.
type Stats struct {
	SharedHits    int64
	SharedMisses  int64
	RedisErrors   int64
	LocalHits     int64
	LocalMisses   int64
	Sets          int64
	Invalidations int64
}

// Hybrid fronts every cached read with a shared remote tier plus a
// per-process fallback tier. A shared-store outage degrades to the local
// tier and never blocks a request path.
type Hybrid struct {
	driver  Driver
	local   *Local
	cfg     config.Cache
	metrics *metrics.Registry
	clk     clock.Clock
	policy  func(Category) Policy
	sf      singleflight.Group

	sharedHits    atomic.Int64
	sharedMisses  atomic.Int64
	redisErrors   atomic.Int64
	localHits     atomic.Int64
	localMisses   atomic.Int64
	sets          atomic.Int64
	invalidations atomic.Int64

	mu      sync.Mutex
	delayed map[string]*time.Timer
	pending map[string]time.Time // tags awaiting the scheduled sweeper
}

// NewHybrid composes the two tiers.
func NewHybrid(driver Driver, local *Local, cfg config.Cache, reg *metrics.Registry, clk clock.Clock) *Hybrid {
	if clk == nil {
		clk = clock.Real()
	}
	return &Hybrid{
		driver:  driver,
		local:   local,
		cfg:     cfg,
		metrics: reg,
		clk:     clk,
		policy:  defaultPolicy,
		delayed: make(map[string]*time.Timer),
		pending: make(map[string]time.Time),
	}
}

// resolveTTL picks the entry TTL: per-hotel customTTL wins, then the default
// category table, then a 5 minute floor.
func (h *Hybrid) resolveTTL(cat Category, subkind string, settings *domain.CacheSettings) time.Duration {
	if settings != nil && settings.CustomTTL != nil {
		if sub, ok := settings.CustomTTL[string(cat)]; ok {
			if secs, ok := sub[subkind]; ok && secs > 0 {
				return time.Duration(secs) * time.Second
			}
			if secs, ok := sub["default"]; ok && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	if ttl, ok := h.cfg.DefaultTTL[string(cat)]; ok {
		return ttl
	}
	return 5 * time.Minute
}

func (h *Hybrid) compression(settings *domain.CacheSettings) (string, int) {
	algo, threshold := h.cfg.CompressionAlgorithm, h.cfg.CompressionThreshold
	if settings != nil {
		if settings.CompressionAlgorithm != "" {
			algo = settings.CompressionAlgorithm
		}
		if settings.CompressionThreshold > 0 {
			threshold = settings.CompressionThreshold
		}
	}
	return algo, threshold
}

// Get reads a key, shared tier first, falling back to the local tier on miss
// or error per the category policy.
func (h *Hybrid) Get(ctx context.Context, key string, cat Category) ([]byte, bool) {
	pol := h.policy(cat)

	if pol.UseShared {
		frame, found, err := h.driver.Get(ctx, key)
		switch {
		case err != nil:
			h.redisErrors.Add(1)
			h.metrics.CacheErrors.WithLabelValues("shared", string(cat)).Inc()
			log.Warn().Err(err).Str("key", key).Msg("shared cache get failed, falling back to local")
		case found:
			val, derr := decodeFrame(frame)
			if derr != nil {
				h.metrics.CacheErrors.WithLabelValues("shared", string(cat)).Inc()
				log.Error().Err(derr).Str("key", key).Msg("corrupt cache frame, treating as miss")
			} else {
				h.sharedHits.Add(1)
				h.metrics.CacheHits.WithLabelValues("shared", string(cat)).Inc()
				return val, true
			}
		default:
			h.sharedMisses.Add(1)
			h.metrics.CacheMisses.WithLabelValues("shared", string(cat)).Inc()
		}
	}

	if pol.UseFallback {
		if val, found := h.local.Get(key); found {
			h.localHits.Add(1)
			h.metrics.CacheHits.WithLabelValues("local", string(cat)).Inc()
			return val, true
		}
		h.localMisses.Add(1)
		h.metrics.CacheMisses.WithLabelValues("local", string(cat)).Inc()
	}

	return nil, false
}

// Set writes to both tiers per the category policy. A shared-tier write
// failure is logged and does not fail the call; the local tier still holds
// the value.
func (h *Hybrid) Set(ctx context.Context, key string, val []byte, cat Category, settings *domain.CacheSettings, tags ...string) {
	h.SetTTL(ctx, key, val, cat, h.resolveTTL(cat, "default", settings), settings, tags...)
}

// SetTTL is Set with an explicit TTL override.
func (h *Hybrid) SetTTL(ctx context.Context, key string, val []byte, cat Category, ttl time.Duration, settings *domain.CacheSettings, tags ...string) {
	pol := h.policy(cat)
	h.sets.Add(1)

	if pol.UseShared {
		algo, threshold := h.compression(settings)
		frame, err := encodeFrame(val, algo, threshold)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("cache frame encode failed")
		} else if err := h.driver.Set(ctx, key, frame, ttl, tags...); err != nil {
			h.redisErrors.Add(1)
			h.metrics.CacheErrors.WithLabelValues("shared", string(cat)).Inc()
			log.Warn().Err(err).Str("key", key).Msg("shared cache set failed, local tier only")
		} else {
			h.metrics.CacheSets.WithLabelValues("shared", string(cat)).Inc()
		}
	}

	if pol.UseFallback {
		h.local.Set(key, val, ttl, tags...)
		h.metrics.CacheSets.WithLabelValues("local", string(cat)).Inc()
	}
}

// GetOrCompute returns the cached value or computes and stores it. Concurrent
// computations of the same key collapse into one via single-flight. A failed
// compute is never cached. The bool reports whether the value came from cache.
func (h *Hybrid) GetOrCompute(ctx context.Context, key string, cat Category, settings *domain.CacheSettings, tags []string, compute func(ctx context.Context) ([]byte, error)) ([]byte, bool, error) {
	if val, found := h.Get(ctx, key, cat); found {
		return val, true, nil
	}

	val, err, _ := h.sf.Do(key, func() (interface{}, error) {
		// Re-check under the flight: another caller may have populated it.
		if val, found := h.Get(ctx, key, cat); found {
			return val, nil
		}
		fresh, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		h.Set(ctx, key, fresh, cat, settings, tags...)
		return fresh, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]byte), false, nil
}

// Invalidate tears down every entry under the given tags following the
// hotel's invalidation strategy. Both tiers are hit before an IMMEDIATE
// invalidation returns.
func (h *Hybrid) Invalidate(ctx context.Context, strategy domain.InvalidationStrategy, hotelID domain.HotelID, tags ...string) {
	for _, tag := range tags {
		switch strategy {
		case domain.InvalidateDelayed:
			h.scheduleDelayed(tag)
		case domain.InvalidateScheduled:
			h.markPending(tag)
		case domain.InvalidateSmart:
			// Availability drops at once; pricing coalesces; dependents cascade.
			switch CategoryOf(tag) {
			case CategoryPricing:
				h.scheduleDelayed(tag)
			default:
				h.invalidateNow(ctx, tag)
			}
			for _, dep := range CascadeFor(hotelID, tag) {
				h.invalidateNow(ctx, dep)
			}
		default: // IMMEDIATE
			h.invalidateNow(ctx, tag)
		}
	}
}

// InvalidatePrefix deletes by key prefix on both tiers.
func (h *Hybrid) InvalidatePrefix(ctx context.Context, prefix string) {
	h.invalidations.Add(1)
	if _, err := h.driver.DelByPrefix(ctx, prefix); err != nil {
		h.redisErrors.Add(1)
		log.Warn().Err(err).Str("prefix", prefix).Msg("shared cache prefix invalidation failed")
	}
	h.local.DelByPrefix(prefix)
}

// InvalidateKey deletes a single key from both tiers.
func (h *Hybrid) InvalidateKey(ctx context.Context, key string) {
	h.invalidations.Add(1)
	if err := h.driver.Del(ctx, key); err != nil {
		h.redisErrors.Add(1)
		log.Warn().Err(err).Str("key", key).Msg("shared cache key invalidation failed")
	}
	h.local.Del(key)
}

func (h *Hybrid) invalidateNow(ctx context.Context, tag string) {
	h.invalidations.Add(1)
	if _, err := h.driver.DelByTag(ctx, tag); err != nil {
		h.redisErrors.Add(1)
		log.Warn().Err(err).Str("tag", tag).Msg("shared cache tag invalidation failed")
	}
	h.local.DelByTag(tag)
}

// scheduleDelayed coalesces invalidation bursts: the first trigger arms a
// timer, subsequent triggers within the window are absorbed.
func (h *Hybrid) scheduleDelayed(tag string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, armed := h.delayed[tag]; armed {
		return
	}
	delay := h.cfg.DelayedInvalidation
	h.delayed[tag] = time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.OpTimeout)
		defer cancel()
		h.invalidateNow(ctx, tag)

		h.mu.Lock()
		delete(h.delayed, tag)
		h.mu.Unlock()
	})
}

func (h *Hybrid) markPending(tag string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending[tag] = h.clk.Now()
}

// SweepScheduled processes tags queued under the SCHEDULED strategy. The
// validate callback checks a tag against the authoritative store; stale tags
// are invalidated, fresh ones are dropped from the queue.
func (h *Hybrid) SweepScheduled(ctx context.Context, validate func(ctx context.Context, tag string) bool) int {
	h.mu.Lock()
	tags := make([]string, 0, len(h.pending))
	for tag := range h.pending {
		tags = append(tags, tag)
	}
	h.pending = make(map[string]time.Time)
	h.mu.Unlock()

	swept := 0
	for _, tag := range tags {
		if validate == nil || !validate(ctx, tag) {
			h.invalidateNow(ctx, tag)
			swept++
		}
	}
	return swept
}

// FlushLocal evicts expired local entries; used by the sweep worker.
func (h *Hybrid) FlushLocal() int {
	return h.local.Flush()
}

// Ping reports shared-tier health.
func (h *Hybrid) Ping(ctx context.Context) error {
	return h.driver.Ping(ctx)
}

// Stats returns a snapshot of tier counters.
func (h *Hybrid) Stats() Stats {
	return Stats{
		SharedHits:    h.sharedHits.Load(),
		SharedMisses:  h.sharedMisses.Load(),
		RedisErrors:   h.redisErrors.Load(),
		LocalHits:     h.localHits.Load(),
		LocalMisses:   h.localMisses.Load(),
		Sets:          h.sets.Load(),
		Invalidations: h.invalidations.Load(),
	}
}

// Close stops delayed timers and shuts down both tiers.
func (h *Hybrid) Close() error {
	h.mu.Lock()
	for tag, timer := range h.delayed {
		timer.Stop()
		delete(h.delayed, tag)
	}
	h.mu.Unlock()

	h.local.Close()
	return h.driver.Close()
}
