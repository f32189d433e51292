package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/clock"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/config"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/metrics"
)

func testCacheConfig() config.Cache {
	return config.Cache{
		DefaultTTL: map[string]time.Duration{
			"availability": time.Minute,
			"pricing":      time.Minute,
			"demand":       time.Minute,
			"occupancy":    time.Minute,
			"hotelData":    time.Minute,
			"analytics":    time.Minute,
		},
		CompressionThreshold: 1024,
		CompressionAlgorithm: "gzip",
		DelayedInvalidation:  20 * time.Millisecond,
		OpTimeout:            time.Second,
		LocalCleanupInterval: time.Minute,
	}
}

func newTestHybrid(t *testing.T) (*Hybrid, *MemDriver) {
	t.Helper()
	driver := NewMemDriver()
	local := NewLocal(time.Minute)
	h := NewHybrid(driver, local, testCacheConfig(), metrics.New(), clock.Real())
	t.Cleanup(func() { _ = h.Close() })
	return h, driver
}

func TestHybridSetGetRoundTrip(t *testing.T) {
	h, _ := newTestHybrid(t)
	ctx := context.Background()

	h.Set(ctx, "avail:H1:2025-07-10:2025-07-12", []byte("snapshot"), CategoryAvailability, nil, "avail:H1")

	val, found := h.Get(ctx, "avail:H1:2025-07-10:2025-07-12", CategoryAvailability)
	if !found {
		t.Fatal("expected hit")
	}
	if string(val) != "snapshot" {
		t.Errorf("got %q", val)
	}
}

func TestHybridFallsBackToLocalOnOutage(t *testing.T) {
	h, driver := newTestHybrid(t)
	ctx := context.Background()

	key := "avail:H1:2025-07-10:2025-07-12"
	h.Set(ctx, key, []byte("snapshot"), CategoryAvailability, nil, "avail:H1")

	driver.FailGets = true

	val, found := h.Get(ctx, key, CategoryAvailability)
	if !found {
		t.Fatal("expected local-tier hit during outage")
	}
	if string(val) != "snapshot" {
		t.Errorf("got %q", val)
	}
	if h.Stats().RedisErrors < 1 {
		t.Error("expected redisErrors counter to increase")
	}
}

func TestHybridGetOrComputeSingleFlight(t *testing.T) {
	h, _ := newTestHybrid(t)
	ctx := context.Background()

	var computes atomic.Int32
	compute := func(ctx context.Context) ([]byte, error) {
		computes.Add(1)
		time.Sleep(10 * time.Millisecond)
		return []byte("computed"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, _, err := h.GetOrCompute(ctx, "price:H1:SIMPLE:2025-07-12", CategoryPricing, nil, nil, compute)
			if err != nil {
				t.Errorf("GetOrCompute failed: %v", err)
				return
			}
			if string(val) != "computed" {
				t.Errorf("got %q", val)
			}
		}()
	}
	wg.Wait()

	if got := computes.Load(); got != 1 {
		t.Errorf("expected 1 compute, got %d", got)
	}

	// Second call is a cache hit.
	_, fromCache, err := h.GetOrCompute(ctx, "price:H1:SIMPLE:2025-07-12", CategoryPricing, nil, nil, compute)
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if !fromCache {
		t.Error("expected cached result")
	}
}

func TestHybridGetOrComputeNeverCachesErrors(t *testing.T) {
	h, _ := newTestHybrid(t)
	ctx := context.Background()

	boom := errors.New("store down")
	_, _, err := h.GetOrCompute(ctx, "k", CategoryAnalytics, nil, nil,
		func(ctx context.Context) ([]byte, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}

	val, _, err := h.GetOrCompute(ctx, "k", CategoryAnalytics, nil, nil,
		func(ctx context.Context) ([]byte, error) { return []byte("ok"), nil })
	if err != nil {
		t.Fatalf("second compute failed: %v", err)
	}
	if string(val) != "ok" {
		t.Errorf("got %q", val)
	}
}

func TestHybridInvalidateImmediate(t *testing.T) {
	h, driver := newTestHybrid(t)
	ctx := context.Background()

	h.Set(ctx, "avail:H1:a", []byte("1"), CategoryAvailability, nil, "avail:H1")
	h.Invalidate(ctx, domain.InvalidateImmediate, "H1", "avail:H1")

	if _, found := h.Get(ctx, "avail:H1:a", CategoryAvailability); found {
		t.Error("entry survived immediate invalidation")
	}
	if driver.Len() != 0 {
		t.Error("shared tier still holds entries")
	}
}

func TestHybridInvalidateDelayedCoalesces(t *testing.T) {
	h, _ := newTestHybrid(t)
	ctx := context.Background()

	h.Set(ctx, "price:H1:a", []byte("1"), CategoryPricing, nil, "price:H1")
	h.Invalidate(ctx, domain.InvalidateDelayed, "H1", "price:H1")
	h.Invalidate(ctx, domain.InvalidateDelayed, "H1", "price:H1")

	// Still present inside the delay window.
	if _, found := h.Get(ctx, "price:H1:a", CategoryPricing); !found {
		t.Fatal("entry invalidated before the delay elapsed")
	}

	time.Sleep(60 * time.Millisecond)
	if _, found := h.Get(ctx, "price:H1:a", CategoryPricing); found {
		t.Error("entry survived delayed invalidation")
	}
}

func TestHybridInvalidateSmartCascades(t *testing.T) {
	h, _ := newTestHybrid(t)
	ctx := context.Background()

	h.Set(ctx, "avail:H1:a", []byte("1"), CategoryAvailability, nil, "avail:H1")
	h.Set(ctx, "occupancy:H1:2025-07-10", []byte("2"), CategoryOccupancy, nil, "occupancy:H1")

	h.Invalidate(ctx, domain.InvalidateSmart, "H1", "avail:H1")

	if _, found := h.Get(ctx, "avail:H1:a", CategoryAvailability); found {
		t.Error("availability entry survived smart invalidation")
	}
	if _, found := h.Get(ctx, "occupancy:H1:2025-07-10", CategoryOccupancy); found {
		t.Error("occupancy entry survived the cascade")
	}
}

func TestHybridScheduledSweep(t *testing.T) {
	h, _ := newTestHybrid(t)
	ctx := context.Background()

	h.Set(ctx, "avail:H1:a", []byte("1"), CategoryAvailability, nil, "avail:H1")
	h.Invalidate(ctx, domain.InvalidateScheduled, "H1", "avail:H1")

	// Scheduled strategy defers teardown until the sweeper runs.
	if _, found := h.Get(ctx, "avail:H1:a", CategoryAvailability); !found {
		t.Fatal("entry invalidated before the sweep")
	}

	swept := h.SweepScheduled(ctx, nil)
	if swept != 1 {
		t.Errorf("expected 1 swept tag, got %d", swept)
	}
	if _, found := h.Get(ctx, "avail:H1:a", CategoryAvailability); found {
		t.Error("entry survived the scheduled sweep")
	}
}

func TestHybridCustomTTLResolution(t *testing.T) {
	h, _ := newTestHybrid(t)

	settings := &domain.CacheSettings{
		CustomTTL: map[string]map[string]int{
			"availability": {"default": 120},
		},
	}
	if got := h.resolveTTL(CategoryAvailability, "default", settings); got != 2*time.Minute {
		t.Errorf("expected custom 2m TTL, got %s", got)
	}
	if got := h.resolveTTL(CategoryPricing, "default", settings); got != time.Minute {
		t.Errorf("expected default 1m TTL, got %s", got)
	}
}
