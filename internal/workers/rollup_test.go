package workers

import (
	"context"
	"testing"
	"time"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/clock"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/config"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/metrics"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/store/memory"
)

type recordingNotifier struct {
	events []map[string]any
}

func (n *recordingNotifier) RevenueOptimization(_ domain.HotelID, payload map[string]any) {
	n.events = append(n.events, payload)
}

func seedRollupFixture(t *testing.T, gw *memory.Gateway, clk *clock.Manual) {
	t.Helper()
	ctx := context.Background()

	if err := gw.SaveHotel(ctx, &domain.Hotel{ID: "H1", Name: "Harborview", Stars: 4, Timezone: "UTC"}); err != nil {
		t.Fatalf("seed hotel: %v", err)
	}
	rooms := []domain.Room{
		{ID: "R1", HotelID: "H1", Number: "101", Type: domain.RoomSimple, BasePrice: 100, Status: domain.RoomAvailable},
		{ID: "R2", HotelID: "H1", Number: "102", Type: domain.RoomSimple, BasePrice: 100, Status: domain.RoomAvailable},
		{ID: "R3", HotelID: "H1", Number: "103", Type: domain.RoomSuite, BasePrice: 250, Status: domain.RoomOutOfOrder},
	}
	for i := range rooms {
		if err := gw.SaveRoom(ctx, &rooms[i]); err != nil {
			t.Fatalf("seed room: %v", err)
		}
	}

	// One completed two-night stay inside the rollup window.
	booking := &domain.Booking{
		ID:         "B1",
		HotelID:    "H1",
		UserID:     "C1",
		Rooms:      []domain.BookingLine{{RoomType: domain.RoomSimple, Quantity: 1}},
		CheckIn:    time.Date(2025, time.July, 9, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2025, time.July, 11, 0, 0, 0, 0, time.UTC),
		Status:     domain.BookingCompleted,
		TotalPrice: 300,
		Currency:   "EUR",
		UpdatedAt:  clk.Now().Add(-time.Hour),
	}
	if err := gw.CreateBooking(ctx, booking); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
}

func TestMetricRolloverJob(t *testing.T) {
	gw := memory.New()
	clk := clock.NewManual(time.Date(2025, time.July, 12, 12, 0, 0, 0, time.UTC))
	seedRollupFixture(t, gw, clk)
	notifier := &recordingNotifier{}
	job := MetricRolloverJob(gw, metrics.New(), clk, config.Default().Workers, notifier)
	ctx := context.Background()

	if err := job.Run(ctx); err != nil {
		t.Fatalf("rollover failed: %v", err)
	}

	hotel, err := gw.GetHotel(ctx, "H1")
	if err != nil {
		t.Fatalf("get hotel: %v", err)
	}
	if hotel.Metrics == nil {
		t.Fatal("no snapshot written")
	}
	// 300 EUR over 2 sellable rooms; 2 room-nights sold.
	if hotel.Metrics.RevPAR != 150 {
		t.Errorf("revPAR: got %.2f, want 150", hotel.Metrics.RevPAR)
	}
	if hotel.Metrics.ADR != 150 {
		t.Errorf("ADR: got %.2f, want 150", hotel.Metrics.ADR)
	}
	if hotel.Metrics.Health != domain.HealthGood {
		t.Errorf("health: got %s, want GOOD", hotel.Metrics.Health)
	}
	if !hotel.Metrics.SnapshotAt.Equal(clk.Now()) {
		t.Errorf("snapshotAt: got %s", hotel.Metrics.SnapshotAt)
	}
	if len(notifier.events) != 1 || notifier.events[0]["revPar"] != 150.0 {
		t.Fatalf("notifier events: got %v", notifier.events)
	}

	// Same local day: the hotel is not due again.
	clk.Advance(2 * time.Hour)
	if err := job.Run(ctx); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(notifier.events) != 1 {
		t.Errorf("rolled over twice on the same day: %d events", len(notifier.events))
	}

	// Past local midnight it rolls again.
	clk.Advance(24 * time.Hour)
	if err := job.Run(ctx); err != nil {
		t.Fatalf("third run failed: %v", err)
	}
	if len(notifier.events) != 2 {
		t.Errorf("next-day rollover missing: %d events", len(notifier.events))
	}
}

func TestDueForRollover(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, time.July, 12, 1, 0, 0, 0, time.UTC))

	t.Run("no snapshot yet", func(t *testing.T) {
		h := &domain.Hotel{ID: "H1", Timezone: "UTC"}
		if !dueForRollover(h, clk) {
			t.Error("hotel without a snapshot must be due")
		}
	})

	t.Run("snapshot from yesterday", func(t *testing.T) {
		h := &domain.Hotel{ID: "H1", Timezone: "UTC", Metrics: &domain.PerformanceMetrics{
			SnapshotAt: time.Date(2025, time.July, 11, 23, 0, 0, 0, time.UTC),
		}}
		if !dueForRollover(h, clk) {
			t.Error("yesterday's snapshot must be due")
		}
	})

	t.Run("snapshot from today", func(t *testing.T) {
		h := &domain.Hotel{ID: "H1", Timezone: "UTC", Metrics: &domain.PerformanceMetrics{
			SnapshotAt: time.Date(2025, time.July, 12, 0, 30, 0, 0, time.UTC),
		}}
		if dueForRollover(h, clk) {
			t.Error("same-day snapshot must not be due")
		}
	})

	t.Run("hotel-local midnight", func(t *testing.T) {
		// 01:00 UTC on the 12th is still the 11th in New York: a snapshot
		// taken earlier on the local 11th is not due yet.
		h := &domain.Hotel{ID: "H1", Timezone: "America/New_York", Metrics: &domain.PerformanceMetrics{
			SnapshotAt: time.Date(2025, time.July, 11, 15, 0, 0, 0, time.UTC),
		}}
		if dueForRollover(h, clk) {
			t.Error("local calendar day has not advanced")
		}
	})
}

func TestGradeHealth(t *testing.T) {
	cases := []struct {
		rate float64
		want domain.HealthStatus
	}{
		{0.0, domain.HealthGood},
		{0.1, domain.HealthCritical},
		{0.4, domain.HealthDegraded},
		{0.8, domain.HealthGood},
	}
	for _, tc := range cases {
		m := &domain.PerformanceMetrics{CacheHitRates: map[string]float64{"shared": tc.rate}}
		if got := gradeHealth(m); got != tc.want {
			t.Errorf("rate %.2f: got %s, want %s", tc.rate, got, tc.want)
		}
	}
}
