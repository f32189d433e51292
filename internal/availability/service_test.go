package availability

import (
	"context"
	"testing"
	"time"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/cache"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/clock"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/config"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/demand"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/errs"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/metrics"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/pricing"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/providers"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/store/memory"
)

type recordingSink struct {
	snapshots []*Snapshot
	events    []string
}

func (r *recordingSink) AvailabilityChanged(_ domain.HotelID, snap *Snapshot) {
	r.snapshots = append(r.snapshots, snap)
}

func (r *recordingSink) BookingEvent(_ domain.HotelID, action string, _ *domain.Booking) {
	r.events = append(r.events, action)
}

type serviceFixture struct {
	gw   *memory.Gateway
	clk  *clock.Manual
	svc  *Service
	sink *recordingSink
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		gw:   memory.New(),
		clk:  clock.NewManual(time.Date(2025, time.July, 9, 12, 0, 0, 0, time.UTC)),
		sink: &recordingSink{},
	}

	cfg := config.Default()
	reg := metrics.New()
	hybrid := cache.NewHybrid(cache.NewMemDriver(), cache.NewLocal(time.Minute), cfg.Cache, reg, f.clk)
	t.Cleanup(func() { _ = hybrid.Close() })

	currency := providers.NewStaticCurrency(nil)
	engine := pricing.New(f.gw, f.gw, hybrid, nil, nil, currency, f.clk, cfg.Pricing, reg)
	f.svc = New(f.gw, f.gw, f.gw, hybrid, engine, f.clk, cfg.Availability, reg)

	tracker := demand.New(hybrid, f.clk, cfg.Pricing.OccupancyThresholds, f.svc.Recount, f.svc.Capacity, reg)
	f.svc.SetDemand(tracker)
	engine.SetDemand(tracker)
	f.svc.SetSink(f.sink)
	return f
}

func (f *serviceFixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	hotel := &domain.Hotel{ID: "H1", Code: "HTL", Name: "Test Hotel", Stars: 4, Timezone: "UTC"}
	if err := f.gw.SaveHotel(ctx, hotel); err != nil {
		t.Fatalf("seed hotel: %v", err)
	}
	rooms := []*domain.Room{
		{ID: "R1", HotelID: "H1", Number: "101", Type: domain.RoomSimple, BasePrice: 100, Status: domain.RoomAvailable},
		{ID: "R2", HotelID: "H1", Number: "102", Type: domain.RoomSimple, BasePrice: 100, Status: domain.RoomAvailable},
		{ID: "R3", HotelID: "H1", Number: "103", Type: domain.RoomSimple, BasePrice: 100, Status: domain.RoomAvailable},
		{ID: "R4", HotelID: "H1", Number: "201", Type: domain.RoomSuite, BasePrice: 250, Status: domain.RoomAvailable},
	}
	for _, r := range rooms {
		if err := f.gw.SaveRoom(ctx, r); err != nil {
			t.Fatalf("seed room %s: %v", r.ID, err)
		}
	}
}

func stayWindow() (time.Time, time.Time) {
	return time.Date(2025, time.July, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC)
}

func confirmedBooking(id domain.BookingID, qty int) *domain.Booking {
	in, out := stayWindow()
	return &domain.Booking{
		ID:      id,
		HotelID: "H1",
		UserID:  "U1",
		Rooms:   []domain.BookingLine{{RoomType: domain.RoomSimple, Quantity: qty}},
		CheckIn: in, CheckOut: out,
		Status:     domain.BookingConfirmed,
		TotalPrice: 300,
		Currency:   "EUR",
		CreatedAt:  time.Date(2025, time.July, 9, 10, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2025, time.July, 9, 10, 0, 0, 0, time.UTC),
	}
}

func typeEntry(t *testing.T, snap *Snapshot, rt domain.RoomType) RoomTypeAvailability {
	t.Helper()
	for _, entry := range snap.RoomTypes {
		if entry.RoomType == rt {
			return entry
		}
	}
	t.Fatalf("no %s entry in snapshot", rt)
	return RoomTypeAvailability{}
}

func TestGetAvailabilityCountsBookedUnits(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t)
	ctx := context.Background()

	if err := f.gw.CreateBooking(ctx, confirmedBooking("B1", 1)); err != nil {
		t.Fatalf("create booking: %v", err)
	}

	in, out := stayWindow()
	snap, err := f.svc.GetAvailability(ctx, "H1", in, out)
	if err != nil {
		t.Fatalf("availability failed: %v", err)
	}

	simple := typeEntry(t, snap, domain.RoomSimple)
	if simple.Total != 3 || simple.Booked != 1 || simple.Available != 2 {
		t.Errorf("SIMPLE: got total=%d booked=%d available=%d, want 3/1/2",
			simple.Total, simple.Booked, simple.Available)
	}
	if simple.Price <= 0 {
		t.Error("expected a priced entry")
	}

	suite := typeEntry(t, snap, domain.RoomSuite)
	if suite.Total != 1 || suite.Available != 1 {
		t.Errorf("SUITE: got total=%d available=%d, want 1/1", suite.Total, suite.Available)
	}

	// 3 of 4 units free: occupancy 0.25.
	if snap.OccupancyRate != 0.25 {
		t.Errorf("occupancy: got %.4f, want 0.25", snap.OccupancyRate)
	}
	if snap.FromCache {
		t.Error("first lookup must compute")
	}

	again, err := f.svc.GetAvailability(ctx, "H1", in, out)
	if err != nil {
		t.Fatalf("second lookup failed: %v", err)
	}
	if !again.FromCache {
		t.Error("second lookup must hit the cache")
	}
}

func TestOnBookingChangedRoundTrip(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t)
	ctx := context.Background()

	booking := confirmedBooking("B1", 2)
	if err := f.gw.CreateBooking(ctx, booking); err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if err := f.svc.OnBookingChanged(ctx, booking, "confirmed"); err != nil {
		t.Fatalf("booking event failed: %v", err)
	}

	in, out := stayWindow()
	snap, err := f.svc.GetAvailability(ctx, "H1", in, out)
	if err != nil {
		t.Fatalf("availability failed: %v", err)
	}
	if got := typeEntry(t, snap, domain.RoomSimple).Available; got != 1 {
		t.Errorf("after confirm: got %d available, want 1", got)
	}

	// Cancellation releases the inventory.
	if err := f.gw.UpdateBookingStatus(ctx, "B1", domain.BookingCancelled); err != nil {
		t.Fatalf("update status: %v", err)
	}
	booking.Status = domain.BookingCancelled
	if err := f.svc.OnBookingChanged(ctx, booking, "cancelled"); err != nil {
		t.Fatalf("booking event failed: %v", err)
	}

	snap, err = f.svc.GetAvailability(ctx, "H1", in, out)
	if err != nil {
		t.Fatalf("availability failed: %v", err)
	}
	if got := typeEntry(t, snap, domain.RoomSimple).Available; got != 3 {
		t.Errorf("after cancel: got %d available, want 3", got)
	}

	if len(f.sink.events) != 2 || f.sink.events[0] != "confirmed" || f.sink.events[1] != "cancelled" {
		t.Errorf("sink events: got %v", f.sink.events)
	}
	if len(f.sink.snapshots) != 2 {
		t.Fatalf("expected 2 broadcast snapshots, got %d", len(f.sink.snapshots))
	}
	if got := typeEntry(t, f.sink.snapshots[1], domain.RoomSimple).Available; got != 3 {
		t.Errorf("broadcast snapshot: got %d available, want 3", got)
	}
}

func TestGetAvailabilityNoRooms(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	hotel := &domain.Hotel{ID: "H2", Code: "EMP", Name: "Empty", Stars: 3, Timezone: "UTC"}
	if err := f.gw.SaveHotel(ctx, hotel); err != nil {
		t.Fatalf("seed hotel: %v", err)
	}

	in, out := stayWindow()
	snap, err := f.svc.GetAvailability(ctx, "H2", in, out)
	if err != nil {
		t.Fatalf("availability failed: %v", err)
	}
	if len(snap.RoomTypes) != 0 {
		t.Errorf("expected no room types, got %d", len(snap.RoomTypes))
	}
	if snap.OccupancyRate != 0 {
		t.Errorf("occupancy: got %.4f, want 0", snap.OccupancyRate)
	}
}

func TestGetAvailabilityRejectsEmptyWindow(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t)

	day := time.Date(2025, time.July, 12, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.GetAvailability(context.Background(), "H1", day, day)
	if !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetAvailabilityUnknownHotel(t *testing.T) {
	f := newServiceFixture(t)

	in, out := stayWindow()
	_, err := f.svc.GetAvailability(context.Background(), "NOPE", in, out)
	if !errs.IsKind(err, errs.KindNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRealTimeOccupancy(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t)
	ctx := context.Background()

	// A stay covering today (clock is 2025-07-09) with 2 SIMPLE units.
	booking := &domain.Booking{
		ID:      "B1",
		HotelID: "H1",
		UserID:  "U1",
		Rooms:   []domain.BookingLine{{RoomType: domain.RoomSimple, Quantity: 2}},
		CheckIn: time.Date(2025, time.July, 8, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2025, time.July, 11, 0, 0, 0, 0, time.UTC),
		Status:   domain.BookingCheckedIn,
		Currency: "EUR",
	}
	if err := f.gw.CreateBooking(ctx, booking); err != nil {
		t.Fatalf("create booking: %v", err)
	}

	occ, err := f.svc.RealTimeOccupancy(ctx, "H1")
	if err != nil {
		t.Fatalf("occupancy failed: %v", err)
	}
	if occ.TotalRooms != 4 || occ.OccupiedUnits != 2 {
		t.Errorf("got total=%d occupied=%d, want 4/2", occ.TotalRooms, occ.OccupiedUnits)
	}
	if occ.OccupancyRate != 0.5 {
		t.Errorf("occupancy rate: got %.4f, want 0.5", occ.OccupancyRate)
	}
}

func TestWarmPopulatesCache(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t)
	ctx := context.Background()

	if err := f.svc.Warm(ctx, "H1", 3); err != nil {
		t.Fatalf("warm failed: %v", err)
	}

	today := time.Date(2025, time.July, 9, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		in := today.AddDate(0, 0, i)
		snap, err := f.svc.GetAvailability(ctx, "H1", in, in.AddDate(0, 0, 1))
		if err != nil {
			t.Fatalf("availability failed: %v", err)
		}
		if !snap.FromCache {
			t.Errorf("window %s not warmed", in.Format("2006-01-02"))
		}
	}
}
