package pricing

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
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/providers"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/store/memory"
)

type engineFixture struct {
	gw     *memory.Gateway
	clk    *clock.Manual
	engine *Engine

	// counts maps a stay date to the booked-unit count fed to the demand
	// tracker; dates without an entry use defaultCount. Capacity is fixed
	// at 25 units.
	counts       map[string]int
	defaultCount int
}

func newEngineFixture(t *testing.T, now time.Time, defaultCount int) *engineFixture {
	t.Helper()

	f := &engineFixture{
		gw:           memory.New(),
		clk:          clock.NewManual(now),
		counts:       make(map[string]int),
		defaultCount: defaultCount,
	}

	cfg := config.Default()
	reg := metrics.New()
	hybrid := cache.NewHybrid(cache.NewMemDriver(), cache.NewLocal(time.Minute), cfg.Cache, reg, f.clk)
	t.Cleanup(func() { _ = hybrid.Close() })

	recount := func(ctx context.Context, hotelID domain.HotelID, rt domain.RoomType, date time.Time) (int, error) {
		if c, ok := f.counts[date.Format("2006-01-02")]; ok {
			return c, nil
		}
		return f.defaultCount, nil
	}
	capacity := func(ctx context.Context, hotelID domain.HotelID, rt domain.RoomType) (int, error) {
		return 25, nil
	}

	currency := providers.NewStaticCurrency(map[string]float64{"EUR/USD": 1.1})
	f.engine = New(f.gw, f.gw, hybrid, nil, nil, currency, f.clk, cfg.Pricing, reg)

	tracker := demand.New(hybrid, f.clk, cfg.Pricing.OccupancyThresholds, recount, capacity, reg)
	f.engine.SetDemand(tracker)
	return f
}

func (f *engineFixture) seedHotel(t *testing.T, hotel *domain.Hotel, rooms ...*domain.Room) {
	t.Helper()
	ctx := context.Background()
	if err := f.gw.SaveHotel(ctx, hotel); err != nil {
		t.Fatalf("seed hotel: %v", err)
	}
	for _, r := range rooms {
		if err := f.gw.SaveRoom(ctx, r); err != nil {
			t.Fatalf("seed room: %v", err)
		}
	}
}

func simpleHotel(id domain.HotelID) *domain.Hotel {
	return &domain.Hotel{ID: id, Code: "HTL", Name: "Test Hotel", Stars: 4, Timezone: "UTC"}
}

func simpleRoom(id domain.RoomID, hotelID domain.HotelID, base float64) *domain.Room {
	return &domain.Room{
		ID: id, HotelID: hotelID, Number: "101",
		Type: domain.RoomSimple, BasePrice: base, Status: domain.RoomAvailable,
	}
}

// A Saturday in July with 72% occupancy: demand HIGH (1.15), summer season
// (1.6), Saturday premium (1.25), everything else neutral. 100 EUR base
// yields 230.00.
func TestQuoteSummerSaturdayHighDemand(t *testing.T) {
	now := time.Date(2025, time.July, 9, 12, 0, 0, 0, time.UTC)
	f := newEngineFixture(t, now, 10) // 10/25 = 0.40 keeps the weekly factor neutral
	f.counts["2025-07-12"] = 18       // 18/25 = 0.72 -> HIGH
	f.seedHotel(t, simpleHotel("H1"), simpleRoom("R1", "H1", 100))

	quote, err := f.engine.Quote(context.Background(), Request{
		HotelID:  "H1",
		RoomType: domain.RoomSimple,
		CheckIn:  time.Date(2025, time.July, 12, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2025, time.July, 13, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}

	if quote.FinalPrice != 230.00 {
		t.Errorf("final price: got %.2f, want 230.00", quote.FinalPrice)
	}
	if quote.DemandLevel != domain.DemandHigh {
		t.Errorf("demand level: got %s, want HIGH", quote.DemandLevel)
	}
	if quote.Currency != "EUR" {
		t.Errorf("currency: got %s, want EUR", quote.Currency)
	}
	if quote.PriceIncrease != 130.00 {
		t.Errorf("price increase: got %.2f, want 130.00", quote.PriceIncrease)
	}
	if want := now.Add(30 * time.Minute); !quote.ValidUntil.Equal(want) {
		t.Errorf("valid until: got %s, want %s", quote.ValidUntil, want)
	}
	if quote.Approval != domain.ApprovalAutoApproved {
		t.Errorf("approval: got %s, want AUTO_APPROVED", quote.Approval)
	}

	// Identical request inside the validity window returns the same price.
	again, err := f.engine.Quote(context.Background(), Request{
		HotelID:  "H1",
		RoomType: domain.RoomSimple,
		CheckIn:  time.Date(2025, time.July, 12, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2025, time.July, 13, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("second quote failed: %v", err)
	}
	if again.FinalPrice != quote.FinalPrice {
		t.Errorf("repeat quote drifted: %.2f vs %.2f", again.FinalPrice, quote.FinalPrice)
	}
}

func TestQuoteFloorsAtHalfBase(t *testing.T) {
	// Every discount stacked: very low demand, quiet week, Monday in
	// November, 117 days of advance, a 14-night stay, DIAMOND tier and
	// EARLY20. The raw product lands near 0.25 and the floor catches it.
	now := time.Date(2025, time.July, 9, 12, 0, 0, 0, time.UTC)
	f := newEngineFixture(t, now, 2) // 2/25 = 0.08 -> VERY_LOW everywhere
	f.seedHotel(t, simpleHotel("H1"), simpleRoom("R1", "H1", 100))

	quote, err := f.engine.Quote(context.Background(), Request{
		HotelID:     "H1",
		RoomType:    domain.RoomSimple,
		CheckIn:     time.Date(2025, time.November, 3, 0, 0, 0, 0, time.UTC),
		CheckOut:    time.Date(2025, time.November, 17, 0, 0, 0, 0, time.UTC),
		LoyaltyTier: domain.TierDiamond,
		PromoCode:   "EARLY20",
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if quote.FinalPrice != 50.00 {
		t.Errorf("final price: got %.2f, want floor 50.00", quote.FinalPrice)
	}
	if quote.Savings != 50.00 {
		t.Errorf("savings: got %.2f, want 50.00", quote.Savings)
	}
}

func TestQuoteClampsToConstraints(t *testing.T) {
	now := time.Date(2025, time.July, 9, 12, 0, 0, 0, time.UTC)
	f := newEngineFixture(t, now, 10)
	f.counts["2025-07-12"] = 18

	hotel := simpleHotel("H1")
	hotel.Yield.PriceConstraints = map[domain.RoomType]domain.PriceConstraints{
		domain.RoomSimple: {MinPrice: 80, MaxPrice: 150},
	}
	f.seedHotel(t, hotel, simpleRoom("R1", "H1", 100))

	quote, err := f.engine.Quote(context.Background(), Request{
		HotelID:  "H1",
		RoomType: domain.RoomSimple,
		CheckIn:  time.Date(2025, time.July, 12, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2025, time.July, 13, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if quote.FinalPrice != 150.00 {
		t.Errorf("final price: got %.2f, want max clamp 150.00", quote.FinalPrice)
	}
}

func TestQuoteHoldsLargeSwingForApproval(t *testing.T) {
	now := time.Date(2025, time.July, 9, 12, 0, 0, 0, time.UTC)
	f := newEngineFixture(t, now, 10)
	f.counts["2025-07-12"] = 18

	room := simpleRoom("R1", "H1", 100)
	room.PriceHistory = []domain.PricePoint{{
		Price: 100, RecordedAt: now.Add(-24 * time.Hour), Source: "ENGINE",
	}}
	f.seedHotel(t, simpleHotel("H1"), room)

	quote, err := f.engine.Quote(context.Background(), Request{
		HotelID:  "H1",
		RoomType: domain.RoomSimple,
		CheckIn:  time.Date(2025, time.July, 12, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2025, time.July, 13, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}

	// 100 -> 230 is a 130% swing against a 30% threshold.
	if quote.Approval != domain.ApprovalPending {
		t.Fatalf("approval: got %s, want PENDING", quote.Approval)
	}

	saved, err := f.gw.GetRoom(context.Background(), "R1")
	if err != nil {
		t.Fatalf("load room: %v", err)
	}
	if len(saved.YieldSuggestions) != 1 {
		t.Fatalf("expected 1 yield suggestion, got %d", len(saved.YieldSuggestions))
	}
	if saved.YieldSuggestions[0].SuggestedPrice != 230.00 {
		t.Errorf("suggested price: got %.2f, want 230.00", saved.YieldSuggestions[0].SuggestedPrice)
	}
	if saved.DynamicPrice == nil || saved.DynamicPrice.Approval != domain.ApprovalPending {
		t.Error("dynamic price not held for approval")
	}
	if len(saved.PriceHistory) != 1 {
		t.Errorf("held proposal must not enter price history, got %d points", len(saved.PriceHistory))
	}
}

func TestReviewResolvesHeldProposal(t *testing.T) {
	hold := func(t *testing.T) *engineFixture {
		t.Helper()
		now := time.Date(2025, time.July, 9, 12, 0, 0, 0, time.UTC)
		f := newEngineFixture(t, now, 10)
		f.counts["2025-07-12"] = 18
		room := simpleRoom("R1", "H1", 100)
		room.PriceHistory = []domain.PricePoint{{
			Price: 100, RecordedAt: now.Add(-24 * time.Hour), Source: "ENGINE",
		}}
		f.seedHotel(t, simpleHotel("H1"), room)

		quote, err := f.engine.Quote(context.Background(), Request{
			HotelID:  "H1",
			RoomType: domain.RoomSimple,
			CheckIn:  time.Date(2025, time.July, 12, 0, 0, 0, 0, time.UTC),
			CheckOut: time.Date(2025, time.July, 13, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("quote failed: %v", err)
		}
		if quote.Approval != domain.ApprovalPending {
			t.Fatalf("fixture did not hold the proposal: %s", quote.Approval)
		}
		return f
	}

	t.Run("approve", func(t *testing.T) {
		f := hold(t)
		if err := f.engine.Review(context.Background(), "R1", true); err != nil {
			t.Fatalf("review failed: %v", err)
		}
		saved, _ := f.gw.GetRoom(context.Background(), "R1")
		if saved.DynamicPrice.Approval != domain.ApprovalApproved {
			t.Errorf("approval: got %s, want APPROVED", saved.DynamicPrice.Approval)
		}
		if n := len(saved.PriceHistory); n != 2 || saved.PriceHistory[n-1].Price != 230.00 {
			t.Errorf("history: got %v", saved.PriceHistory)
		}
	})

	t.Run("reject", func(t *testing.T) {
		f := hold(t)
		if err := f.engine.Review(context.Background(), "R1", false); err != nil {
			t.Fatalf("review failed: %v", err)
		}
		saved, _ := f.gw.GetRoom(context.Background(), "R1")
		if saved.DynamicPrice.Approval != domain.ApprovalRejected {
			t.Errorf("approval: got %s, want REJECTED", saved.DynamicPrice.Approval)
		}
		if len(saved.PriceHistory) != 1 {
			t.Errorf("rejected proposal entered history: %v", saved.PriceHistory)
		}

		// Nothing pending anymore.
		if err := f.engine.Review(context.Background(), "R1", true); !errs.IsKind(err, errs.KindValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("unknown room", func(t *testing.T) {
		f := hold(t)
		if err := f.engine.Review(context.Background(), "ghost", true); !errs.IsKind(err, errs.KindNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestQuoteRejectsInvalidWindow(t *testing.T) {
	now := time.Date(2025, time.July, 9, 12, 0, 0, 0, time.UTC)
	f := newEngineFixture(t, now, 10)
	f.seedHotel(t, simpleHotel("H1"), simpleRoom("R1", "H1", 100))

	day := time.Date(2025, time.July, 12, 0, 0, 0, 0, time.UTC)
	_, err := f.engine.Quote(context.Background(), Request{
		HotelID: "H1", RoomType: domain.RoomSimple, CheckIn: day, CheckOut: day,
	})
	if !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuoteNoBasePrice(t *testing.T) {
	now := time.Date(2025, time.July, 9, 12, 0, 0, 0, time.UTC)
	f := newEngineFixture(t, now, 10)
	f.seedHotel(t, simpleHotel("H1")) // no rooms, no yield base pricing

	_, err := f.engine.Quote(context.Background(), Request{
		HotelID:  "H1",
		RoomType: domain.RoomSimple,
		CheckIn:  time.Date(2025, time.July, 12, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2025, time.July, 13, 0, 0, 0, 0, time.UTC),
	})
	if !errs.IsKind(err, errs.KindPricing) {
		t.Fatalf("expected pricing error, got %v", err)
	}
}

func TestQuoteYieldBasePriceFallback(t *testing.T) {
	now := time.Date(2025, time.July, 9, 12, 0, 0, 0, time.UTC)
	f := newEngineFixture(t, now, 10)
	f.counts["2025-07-12"] = 18

	hotel := simpleHotel("H1")
	hotel.Yield.BasePricing = map[domain.RoomType]float64{domain.RoomSimple: 100}
	f.seedHotel(t, hotel) // no physical rooms yet

	quote, err := f.engine.Quote(context.Background(), Request{
		HotelID:  "H1",
		RoomType: domain.RoomSimple,
		CheckIn:  time.Date(2025, time.July, 12, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2025, time.July, 13, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if quote.FinalPrice != 230.00 {
		t.Errorf("final price: got %.2f, want 230.00", quote.FinalPrice)
	}
}

func TestQuoteCurrencyConversion(t *testing.T) {
	now := time.Date(2025, time.July, 9, 12, 0, 0, 0, time.UTC)
	f := newEngineFixture(t, now, 10)
	f.counts["2025-07-12"] = 18
	f.seedHotel(t, simpleHotel("H1"), simpleRoom("R1", "H1", 100))

	req := Request{
		HotelID:  "H1",
		RoomType: domain.RoomSimple,
		CheckIn:  time.Date(2025, time.July, 12, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2025, time.July, 13, 0, 0, 0, 0, time.UTC),
		Currency: "USD",
	}
	quote, err := f.engine.Quote(context.Background(), req)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if quote.Currency != "USD" || quote.Rate != 1.1 {
		t.Errorf("got %s at rate %.2f, want USD at 1.10", quote.Currency, quote.Rate)
	}
	if quote.FinalPrice != 253.00 {
		t.Errorf("final price: got %.2f, want 253.00", quote.FinalPrice)
	}

	// Unknown target currency serves EUR with the conversion flag raised.
	req.Currency = "GBP"
	quote, err = f.engine.Quote(context.Background(), req)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !quote.ConversionError {
		t.Error("expected conversion error flag")
	}
	if quote.Currency != "EUR" || quote.FinalPrice != 230.00 {
		t.Errorf("got %.2f %s, want 230.00 EUR", quote.FinalPrice, quote.Currency)
	}
}
