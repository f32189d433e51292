// Package pricing computes advisory per-night prices from a stack of
// multiplicative factors. The engine is stateless; every cached artifact
// goes through the hybrid cache under price: keys.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/cache"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/clock"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/config"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/demand"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/errs"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/metrics"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/providers"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/store"
)

// Request is a pricing query for one room type and stay window.
type Request struct {
	HotelID     domain.HotelID  `json:"hotelId"`
	RoomType    domain.RoomType `json:"roomType"`
	CheckIn     time.Time       `json:"checkIn"`
	CheckOut    time.Time       `json:"checkOut"`
	GuestCount  int             `json:"guestCount"`
	LoyaltyTier domain.Tier     `json:"loyaltyTier,omitempty"`
	PromoCode   string          `json:"promoCode,omitempty"`
	Currency    string          `json:"currency"`
}

// Quote is the engine's result. Prices are advisory, rounded to cents.
type Quote struct {
	HotelID         domain.HotelID        `json:"hotelId"`
	RoomType        domain.RoomType       `json:"roomType"`
	BasePrice       float64               `json:"basePrice"`
	FinalPrice      float64               `json:"finalPrice"`
	Factors         Factors               `json:"pricingFactors"`
	DemandLevel     domain.DemandLevel    `json:"demandLevel"`
	Currency        string                `json:"currency"`
	Rate            float64               `json:"rate"`
	ConversionError bool                  `json:"conversionError,omitempty"`
	ValidFrom       time.Time             `json:"validFrom"`
	ValidUntil      time.Time             `json:"validUntil"`
	Savings         float64               `json:"savings"`
	PriceIncrease   float64               `json:"priceIncrease"`
	Approval        domain.ApprovalStatus `json:"approvalStatus"`
}

// Sink receives price-update notifications for fan-out. Emission is
// fire-and-metric; failures never reach the engine.
type Sink interface {
	PriceUpdate(hotelID domain.HotelID, rt domain.RoomType, date time.Time, oldPrice, newPrice float64, currency string)
}

// Engine computes quotes. Factor arithmetic is non-blocking; suspension
// points are the cache, the store, and the providers.
type Engine struct {
	hotels     store.HotelStore
	rooms      store.RoomStore
	cache      *cache.Hybrid
	demand     *demand.Tracker
	competitor providers.CompetitorProvider
	currency   providers.CurrencyProvider
	clk        clock.Clock
	cfg        config.Pricing
	metrics    *metrics.Registry
	sink       Sink
}

// New wires a pricing engine.
func New(hotels store.HotelStore, rooms store.RoomStore, c *cache.Hybrid, tracker *demand.Tracker,
	competitor providers.CompetitorProvider, currency providers.CurrencyProvider,
	clk clock.Clock, cfg config.Pricing, reg *metrics.Registry) *Engine {
	return &Engine{
		hotels:     hotels,
		rooms:      rooms,
		cache:      c,
		demand:     tracker,
		competitor: competitor,
		currency:   currency,
		clk:        clk,
		cfg:        cfg,
		metrics:    reg,
	}
}

// SetSink registers the price-update sink.
func (e *Engine) SetSink(s Sink) { e.sink = s }

// SetDemand attaches the demand tracker. Wired after construction because
// the tracker's recount closures come from the availability service.
func (e *Engine) SetDemand(t *demand.Tracker) { e.demand = t }

// Quote computes or serves the cached price for the request. Identical
// requests inside the validity window return the identical final price.
func (e *Engine) Quote(ctx context.Context, req Request) (*Quote, error) {
	if !req.CheckIn.Before(req.CheckOut) {
		return nil, errs.Validation(fmt.Errorf("check-in must precede check-out"))
	}
	if !req.RoomType.Valid() {
		return nil, errs.Validation(fmt.Errorf("unknown room type %q", req.RoomType))
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Deadline)
	defer cancel()

	start := e.clk.Now()
	hotel, err := e.loadHotel(ctx, req.HotelID)
	if err != nil {
		return nil, err
	}

	key := cache.PriceKey(req.HotelID, req.RoomType, req.CheckIn)
	ttl := e.cfg.Validity
	if hotel.Yield.PriceValidityMin > 0 {
		ttl = time.Duration(hotel.Yield.PriceValidityMin) * time.Minute
	}

	raw, fromCache, err := e.cache.GetOrCompute(ctx, key, cache.CategoryPricing, &hotel.Cache,
		[]string{cache.TagPrice(req.HotelID)},
		func(ctx context.Context) ([]byte, error) {
			quote, err := e.compute(ctx, hotel, req, ttl)
			if err != nil {
				return nil, err
			}
			return json.Marshal(quote)
		})
	if err != nil {
		e.metrics.PriceComputations.WithLabelValues("error").Inc()
		return nil, err
	}

	var quote Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, fmt.Errorf("failed to decode cached quote: %w", err)
	}

	e.metrics.PriceDuration.WithLabelValues(fmt.Sprintf("%t", fromCache)).
		Observe(e.clk.Now().Sub(start).Seconds())
	if !fromCache {
		e.metrics.PriceComputations.WithLabelValues("computed").Inc()
	} else {
		e.metrics.PriceComputations.WithLabelValues("cached").Inc()
	}

	// Quotes are computed and cached in EUR; convert on the way out.
	if req.Currency != "EUR" {
		e.convertQuote(ctx, &quote, req.Currency)
	}
	return &quote, nil
}

func (e *Engine) loadHotel(ctx context.Context, id domain.HotelID) (*domain.Hotel, error) {
	key := cache.HotelKey(id, "full")
	raw, _, err := e.cache.GetOrCompute(ctx, key, cache.CategoryHotelData, nil,
		[]string{cache.TagHotel(id)},
		func(ctx context.Context) ([]byte, error) {
			hotel, err := e.hotels.GetHotel(ctx, id)
			if err != nil {
				return nil, err
			}
			return json.Marshal(hotel)
		})
	if err != nil {
		return nil, err
	}
	var hotel domain.Hotel
	if err := json.Unmarshal(raw, &hotel); err != nil {
		return nil, fmt.Errorf("failed to decode cached hotel: %w", err)
	}
	return &hotel, nil
}

// compute runs the factor stack. The cache layer guarantees at most one
// concurrent computation per key.
func (e *Engine) compute(ctx context.Context, hotel *domain.Hotel, req Request, ttl time.Duration) (*Quote, error) {
	now := e.clk.Now()
	loc := hotel.Location()

	basePrice, room, err := e.resolveBasePrice(ctx, hotel, req.RoomType)
	if err != nil {
		return nil, err
	}

	factors := neutralFactors()

	// Demand: occupancy bucket via the tracker; absence degrades to 1.0.
	level := domain.DemandModerate
	if e.demand != nil {
		ratio, err := e.demand.Ratio(ctx, req.HotelID, req.RoomType, req.CheckIn)
		if err != nil {
			log.Warn().Err(err).Str("hotel", string(req.HotelID)).Msg("demand lookup failed, factor neutral")
		} else {
			level = e.levelFor(hotel, ratio)
			if m, ok := e.cfg.DemandMultipliers[level]; ok {
				factors.Demand = m
			}
		}
	}

	factors.Seasonal = seasonalMultiplier(req.CheckIn.In(loc), hotel)
	factors.DayOfWeek = dayOfWeekMultiplier(req.CheckIn.In(loc), hotel, e.cfg.DayOfWeek)
	factors.WeeklyOccupancy = weeklyOccupancyMultiplier(e.weeklyRatio(ctx, req))

	// Competitor: skipped entirely when the provider has no data or fails.
	if e.competitor != nil {
		if snap, err := e.competitor.Fetch(ctx, req.HotelID); err != nil {
			log.Warn().Err(err).Str("hotel", string(req.HotelID)).Msg("competitor provider failed, factor skipped")
		} else if snap != nil {
			factors.Competitor = competitorMultiplier(snap.OurPrice, snap.AvgPrice)
		}
	}

	if req.LoyaltyTier != "" {
		if m, ok := e.cfg.LoyaltyDiscounts[req.LoyaltyTier]; ok {
			factors.Loyalty = m
		}
	}

	factors.Event = eventMultiplier(req.CheckIn.In(loc), hotel)

	advanceDays := daysBetween(now.In(loc), req.CheckIn.In(loc))
	nights := nightsBetween(req.CheckIn.In(loc), req.CheckOut.In(loc))

	factors.AdvanceBooking = advanceBookingMultiplier(advanceDays)
	factors.LengthOfStay = lengthOfStayMultiplier(nights)
	factors.LastMinute = lastMinuteMultiplier(advanceDays)

	if req.PromoCode != "" {
		if m, ok := e.cfg.PromoCodes[req.PromoCode]; ok && m > 0 {
			factors.Promo = m
		}
	}

	finalPrice := basePrice * factors.Product()
	if math.IsNaN(finalPrice) || math.IsInf(finalPrice, 0) || finalPrice < 0 {
		return nil, errs.E(errs.KindPricing, "price computation failed",
			fmt.Errorf("non-finite price for %s/%s: %.4f", req.HotelID, req.RoomType, finalPrice))
	}

	// Floor at half the base price, then clamp into room constraints.
	if floor := basePrice * e.cfg.MinPriceFloor; finalPrice < floor {
		finalPrice = floor
	}
	var constraints *domain.PriceConstraints
	if room != nil {
		constraints = room.Constraints(hotel)
	}
	if constraints != nil {
		if finalPrice < constraints.MinPrice {
			finalPrice = constraints.MinPrice
		}
		if constraints.MaxPrice > 0 && finalPrice > constraints.MaxPrice {
			finalPrice = constraints.MaxPrice
		}
	}

	finalPrice = roundCents(finalPrice)
	basePrice = roundCents(basePrice)

	quote := &Quote{
		HotelID:     req.HotelID,
		RoomType:    req.RoomType,
		BasePrice:   basePrice,
		FinalPrice:  finalPrice,
		Factors:     factors,
		DemandLevel: level,
		Currency:    "EUR",
		Rate:        1,
		ValidFrom:   now,
		ValidUntil:  now.Add(ttl),
		Approval:    domain.ApprovalAutoApproved,
	}
	if finalPrice < basePrice {
		quote.Savings = roundCents(basePrice - finalPrice)
	} else {
		quote.PriceIncrease = roundCents(finalPrice - basePrice)
	}

	e.applyDailyChangeGuard(ctx, hotel, room, quote)
	e.notify(room, quote)
	return quote, nil
}

// applyDailyChangeGuard holds the proposal for approval when it moves too far
// from the previous accepted price, instead of applying it.
func (e *Engine) applyDailyChangeGuard(ctx context.Context, hotel *domain.Hotel, room *domain.Room, quote *Quote) {
	threshold := e.cfg.MaxDailyPriceChange
	if hotel.Yield.MaxDailyPriceChange > 0 {
		threshold = hotel.Yield.MaxDailyPriceChange
	}
	if room != nil && room.Yield != nil && room.Yield.Enabled &&
		room.Yield.PriceConstraints != nil && room.Yield.PriceConstraints.MaxDailyChangePct > 0 {
		threshold = room.Yield.PriceConstraints.MaxDailyChangePct
	}

	prev := e.previousAcceptedPrice(room)
	if prev <= 0 || threshold <= 0 {
		e.persistDynamicPrice(ctx, room, quote)
		return
	}

	change := math.Abs(quote.FinalPrice-prev) / prev
	if change > threshold {
		quote.Approval = domain.ApprovalPending
		e.metrics.PendingApprovals.Inc()
		log.Info().
			Str("hotel", string(quote.HotelID)).
			Str("room_type", string(quote.RoomType)).
			Float64("previous", prev).
			Float64("proposed", quote.FinalPrice).
			Float64("change", change).
			Msg("price proposal held for approval")
	}
	e.persistDynamicPrice(ctx, room, quote)
}

func (e *Engine) previousAcceptedPrice(room *domain.Room) float64 {
	if room == nil {
		return 0
	}
	if room.DynamicPrice != nil && room.DynamicPrice.Approval.Servable() {
		return room.DynamicPrice.Price
	}
	if n := len(room.PriceHistory); n > 0 {
		return room.PriceHistory[n-1].Price
	}
	return 0
}

// persistDynamicPrice writes the proposal back to the room: the dynamic
// price, a history point when accepted, or a yield suggestion when held.
// Persistence is best-effort; a store failure never fails the quote.
func (e *Engine) persistDynamicPrice(ctx context.Context, room *domain.Room, quote *Quote) {
	if room == nil {
		return
	}
	dp := &domain.DynamicPrice{
		Price:      quote.FinalPrice,
		Currency:   quote.Currency,
		ValidFrom:  quote.ValidFrom,
		ValidUntil: quote.ValidUntil,
		Approval:   quote.Approval,
	}
	room.DynamicPrice = dp
	if quote.Approval.Servable() {
		room.AppendPricePoint(domain.PricePoint{
			Price:      quote.FinalPrice,
			RecordedAt: quote.ValidFrom,
			Source:     "ENGINE",
		})
	} else {
		room.AppendYieldSuggestion(domain.YieldSuggestion{
			SuggestedPrice: quote.FinalPrice,
			Reason:         "exceeds max daily price change",
			CreatedAt:      quote.ValidFrom,
		})
	}
	if err := e.rooms.SaveRoom(ctx, room); err != nil {
		log.Warn().Err(err).Str("room", string(room.ID)).Msg("failed to persist dynamic price")
	}
}

// Review resolves a held price proposal. Approval promotes it to the served
// price and records a history point; rejection keeps the last accepted price
// in force. Either way the cached quotes for the hotel are dropped so the
// next read reflects the decision.
func (e *Engine) Review(ctx context.Context, roomID domain.RoomID, approve bool) error {
	room, err := e.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.DynamicPrice == nil || room.DynamicPrice.Approval != domain.ApprovalPending {
		return errs.Validation(fmt.Errorf("room %s has no pending price proposal", roomID))
	}

	if !approve {
		if err := e.rooms.SetApproval(ctx, roomID, domain.ApprovalRejected); err != nil {
			return err
		}
		e.cache.Invalidate(ctx, domain.InvalidateImmediate, room.HotelID, cache.TagPrice(room.HotelID))
		return nil
	}

	old := 0.0
	if n := len(room.PriceHistory); n > 0 {
		old = room.PriceHistory[n-1].Price
	}
	room.DynamicPrice.Approval = domain.ApprovalApproved
	room.AppendPricePoint(domain.PricePoint{
		Price:      room.DynamicPrice.Price,
		RecordedAt: e.clk.Now(),
		Source:     "APPROVAL",
	})
	if err := e.rooms.SaveRoom(ctx, room); err != nil {
		return err
	}
	e.cache.Invalidate(ctx, domain.InvalidateImmediate, room.HotelID, cache.TagPrice(room.HotelID))
	if e.sink != nil {
		e.sink.PriceUpdate(room.HotelID, room.Type, room.DynamicPrice.ValidFrom,
			old, room.DynamicPrice.Price, room.DynamicPrice.Currency)
	}
	return nil
}

func (e *Engine) notify(room *domain.Room, quote *Quote) {
	if e.sink == nil || !quote.Approval.Servable() {
		return
	}
	old := 0.0
	if room != nil {
		// History now holds the new point last; the previous one is old.
		if n := len(room.PriceHistory); n > 1 {
			old = room.PriceHistory[n-2].Price
		}
	}
	e.sink.PriceUpdate(quote.HotelID, quote.RoomType, quote.ValidFrom, old, quote.FinalPrice, quote.Currency)
}

// resolveBasePrice takes the first available room of the type, falling back
// to the hotel yield base pricing table.
func (e *Engine) resolveBasePrice(ctx context.Context, hotel *domain.Hotel, rt domain.RoomType) (float64, *domain.Room, error) {
	rooms, err := e.rooms.RoomsByHotel(ctx, hotel.ID)
	if err != nil {
		return 0, nil, err
	}
	for i := range rooms {
		if rooms[i].Type == rt && rooms[i].BasePrice > 0 {
			return rooms[i].BasePrice, &rooms[i], nil
		}
	}
	if base := hotel.BasePriceFor(rt); base > 0 {
		return base, nil, nil
	}
	return 0, nil, errs.E(errs.KindPricing, "no base price configured",
		fmt.Errorf("hotel %s has no base price for %s", hotel.ID, rt))
}

// levelFor prefers the hotel's occupancy thresholds over the defaults.
func (e *Engine) levelFor(hotel *domain.Hotel, ratio float64) domain.DemandLevel {
	thresholds := e.cfg.OccupancyThresholds
	if len(hotel.Yield.OccupancyThresholds) > 0 {
		thresholds = hotel.Yield.OccupancyThresholds
	}
	for _, level := range []domain.DemandLevel{
		domain.DemandVeryLow, domain.DemandLow, domain.DemandModerate,
		domain.DemandHigh, domain.DemandVeryHigh, domain.DemandCritical,
	} {
		if bound, ok := thresholds[level]; ok && ratio <= bound {
			return level
		}
	}
	return domain.DemandCritical
}

// weeklyRatio averages demand over the seven days starting at check-in.
func (e *Engine) weeklyRatio(ctx context.Context, req Request) float64 {
	if e.demand == nil {
		return 0
	}
	sum, n := 0.0, 0
	for i := 0; i < 7; i++ {
		ratio, err := e.demand.Ratio(ctx, req.HotelID, req.RoomType, req.CheckIn.AddDate(0, 0, i))
		if err != nil {
			continue
		}
		sum += ratio
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func (e *Engine) convertQuote(ctx context.Context, quote *Quote, currency string) {
	if e.currency == nil {
		quote.ConversionError = true
		return
	}
	conv, err := e.currency.Convert(ctx, quote.FinalPrice, "EUR", currency)
	if err != nil {
		log.Warn().Err(err).Str("currency", currency).Msg("currency conversion failed, serving EUR")
		quote.ConversionError = true
		return
	}
	quote.FinalPrice = roundCents(conv.Amount)
	quote.BasePrice = roundCents(quote.BasePrice * conv.Rate)
	quote.Savings = roundCents(quote.Savings * conv.Rate)
	quote.PriceIncrease = roundCents(quote.PriceIncrease * conv.Rate)
	quote.Currency = currency
	quote.Rate = conv.Rate
}

// roundCents rounds half-up to two decimals through decimal arithmetic.
func roundCents(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// daysBetween counts whole calendar days from a to b in a's location.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, a.Location())
	end := time.Date(by, bm, bd, 0, 0, 0, 0, a.Location())
	return int(end.Sub(start).Hours() / 24)
}

// nightsBetween counts calendar nights, robust across DST transitions.
func nightsBetween(in, out time.Time) int {
	iy, im, id := in.Date()
	oy, om, od := out.Date()
	start := time.Date(iy, im, id, 0, 0, 0, 0, time.UTC)
	end := time.Date(oy, om, od, 0, 0, 0, 0, time.UTC)
	n := 0
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}
