// Package availability serves real-time room availability snapshots and
// reacts to booking mutations. Snapshots are derived entirely from the
// store; the cache only shortcuts the recomputation.
package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/cache"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/clock"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/config"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/demand"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/errs"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/metrics"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/pricing"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/store"
)

// RoomTypeAvailability is the per-type slice of a snapshot.
type RoomTypeAvailability struct {
	RoomType  domain.RoomType `json:"roomType"`
	Total     int             `json:"total"`
	Booked    int             `json:"booked"`
	Available int             `json:"available"`
	Price     float64         `json:"price,omitempty"`
	Currency  string          `json:"currency,omitempty"`
}

// Snapshot is the availability answer for one hotel and date range.
type Snapshot struct {
	HotelID       domain.HotelID         `json:"hotelId"`
	CheckIn       time.Time              `json:"checkIn"`
	CheckOut      time.Time              `json:"checkOut"`
	RoomTypes     []RoomTypeAvailability `json:"roomTypes"`
	OccupancyRate float64                `json:"occupancyRate"`
	ComputedAt    time.Time              `json:"computedAt"`
	FromCache     bool                   `json:"fromCache"`
}

// Occupancy is the short-lived live occupancy answer for today.
type Occupancy struct {
	HotelID       domain.HotelID `json:"hotelId"`
	Date          time.Time      `json:"date"`
	TotalRooms    int            `json:"totalRooms"`
	OccupiedUnits int            `json:"occupiedUnits"`
	OccupancyRate float64        `json:"occupancyRate"`
	ComputedAt    time.Time      `json:"computedAt"`
}

// Sink receives availability change notifications for fan-out.
type Sink interface {
	AvailabilityChanged(hotelID domain.HotelID, snap *Snapshot)
	BookingEvent(hotelID domain.HotelID, action string, booking *domain.Booking)
}

// Service answers availability queries and keeps caches coherent across
// booking mutations.
type Service struct {
	hotels   store.HotelStore
	rooms    store.RoomStore
	bookings store.BookingStore
	cache    *cache.Hybrid
	engine   *pricing.Engine
	demand   *demand.Tracker
	clk      clock.Clock
	cfg      config.Availability
	metrics  *metrics.Registry
	sink     Sink

	mu    sync.Mutex
	locks map[domain.HotelID]*sync.Mutex
}

// New wires an availability service. The demand tracker may be attached
// later via SetDemand to break construction-order cycles.
func New(hotels store.HotelStore, rooms store.RoomStore, bookings store.BookingStore,
	c *cache.Hybrid, engine *pricing.Engine, clk clock.Clock, cfg config.Availability, reg *metrics.Registry) *Service {
	return &Service{
		hotels:   hotels,
		rooms:    rooms,
		bookings: bookings,
		cache:    c,
		engine:   engine,
		clk:      clk,
		cfg:      cfg,
		metrics:  reg,
		locks:    make(map[domain.HotelID]*sync.Mutex),
	}
}

// SetDemand attaches the demand tracker.
func (s *Service) SetDemand(t *demand.Tracker) { s.demand = t }

// SetSink registers the fan-out sink.
func (s *Service) SetSink(sink Sink) { s.sink = sink }

// hotelLock returns the per-hotel mutex serializing booking mutations.
func (s *Service) hotelLock(id domain.HotelID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// GetAvailability returns the availability snapshot for a hotel and date
// range, serving from cache when fresh.
func (s *Service) GetAvailability(ctx context.Context, hotelID domain.HotelID, checkIn, checkOut time.Time) (*Snapshot, error) {
	if !checkIn.Before(checkOut) {
		return nil, errs.Validation(fmt.Errorf("check-in must precede check-out"))
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Deadline)
	defer cancel()

	hotel, err := s.hotels.GetHotel(ctx, hotelID)
	if err != nil {
		return nil, err
	}

	key := cache.AvailKey(hotelID, checkIn, checkOut)
	raw, fromCache, err := s.cache.GetOrCompute(ctx, key, cache.CategoryAvailability, &hotel.Cache,
		[]string{cache.TagAvail(hotelID)},
		func(ctx context.Context) ([]byte, error) {
			snap, err := s.compute(ctx, hotel, checkIn, checkOut)
			if err != nil {
				return nil, err
			}
			return json.Marshal(snap)
		})
	if err != nil {
		s.metrics.AvailabilityLookups.WithLabelValues("error").Inc()
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode cached availability: %w", err)
	}
	snap.FromCache = fromCache

	if fromCache {
		s.metrics.AvailabilityLookups.WithLabelValues("cached").Inc()
	} else {
		s.metrics.AvailabilityLookups.WithLabelValues("computed").Inc()
	}
	return &snap, nil
}

// compute builds a snapshot from the authoritative store: sellable rooms per
// type minus overlapping inventory-consuming bookings.
func (s *Service) compute(ctx context.Context, hotel *domain.Hotel, checkIn, checkOut time.Time) (*Snapshot, error) {
	rooms, err := s.rooms.RoomsByHotel(ctx, hotel.ID)
	if err != nil {
		return nil, err
	}

	totals := make(map[domain.RoomType]int)
	for _, r := range rooms {
		if r.Status == domain.RoomAvailable && r.Type.Valid() {
			totals[r.Type]++
		}
	}

	booked := make(map[domain.RoomType]int)
	overlapping, err := s.bookings.OverlappingBookings(ctx, hotel.ID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	for i := range overlapping {
		b := &overlapping[i]
		if !b.Status.CountsAgainstInventory() || !b.Overlaps(checkIn, checkOut) {
			continue
		}
		for _, line := range b.Rooms {
			booked[line.RoomType] += line.Quantity
		}
	}

	snap := &Snapshot{
		HotelID:    hotel.ID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		ComputedAt: s.clk.Now(),
	}

	sumTotal, sumAvail := 0, 0
	for _, rt := range domain.AllRoomTypes {
		total := totals[rt]
		if total == 0 {
			continue
		}
		avail := total - booked[rt]
		if avail < 0 {
			avail = 0
		}
		entry := RoomTypeAvailability{
			RoomType:  rt,
			Total:     total,
			Booked:    booked[rt],
			Available: avail,
		}
		if quote, err := s.engine.Quote(ctx, pricing.Request{
			HotelID:  hotel.ID,
			RoomType: rt,
			CheckIn:  checkIn,
			CheckOut: checkOut,
		}); err != nil {
			log.Warn().Err(err).
				Str("hotel", string(hotel.ID)).
				Str("room_type", string(rt)).
				Msg("price unavailable for availability snapshot")
		} else {
			entry.Price = quote.FinalPrice
			entry.Currency = quote.Currency
		}
		snap.RoomTypes = append(snap.RoomTypes, entry)
		sumTotal += total
		sumAvail += avail
	}

	// A hotel with zero sellable rooms has occupancy 0, never NaN.
	if sumTotal > 0 {
		snap.OccupancyRate = 1 - float64(sumAvail)/float64(sumTotal)
	}
	return snap, nil
}

// OnBookingChanged reacts to a booking mutation: invalidate affected cache
// entries per the hotel's strategy, feed the demand counters, recompute, and
// broadcast the fresh snapshot. Mutations for the same hotel are serialized.
func (s *Service) OnBookingChanged(ctx context.Context, booking *domain.Booking, action string) error {
	lock := s.hotelLock(booking.HotelID)
	lock.Lock()
	defer lock.Unlock()

	s.metrics.BookingEvents.WithLabelValues(action).Inc()

	hotel, err := s.hotels.GetHotel(ctx, booking.HotelID)
	if err != nil {
		return err
	}
	loc := hotel.Location()

	s.invalidateForBooking(ctx, hotel)

	// Counters move with the inventory: +1 per unit when the booking starts
	// consuming inventory, -1 when it stops.
	delta := 0
	switch action {
	case "created", "confirmed":
		delta = 1
	case "cancelled", "checked_out":
		delta = -1
	}
	if delta != 0 && s.demand != nil {
		for _, line := range booking.Rooms {
			for _, date := range booking.DatesCovered(loc) {
				if err := s.demand.Record(ctx, booking.HotelID, line.RoomType, date, delta*line.Quantity); err != nil {
					log.Warn().Err(err).
						Str("hotel", string(booking.HotelID)).
						Str("room_type", string(line.RoomType)).
						Msg("demand counter update failed")
				}
			}
		}
	}

	snap, err := s.compute(ctx, hotel, booking.CheckIn, booking.CheckOut)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal availability snapshot: %w", err)
	}
	s.cache.Set(ctx, cache.AvailKey(booking.HotelID, booking.CheckIn, booking.CheckOut), raw,
		cache.CategoryAvailability, &hotel.Cache, cache.TagAvail(booking.HotelID))

	if s.sink != nil {
		s.sink.BookingEvent(booking.HotelID, action, booking)
		s.sink.AvailabilityChanged(booking.HotelID, snap)
	}
	return nil
}

// invalidateForBooking tears down the hotel's derived cache entries. The
// CONSERVATIVE posture keeps pricing entries alive until they expire.
func (s *Service) invalidateForBooking(ctx context.Context, hotel *domain.Hotel) {
	if !hotel.Cache.InvalidateOnBooking && hotel.Cache.Strategy == domain.CacheConservative {
		return
	}
	strategy := hotel.Cache.InvalidationStrategy
	if strategy == "" {
		strategy = domain.InvalidateImmediate
	}
	tags := []string{cache.TagAvail(hotel.ID), cache.TagOccupancy(hotel.ID)}
	if hotel.Cache.Strategy != domain.CacheConservative {
		tags = append(tags, cache.TagPrice(hotel.ID))
	}
	s.cache.Invalidate(ctx, strategy, hotel.ID, tags...)
}

// RealTimeOccupancy reports the live occupancy for today in the hotel's
// timezone, cached on the short occupancy TTL.
func (s *Service) RealTimeOccupancy(ctx context.Context, hotelID domain.HotelID) (*Occupancy, error) {
	hotel, err := s.hotels.GetHotel(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	loc := hotel.Location()
	now := s.clk.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	tomorrow := today.AddDate(0, 0, 1)

	key := cache.OccupancyKey(hotelID, today)
	raw, _, err := s.cache.GetOrCompute(ctx, key, cache.CategoryOccupancy, &hotel.Cache,
		[]string{cache.TagOccupancy(hotelID)},
		func(ctx context.Context) ([]byte, error) {
			snap, err := s.compute(ctx, hotel, today, tomorrow)
			if err != nil {
				return nil, err
			}
			occ := Occupancy{
				HotelID:       hotelID,
				Date:          today,
				ComputedAt:    snap.ComputedAt,
				OccupancyRate: snap.OccupancyRate,
			}
			for _, rt := range snap.RoomTypes {
				occ.TotalRooms += rt.Total
				occ.OccupiedUnits += rt.Booked
			}
			return json.Marshal(occ)
		})
	if err != nil {
		return nil, err
	}

	var occ Occupancy
	if err := json.Unmarshal(raw, &occ); err != nil {
		return nil, fmt.Errorf("failed to decode cached occupancy: %w", err)
	}
	return &occ, nil
}

// Warm precomputes availability and prices for the next horizonDays nightly
// windows. Used by the warming worker and the ops CLI.
func (s *Service) Warm(ctx context.Context, hotelID domain.HotelID, horizonDays int) error {
	hotel, err := s.hotels.GetHotel(ctx, hotelID)
	if err != nil {
		return err
	}
	if horizonDays <= 0 {
		horizonDays = hotel.Cache.WarmingHorizonDays
	}
	if horizonDays <= 0 {
		horizonDays = 7
	}

	loc := hotel.Location()
	now := s.clk.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	for i := 0; i < horizonDays; i++ {
		in := today.AddDate(0, 0, i)
		out := in.AddDate(0, 0, 1)
		if _, err := s.GetAvailability(ctx, hotelID, in, out); err != nil {
			log.Warn().Err(err).
				Str("hotel", string(hotelID)).
				Time("check_in", in).
				Msg("cache warming window failed")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// Recount is the authoritative demand recount used by the tracker: booked
// units of a type whose stay covers the given night.
func (s *Service) Recount(ctx context.Context, hotelID domain.HotelID, rt domain.RoomType, date time.Time) (int, error) {
	from := date
	to := date.AddDate(0, 0, 1)
	overlapping, err := s.bookings.OverlappingBookings(ctx, hotelID, from, to)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range overlapping {
		b := &overlapping[i]
		if b.Status.CountsAgainstInventory() && b.Overlaps(from, to) {
			count += b.QuantityOf(rt)
		}
	}
	return count, nil
}

// Capacity counts sellable rooms of a type at a hotel.
func (s *Service) Capacity(ctx context.Context, hotelID domain.HotelID, rt domain.RoomType) (int, error) {
	rooms, err := s.rooms.RoomsByHotel(ctx, hotelID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, r := range rooms {
		if r.Type == rt && r.Status == domain.RoomAvailable {
			total++
		}
	}
	return total, nil
}
