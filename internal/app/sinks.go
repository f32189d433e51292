package app

import (
	"fmt"
	"time"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/availability"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/clock"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/hub"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/watch"
)

// wireSinks connects the engines to the hub and the watch registry. The
// engines only see narrow interfaces; all routing knowledge lives here.
func (a *App) wireSinks() {
	a.Pricing.SetSink(&pricingSink{hub: a.Hub, watches: a.Watches, clk: a.Clock})
	a.Availability.SetSink(&availabilitySink{hub: a.Hub, clk: a.Clock})
	a.Demand.OnSurge(a.surgeAlert)
	a.Loyalty.SetSink(&loyaltySink{hub: a.Hub, clk: a.Clock})
	a.Loyalty.SetPrefs(a.Hub)

	a.Hub.SetLoyalty(a.Loyalty)
	a.Hub.SetWatchHandler(a.Watches.Register)
	a.Hub.SetPresenceHooks(a.Watches.OnConnect, a.Watches.OnDisconnect)
	a.Watches.SetAlertFunc(a.priceAlert)
}

// pricingSink routes price updates to the pricing and hotel rooms and feeds
// the watch registry.
type pricingSink struct {
	hub     *hub.Hub
	watches *watch.Registry
	clk     clock.Clock
}

func (s *pricingSink) PriceUpdate(hotelID domain.HotelID, rt domain.RoomType, date time.Time, oldPrice, newPrice float64, currency string) {
	ev := hub.NewEvent(hub.EvPriceUpdate, s.clk.Now(), map[string]any{
		"hotelId":  string(hotelID),
		"roomType": string(rt),
		"date":     date.Format("2006-01-02"),
		"oldPrice": oldPrice,
		"newPrice": newPrice,
		"currency": currency,
	})
	s.hub.Emit(ev, fmt.Sprintf("pricing:%s", hotelID), fmt.Sprintf("hotel:%s", hotelID))
	s.watches.OnPriceUpdate(hotelID, rt, date, oldPrice, newPrice, currency)
}

// availabilitySink routes availability deltas and booking events.
type availabilitySink struct {
	hub *hub.Hub
	clk clock.Clock
}

func (s *availabilitySink) AvailabilityChanged(hotelID domain.HotelID, snap *availability.Snapshot) {
	ev := hub.NewEvent(hub.EvAvailabilityUpdate, s.clk.Now(), map[string]any{
		"hotelId":       string(hotelID),
		"checkIn":       snap.CheckIn.Format("2006-01-02"),
		"checkOut":      snap.CheckOut.Format("2006-01-02"),
		"roomTypes":     snap.RoomTypes,
		"occupancyRate": snap.OccupancyRate,
	})
	s.hub.Emit(ev, fmt.Sprintf("hotel:%s", hotelID), "clients")
}

func (s *availabilitySink) BookingEvent(hotelID domain.HotelID, action string, booking *domain.Booking) {
	ev := hub.NewEvent(hub.EvAvailabilityUpdate, s.clk.Now(), map[string]any{
		"hotelId":   string(hotelID),
		"bookingId": string(booking.ID),
		"action":    action,
	})
	s.hub.Emit(ev, fmt.Sprintf("hotel:%s", hotelID))
}

// surgeAlert routes demand surges to the monitoring rooms.
func (a *App) surgeAlert(hotelID domain.HotelID, rt domain.RoomType, date time.Time, level domain.DemandLevel, ratio float64) {
	ev := hub.NewEvent(hub.EvDemandSurgeAlert, a.Clock.Now(), map[string]any{
		"hotelId":  string(hotelID),
		"roomType": string(rt),
		"date":     date.Format("2006-01-02"),
		"level":    string(level),
		"ratio":    ratio,
	})
	a.Hub.Emit(ev, fmt.Sprintf("demand:%s", hotelID), fmt.Sprintf("hotel:%s", hotelID), "yield-admin")
}

// priceAlert delivers a triggered watch directly to the user.
func (a *App) priceAlert(userID domain.UserID, alert watch.Alert) {
	ev := hub.NewEvent(hub.EvPriceAlert, a.Clock.Now(), map[string]any{
		"hotelId":  string(alert.HotelID),
		"roomType": string(alert.RoomType),
		"date":     alert.Date.Format("2006-01-02"),
		"oldPrice": alert.OldPrice,
		"newPrice": alert.NewPrice,
		"currency": alert.Currency,
		"reason":   alert.Reason,
	})
	a.Hub.EmitUser(userID, ev)
}

// loyaltySink routes loyalty events per the fan-out table.
type loyaltySink struct {
	hub *hub.Hub
	clk clock.Clock
}

func (s *loyaltySink) PointsEarned(userID domain.UserID, payload map[string]any) {
	ev := hub.NewEvent(hub.EvPointsEarned, s.clk.Now(), payload)
	s.hub.Emit(ev, fmt.Sprintf("user:%s", userID), "loyalty-admin")
}

func (s *loyaltySink) TierUpgraded(userID domain.UserID, oldTier, newTier domain.Tier, payload map[string]any) {
	ev := hub.NewEvent(hub.EvTierUpgraded, s.clk.Now(), payload)
	s.hub.Emit(ev,
		fmt.Sprintf("user:%s", userID),
		fmt.Sprintf("loyalty-tier:%s", newTier),
		"loyalty-admin")
	s.hub.MoveTierRoom(userID, oldTier, newTier)
}

func (s *loyaltySink) PointsRedeemed(userID domain.UserID, payload map[string]any) {
	ev := hub.NewEvent(hub.EvPointsRedeemed, s.clk.Now(), payload)
	s.hub.EmitUser(userID, ev)
}

func (s *loyaltySink) ExpiryAlert(userID domain.UserID, payload map[string]any) {
	ev := hub.NewEvent(hub.EvPointsExpiryAlert, s.clk.Now(), payload)
	s.hub.EmitUser(userID, ev)
}

func (s *loyaltySink) CampaignBroadcast(c *domain.Campaign) {
	now := s.clk.Now()
	payload := map[string]any{
		"campaignId": string(c.ID),
		"name":       c.Name,
		"campaign":   c,
		"validUntil": c.ValidUntil.UTC().Format(time.RFC3339),
	}
	s.hub.Emit(hub.NewEvent(hub.EvCampaignUpdate, now, payload), fmt.Sprintf("campaign:%s", c.ID))
	for _, tier := range c.EligibleTiers {
		s.hub.Emit(hub.NewEvent(hub.EvCampaignOpportunity, now, payload), fmt.Sprintf("loyalty-tier:%s", tier))
	}
	for _, hotelID := range c.HotelIDs {
		s.hub.Emit(hub.NewEvent(hub.EvHotelCampaign, now, payload), fmt.Sprintf("loyalty-hotel:%s", hotelID))
	}
}

// rollupNotifier routes daily rollups to the revenue dashboards.
type rollupNotifier struct {
	hub *hub.Hub
	clk clock.Clock
}

func (n *rollupNotifier) RevenueOptimization(hotelID domain.HotelID, payload map[string]any) {
	ev := hub.NewEvent(hub.EvRevenueOptimization, n.clk.Now(), payload)
	n.hub.Emit(ev, "revenue-monitoring", fmt.Sprintf("hotel:%s", hotelID))
}
