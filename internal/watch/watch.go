// Package watch tracks client price watches and turns matching price updates
// into direct alerts.
package watch

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/clock"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/errs"
)

// Watch is one client's declared price interest.
type Watch struct {
	HotelID        domain.HotelID    `json:"hotelId"`
	RoomTypes      []domain.RoomType `json:"roomTypes"`
	CheckIn        *time.Time        `json:"checkIn,omitempty"`
	CheckOut       *time.Time        `json:"checkOut,omitempty"`
	MaxPrice       float64           `json:"maxPrice"`
	AlertThreshold float64           `json:"alertThreshold"` // percent drop
}

// matches reports whether a price update for (hotel, roomType, date) falls
// inside the watch.
func (w *Watch) matches(hotelID domain.HotelID, rt domain.RoomType, date time.Time) bool {
	if w.HotelID != hotelID {
		return false
	}
	if len(w.RoomTypes) > 0 {
		found := false
		for _, t := range w.RoomTypes {
			if t == rt {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if w.CheckIn != nil && date.Before(*w.CheckIn) {
		return false
	}
	if w.CheckOut != nil && !date.Before(*w.CheckOut) {
		return false
	}
	return true
}

// Alert is the payload delivered for a triggered watch.
type Alert struct {
	HotelID  domain.HotelID  `json:"hotelId"`
	RoomType domain.RoomType `json:"roomType"`
	Date     time.Time       `json:"date"`
	OldPrice float64         `json:"oldPrice"`
	NewPrice float64         `json:"newPrice"`
	Currency string          `json:"currency"`
	Reason   string          `json:"reason"` // under-max or drop-threshold
}

// AlertFunc delivers an alert directly to a user.
type AlertFunc func(userID domain.UserID, alert Alert)

// entry holds one user's watches and presence state.
type entry struct {
	watches        []Watch
	alertsReceived int64
	online         bool
	disconnectedAt time.Time
}

// Registry holds active watches. Watches expire a fixed interval after the
// user's last disconnect unless the user reconnects or renews.
type Registry struct {
	clk    clock.Clock
	expiry time.Duration
	emit   AlertFunc

	mu      sync.Mutex
	entries map[domain.UserID]*entry
}

// NewRegistry builds a watch registry.
func NewRegistry(clk clock.Clock, expiry time.Duration) *Registry {
	return &Registry{
		clk:     clk,
		expiry:  expiry,
		entries: make(map[domain.UserID]*entry),
	}
}

// SetAlertFunc attaches the alert delivery callback.
func (r *Registry) SetAlertFunc(fn AlertFunc) { r.emit = fn }

// Register parses and stores a watch declaration. Re-registering renews the
// user's watch set.
func (r *Registry) Register(userID domain.UserID, payload json.RawMessage) error {
	var w Watch
	if err := json.Unmarshal(payload, &w); err != nil {
		return errs.Validation(fmt.Errorf("malformed watch payload: %w", err))
	}
	if w.HotelID == "" {
		return errs.Validation(fmt.Errorf("watch requires a hotelId"))
	}
	if w.MaxPrice <= 0 && w.AlertThreshold <= 0 {
		return errs.Validation(fmt.Errorf("watch requires maxPrice or alertThreshold"))
	}
	for _, rt := range w.RoomTypes {
		if !rt.Valid() {
			return errs.Validation(fmt.Errorf("unknown room type %q", rt))
		}
	}
	if w.CheckIn != nil && w.CheckOut != nil && !w.CheckIn.Before(*w.CheckOut) {
		return errs.Validation(fmt.Errorf("watch check-in must precede check-out"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[userID]
	if !ok {
		e = &entry{online: true}
		r.entries[userID] = e
	}
	e.watches = append(e.watches, w)
	return nil
}

// OnConnect marks the user present, keeping their watches alive.
func (r *Registry) OnConnect(userID domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[userID]; ok {
		e.online = true
	}
}

// OnDisconnect starts the expiry window for the user's watches.
func (r *Registry) OnDisconnect(userID domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[userID]; ok {
		e.online = false
		e.disconnectedAt = r.clk.Now()
	}
}

// OnPriceUpdate checks every live watch against a new price and emits alerts
// for matches. Expired watch sets are pruned in passing.
func (r *Registry) OnPriceUpdate(hotelID domain.HotelID, rt domain.RoomType, date time.Time, oldPrice, newPrice float64, currency string) {
	now := r.clk.Now()

	type hit struct {
		userID domain.UserID
		alert  Alert
	}
	var hits []hit

	r.mu.Lock()
	for userID, e := range r.entries {
		if r.expiredLocked(e, now) {
			delete(r.entries, userID)
			continue
		}
		for _, w := range e.watches {
			if !w.matches(hotelID, rt, date) {
				continue
			}
			reason := ""
			if w.MaxPrice > 0 && newPrice <= w.MaxPrice {
				reason = "under-max"
			} else if w.AlertThreshold > 0 && oldPrice > 0 {
				dropPct := (oldPrice - newPrice) / oldPrice * 100
				if dropPct >= w.AlertThreshold {
					reason = "drop-threshold"
				}
			}
			if reason == "" {
				continue
			}
			e.alertsReceived++
			hits = append(hits, hit{userID: userID, alert: Alert{
				HotelID:  hotelID,
				RoomType: rt,
				Date:     date,
				OldPrice: oldPrice,
				NewPrice: newPrice,
				Currency: currency,
				Reason:   reason,
			}})
			break // one alert per user per update
		}
	}
	r.mu.Unlock()

	if r.emit == nil {
		return
	}
	for _, h := range hits {
		r.emit(h.userID, h.alert)
	}
}

func (r *Registry) expiredLocked(e *entry, now time.Time) bool {
	return !e.online && now.Sub(e.disconnectedAt) > r.expiry
}

// Sweep removes expired watch sets; used by the background sweeper. Returns
// the number of users pruned.
func (r *Registry) Sweep() int {
	now := r.clk.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	pruned := 0
	for userID, e := range r.entries {
		if r.expiredLocked(e, now) {
			delete(r.entries, userID)
			pruned++
		}
	}
	return pruned
}

// AlertsReceived returns the user's triggered-alert counter.
func (r *Registry) AlertsReceived(userID domain.UserID) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[userID]; ok {
		return e.alertsReceived
	}
	return 0
}

// WatchCount returns the number of active watches for a user.
func (r *Registry) WatchCount(userID domain.UserID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[userID]; ok {
		return len(e.watches)
	}
	return 0
}
