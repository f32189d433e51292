package domain

import (
	"fmt"
	"time"
)

// ValidateHotel checks the structural invariants of a hotel record.
func ValidateHotel(h *Hotel) error {
	if h.ID == "" {
		return fmt.Errorf("hotel id is required")
	}
	if h.Stars < 1 || h.Stars > 5 {
		return fmt.Errorf("hotel %s: stars must be in [1,5], got %d", h.ID, h.Stars)
	}
	if h.QRSettings.Enabled {
		anyType := false
		for _, enabled := range h.QRSettings.EnabledTypes {
			if enabled {
				anyType = true
				break
			}
		}
		if !anyType {
			return fmt.Errorf("hotel %s: qr enabled but no qr type enabled", h.ID)
		}
		if h.QRSettings.RequireGeolocation && h.Coordinates == nil {
			return fmt.Errorf("hotel %s: qr geolocation required but coordinates missing", h.ID)
		}
	}
	for rt, pc := range h.Yield.PriceConstraints {
		if pc.MinPrice > pc.MaxPrice {
			return fmt.Errorf("hotel %s: price constraints for %s inverted (min %.2f > max %.2f)",
				h.ID, rt, pc.MinPrice, pc.MaxPrice)
		}
	}
	for _, ep := range h.Yield.EventPricing {
		if ep.Multiplier < 1.0 || ep.Multiplier > 5.0 {
			return fmt.Errorf("hotel %s: event %q multiplier %.2f outside [1.0, 5.0]", h.ID, ep.Name, ep.Multiplier)
		}
	}
	return nil
}

// ValidateRoom checks the structural invariants of a room record against its
// hotel configuration.
func ValidateRoom(r *Room, h *Hotel) error {
	if !r.Type.Valid() {
		return fmt.Errorf("room %s: unknown room type %q", r.ID, r.Type)
	}
	if r.BasePrice < 0 {
		return fmt.Errorf("room %s: base price must be non-negative, got %.2f", r.ID, r.BasePrice)
	}
	if pc := r.Constraints(h); pc != nil && r.BasePrice > 0 {
		if r.BasePrice < pc.MinPrice || r.BasePrice > pc.MaxPrice {
			return fmt.Errorf("room %s: base price %.2f outside constraints [%.2f, %.2f]",
				r.ID, r.BasePrice, pc.MinPrice, pc.MaxPrice)
		}
	}
	if len(r.PriceHistory) > MaxPriceHistory {
		return fmt.Errorf("room %s: price history exceeds %d entries", r.ID, MaxPriceHistory)
	}
	if len(r.YieldSuggestions) > MaxYieldSuggestions {
		return fmt.Errorf("room %s: yield suggestions exceed %d entries", r.ID, MaxYieldSuggestions)
	}
	return nil
}

// ValidateBooking rejects malformed stays at ingress. Zero-night bookings
// are not accepted.
func ValidateBooking(b *Booking) error {
	if b.HotelID == "" {
		return fmt.Errorf("booking %s: hotel id is required", b.ID)
	}
	if !b.CheckIn.Before(b.CheckOut) {
		return fmt.Errorf("booking %s: check-in %s must precede check-out %s",
			b.ID, b.CheckIn.Format(time.RFC3339), b.CheckOut.Format(time.RFC3339))
	}
	if len(b.Rooms) == 0 {
		return fmt.Errorf("booking %s: at least one room line is required", b.ID)
	}
	for _, line := range b.Rooms {
		if !line.RoomType.Valid() {
			return fmt.Errorf("booking %s: unknown room type %q", b.ID, line.RoomType)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("booking %s: quantity for %s must be positive", b.ID, line.RoomType)
		}
	}
	if b.TotalPrice < 0 {
		return fmt.Errorf("booking %s: total price must be non-negative", b.ID)
	}
	return nil
}
