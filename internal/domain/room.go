package domain

import "time"

// Bounds on derived room collections. Older entries are evicted first.
const (
	MaxPriceHistory     = 365
	MaxYieldSuggestions = 30
)

// DynamicPrice is a computed price proposal attached to a room. It is
// servable only while now is inside [ValidFrom, ValidUntil] and the approval
// status allows it.
type DynamicPrice struct {
	Price      float64        `json:"price"`
	Currency   string         `json:"currency"`
	ValidFrom  time.Time      `json:"validFrom"`
	ValidUntil time.Time      `json:"validUntil"`
	Approval   ApprovalStatus `json:"approvalStatus"`
}

// ValidAt reports whether the dynamic price may be served at the given time.
func (p *DynamicPrice) ValidAt(now time.Time) bool {
	if p == nil {
		return false
	}
	if !p.Approval.Servable() {
		return false
	}
	return !now.Before(p.ValidFrom) && !now.After(p.ValidUntil)
}

// PricePoint is a single accepted price in a room's history.
type PricePoint struct {
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recordedAt"`
	Source     string    `json:"source"` // ENGINE, ADMIN
}

// YieldSuggestion is an advisory price recommendation produced by the
// pricing engine when a proposal exceeds the daily change threshold.
type YieldSuggestion struct {
	SuggestedPrice float64   `json:"suggestedPrice"`
	Reason         string    `json:"reason"`
	CreatedAt      time.Time `json:"createdAt"`
}

// RoomYieldOverride carries per-room yield tuning on top of the hotel block.
type RoomYieldOverride struct {
	Enabled          bool              `json:"enabled"`
	PriceConstraints *PriceConstraints `json:"priceConstraints,omitempty"`
	ViewPremium      float64           `json:"viewPremium"`
	FloorPremium     float64           `json:"floorPremium"`
	QuietnessPremium float64           `json:"quietnessPremium"`
}

// RevenueTracking accumulates advisory revenue rollups for a room.
type RevenueTracking struct {
	TotalRevenue   float64   `json:"totalRevenue"`
	NightsSold     int       `json:"nightsSold"`
	LastRollupDate time.Time `json:"lastRollupDate"`
}

// Room is the authoritative room record. Capacity is derived from the type
// and never stored independently.
type Room struct {
	ID               RoomID             `json:"id"`
	HotelID          HotelID            `json:"hotelId"`
	Number           string             `json:"number"`
	Floor            int                `json:"floor"`
	Type             RoomType           `json:"type"`
	BasePrice        float64            `json:"basePrice"`
	Status           RoomStatus         `json:"status"`
	Amenities        []string           `json:"amenities,omitempty"`
	Yield            *RoomYieldOverride `json:"yieldManagement,omitempty"`
	DynamicPrice     *DynamicPrice      `json:"currentDynamicPrice,omitempty"`
	PriceHistory     []PricePoint       `json:"priceHistory,omitempty"`
	YieldSuggestions []YieldSuggestion  `json:"yieldSuggestions,omitempty"`
	Revenue          RevenueTracking    `json:"revenueTracking"`
}

// AppendPricePoint records an accepted price, evicting the oldest entry when
// the history bound is reached.
func (r *Room) AppendPricePoint(p PricePoint) {
	r.PriceHistory = append(r.PriceHistory, p)
	if len(r.PriceHistory) > MaxPriceHistory {
		r.PriceHistory = r.PriceHistory[len(r.PriceHistory)-MaxPriceHistory:]
	}
}

// AppendYieldSuggestion records an advisory suggestion under the same
// eviction policy as price history.
func (r *Room) AppendYieldSuggestion(s YieldSuggestion) {
	r.YieldSuggestions = append(r.YieldSuggestions, s)
	if len(r.YieldSuggestions) > MaxYieldSuggestions {
		r.YieldSuggestions = r.YieldSuggestions[len(r.YieldSuggestions)-MaxYieldSuggestions:]
	}
}

// Constraints resolves the effective price constraints for the room: the
// room-level override wins over the hotel yield block.
func (r *Room) Constraints(h *Hotel) *PriceConstraints {
	if r.Yield != nil && r.Yield.Enabled && r.Yield.PriceConstraints != nil {
		return r.Yield.PriceConstraints
	}
	if h != nil && h.Yield.PriceConstraints != nil {
		if pc, ok := h.Yield.PriceConstraints[r.Type]; ok {
			return &pc
		}
	}
	return nil
}
