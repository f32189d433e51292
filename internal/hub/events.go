package hub

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a server-to-client event.
type EventType string

const (
	EvAvailabilityUpdate   EventType = "availability-update"
	EvPriceUpdate          EventType = "price-update"
	EvPriceAlert           EventType = "price-alert"
	EvDemandSurgeAlert     EventType = "demand-surge-alert"
	EvRevenueOptimization  EventType = "revenue-optimization"
	EvPointsEarned         EventType = "loyalty-points-earned"
	EvTierUpgraded         EventType = "loyalty-tier-upgraded"
	EvPointsExpiryAlert    EventType = "loyalty-points-expiry-alert"
	EvPointsRedeemed       EventType = "loyalty-points-redeemed"
	EvCampaignUpdate       EventType = "campaign-update"
	EvCampaignOpportunity  EventType = "campaign-opportunity"
	EvHotelCampaign        EventType = "hotel-campaign-notification"
	EvYieldDashboard       EventType = "yield-dashboard-update"
	EvLoyaltyDashboard     EventType = "loyalty-dashboard-update"
	EvLoyaltyStatus        EventType = "loyalty-status"
	EvRedemptionOptions    EventType = "redemption-options"
	EvJoined               EventType = "joined"
	EvLeft                 EventType = "left"
	EvError                EventType = "error"
)

// Event is a tagged wire record. On the wire the payload fields are flattened
// next to type and timestamp.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   map[string]any
}

// NewEvent stamps an event with the given payload.
func NewEvent(t EventType, ts time.Time, payload map[string]any) Event {
	return Event{Type: t, Timestamp: ts, Payload: payload}
}

// MarshalJSON flattens the payload into the top-level object.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Payload)+2)
	for k, v := range e.Payload {
		out[k] = v
	}
	out["type"] = string(e.Type)
	out["timestamp"] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

// UnmarshalJSON splits type and timestamp back out of the flat object.
func (e *Event) UnmarshalJSON(data []byte) error {
	raw := make(map[string]any)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, _ := raw["type"].(string)
	if t == "" {
		return fmt.Errorf("event missing type")
	}
	e.Type = EventType(t)
	if ts, ok := raw["timestamp"].(string); ok {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return fmt.Errorf("bad event timestamp: %w", err)
		}
		e.Timestamp = parsed
	}
	delete(raw, "type")
	delete(raw, "timestamp")
	e.Payload = raw
	return nil
}

// control is a client-to-server message. Control types carry a room suffix
// (join-pricing:H1) or a payload (watch-hotel-prices).
type control struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
