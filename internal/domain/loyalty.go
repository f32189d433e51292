package domain

import "time"

// AccountState tracks the loyalty account lifecycle.
type AccountState string

const (
	AccountEnrolled  AccountState = "ENROLLED"
	AccountActive    AccountState = "ACTIVE"
	AccountSuspended AccountState = "SUSPENDED"
)

// TransactionStatus tracks a loyalty transaction's state. Transactions are
// append-only: a reversal or expiry is a new offsetting entry.
type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionReversed  TransactionStatus = "REVERSED"
	TransactionExpired   TransactionStatus = "EXPIRED"
)

// Loyalty transaction reason codes.
const (
	ReasonBookingCompleted = "BOOKING_COMPLETED"
	ReasonRedemption       = "REDEMPTION"
	ReasonExpired          = "EXPIRED"
	ReasonTierBonus        = "TIER_BONUS"
	ReasonCampaignBonus    = "CAMPAIGN_BONUS"
	ReasonAdminAdjustment  = "ADMIN_ADJUSTMENT"
)

// LoyaltyAccount is the authoritative account record for a user.
type LoyaltyAccount struct {
	UserID         UserID       `json:"userId"`
	Tier           Tier         `json:"tier"`
	CurrentPoints  int64        `json:"currentPoints"`
	LifetimePoints int64        `json:"lifetimePoints"`
	State          AccountState `json:"state"`
	EnrolledAt     time.Time    `json:"enrolledAt"`
}

// LoyaltyTransaction is a single signed points movement.
type LoyaltyTransaction struct {
	ID           string            `json:"id"`
	UserID       UserID            `json:"userId"`
	PointsAmount int64             `json:"pointsAmount"`
	Status       TransactionStatus `json:"status"`
	Reason       string            `json:"reason"`
	BookingID    *BookingID        `json:"bookingId,omitempty"`
	IssuedAt     time.Time         `json:"issuedAt"`
	ExpiresAt    *time.Time        `json:"expiresAt,omitempty"`
}

// CampaignType enumerates loyalty campaign kinds.
type CampaignType string

const (
	CampaignBonusMultiplier CampaignType = "BONUS_MULTIPLIER"
	CampaignBonusPoints     CampaignType = "BONUS_POINTS"
	CampaignSpecialOffer    CampaignType = "SPECIAL_OFFER"
)

// Campaign targets a set of tiers, and optionally hotels, with a promotion.
type Campaign struct {
	ID            CampaignID   `json:"id"`
	Name          string       `json:"name"`
	Type          CampaignType `json:"type"`
	EligibleTiers []Tier       `json:"eligibleTiers"`
	HotelIDs      []HotelID    `json:"hotelIds,omitempty"`
	ValidFrom     time.Time    `json:"validFrom"`
	ValidUntil    time.Time    `json:"validUntil"`
	Multiplier    float64      `json:"multiplier,omitempty"`
	BonusPoints   int64        `json:"bonusPoints,omitempty"`
}

// ActiveAt reports whether the campaign window covers the given time.
func (c *Campaign) ActiveAt(now time.Time) bool {
	return !now.Before(c.ValidFrom) && !now.After(c.ValidUntil)
}

// EligibleFor reports whether the given tier is targeted by the campaign.
func (c *Campaign) EligibleFor(t Tier) bool {
	for _, tier := range c.EligibleTiers {
		if tier == t {
			return true
		}
	}
	return false
}
