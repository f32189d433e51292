package domain

// Opaque identifiers for the core entities. They are plain strings at the
// storage boundary but typed here so call sites cannot mix them up.
type (
	HotelID    string
	RoomID     string
	UserID     string
	BookingID  string
	CampaignID string
)

// RoomType enumerates the bookable room categories.
type RoomType string

const (
	RoomSimple        RoomType = "SIMPLE"
	RoomDouble        RoomType = "DOUBLE"
	RoomDoubleConfort RoomType = "DOUBLE_CONFORT"
	RoomSuite         RoomType = "SUITE"
)

// AllRoomTypes lists every room type in display order.
var AllRoomTypes = []RoomType{RoomSimple, RoomDouble, RoomDoubleConfort, RoomSuite}

// Valid reports whether rt is a known room type.
func (rt RoomType) Valid() bool {
	switch rt {
	case RoomSimple, RoomDouble, RoomDoubleConfort, RoomSuite:
		return true
	}
	return false
}

// Capacity returns the adult/children capacity derived from the room type.
func (rt RoomType) Capacity() (adults, children int) {
	switch rt {
	case RoomSimple:
		return 1, 0
	case RoomDouble:
		return 2, 1
	case RoomDoubleConfort:
		return 2, 2
	case RoomSuite:
		return 4, 2
	default:
		return 0, 0
	}
}

// RoomStatus enumerates operational room states. Only AVAILABLE rooms count
// toward sellable inventory.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "AVAILABLE"
	RoomOccupied    RoomStatus = "OCCUPIED"
	RoomMaintenance RoomStatus = "MAINTENANCE"
	RoomOutOfOrder  RoomStatus = "OUT_OF_ORDER"
	RoomCleaning    RoomStatus = "CLEANING"
)

// BookingStatus enumerates the booking lifecycle.
type BookingStatus string

const (
	BookingPending    BookingStatus = "PENDING"
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingCheckedIn  BookingStatus = "CHECKED_IN"
	BookingCheckedOut BookingStatus = "CHECKED_OUT"
	BookingCancelled  BookingStatus = "CANCELLED"
	BookingCompleted  BookingStatus = "COMPLETED"
)

// CountsAgainstInventory reports whether a booking in this status consumes
// room inventory for availability purposes.
func (s BookingStatus) CountsAgainstInventory() bool {
	return s == BookingConfirmed || s == BookingCheckedIn
}

// Tier enumerates loyalty tiers from lowest to highest.
type Tier string

const (
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
	TierDiamond  Tier = "DIAMOND"
)

// TierOrder lists tiers in ascending rank.
var TierOrder = []Tier{TierBronze, TierSilver, TierGold, TierPlatinum, TierDiamond}

// Rank returns the ordinal rank of the tier (BRONZE=0 .. DIAMOND=4), or -1
// for an unknown tier.
func (t Tier) Rank() int {
	for i, tier := range TierOrder {
		if tier == t {
			return i
		}
	}
	return -1
}

// AtLeast reports whether t ranks at or above other.
func (t Tier) AtLeast(other Tier) bool {
	return t.Rank() >= other.Rank()
}

// ApprovalStatus tracks the review state of a proposed dynamic price. Only
// APPROVED and AUTO_APPROVED prices are served to callers.
type ApprovalStatus string

const (
	ApprovalPending      ApprovalStatus = "PENDING"
	ApprovalApproved     ApprovalStatus = "APPROVED"
	ApprovalRejected     ApprovalStatus = "REJECTED"
	ApprovalAutoApproved ApprovalStatus = "AUTO_APPROVED"
)

// Servable reports whether a price in this approval state may be served.
func (a ApprovalStatus) Servable() bool {
	return a == ApprovalApproved || a == ApprovalAutoApproved
}

// DemandLevel is the discrete occupancy bucket feeding the pricing engine.
type DemandLevel string

const (
	DemandVeryLow  DemandLevel = "VERY_LOW"
	DemandLow      DemandLevel = "LOW"
	DemandModerate DemandLevel = "MODERATE"
	DemandHigh     DemandLevel = "HIGH"
	DemandVeryHigh DemandLevel = "VERY_HIGH"
	DemandCritical DemandLevel = "CRITICAL"
)

// Role enumerates subscriber roles on the realtime hub.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleReceptionist Role = "RECEPTIONIST"
	RoleClient       Role = "CLIENT"
)

// CacheStrategy selects the per-hotel caching posture.
type CacheStrategy string

const (
	CacheAggressive   CacheStrategy = "AGGRESSIVE"
	CacheBalanced     CacheStrategy = "BALANCED"
	CacheConservative CacheStrategy = "CONSERVATIVE"
)

// InvalidationStrategy selects how cache entries are torn down on mutation.
type InvalidationStrategy string

const (
	InvalidateImmediate InvalidationStrategy = "IMMEDIATE"
	InvalidateDelayed   InvalidationStrategy = "DELAYED"
	InvalidateScheduled InvalidationStrategy = "SCHEDULED"
	InvalidateSmart     InvalidationStrategy = "SMART"
)
