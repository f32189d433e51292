package cache

import (
	"fmt"
	"time"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
)

// Category identifies a cached data family. TTLs, tier policy, and warming
// priority are keyed by category.
type Category string

const (
	CategoryAvailability Category = "availability"
	CategoryPricing      Category = "pricing"
	CategoryDemand       Category = "demand"
	CategoryOccupancy    Category = "occupancy"
	CategoryHotelData    Category = "hotelData"
	CategoryAnalytics    Category = "analytics"
)

// WarmingPriority orders categories for cache warming. Lower runs first.
var WarmingPriority = map[Category]int{
	CategoryAvailability: 1,
	CategoryPricing:      2,
	CategoryAnalytics:    3,
	CategoryHotelData:    4,
}

const dateLayout = "2006-01-02"

// AvailKey builds the availability cache key for a hotel and date range.
func AvailKey(hotelID domain.HotelID, checkIn, checkOut time.Time) string {
	return fmt.Sprintf("avail:%s:%s:%s", hotelID, checkIn.Format(dateLayout), checkOut.Format(dateLayout))
}

// PriceKey builds the pricing cache key for a hotel, room type, and date.
func PriceKey(hotelID domain.HotelID, rt domain.RoomType, date time.Time) string {
	return fmt.Sprintf("price:%s:%s:%s", hotelID, rt, date.Format(dateLayout))
}

// DemandKey builds the demand counter key for a hotel, room type, and date.
func DemandKey(hotelID domain.HotelID, rt domain.RoomType, date time.Time) string {
	return fmt.Sprintf("demand:%s:%s:%s", hotelID, rt, date.Format(dateLayout))
}

// OccupancyKey builds the short-lived occupancy snapshot key.
func OccupancyKey(hotelID domain.HotelID, date time.Time) string {
	return fmt.Sprintf("occupancy:%s:%s", hotelID, date.Format(dateLayout))
}

// HotelKey builds the hotel profile cache key for a named section.
func HotelKey(hotelID domain.HotelID, section string) string {
	return fmt.Sprintf("hotel:%s:%s", hotelID, section)
}

// Tags mirror key prefixes so related entries can be bulk-invalidated.

// TagAvail tags all availability entries for a hotel.
func TagAvail(hotelID domain.HotelID) string { return fmt.Sprintf("avail:%s", hotelID) }

// TagPrice tags all pricing entries for a hotel.
func TagPrice(hotelID domain.HotelID) string { return fmt.Sprintf("price:%s", hotelID) }

// TagDemand tags all demand counters for a hotel.
func TagDemand(hotelID domain.HotelID) string { return fmt.Sprintf("demand:%s", hotelID) }

// TagOccupancy tags the occupancy snapshots for a hotel.
func TagOccupancy(hotelID domain.HotelID) string { return fmt.Sprintf("occupancy:%s", hotelID) }

// TagHotel tags the hotel profile entries.
func TagHotel(hotelID domain.HotelID) string { return fmt.Sprintf("hotel:%s", hotelID) }

// CascadeFor returns the dependent tags invalidated alongside the given tag
// under the SMART strategy. Availability invalidation cascades to the
// occupancy snapshot; pricing cascades to analytics rollups.
func CascadeFor(hotelID domain.HotelID, tag string) []string {
	switch tag {
	case TagAvail(hotelID):
		return []string{TagOccupancy(hotelID)}
	case TagPrice(hotelID):
		return []string{fmt.Sprintf("analytics:%s", hotelID)}
	}
	return nil
}

// CategoryOf derives the cache category from a key prefix. Unknown prefixes
// map to analytics (the least aggressive policy).
func CategoryOf(key string) Category {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			switch key[:i] {
			case "avail":
				return CategoryAvailability
			case "price":
				return CategoryPricing
			case "demand":
				return CategoryDemand
			case "occupancy":
				return CategoryOccupancy
			case "hotel":
				return CategoryHotelData
			}
			break
		}
	}
	return CategoryAnalytics
}
