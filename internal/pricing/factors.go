package pricing

import (
	"time"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
)

// Factors records every multiplier applied to a quote, in application order.
type Factors struct {
	Demand          float64 `json:"demand"`
	Seasonal        float64 `json:"seasonal"`
	DayOfWeek       float64 `json:"dayOfWeek"`
	WeeklyOccupancy float64 `json:"weeklyOccupancy"`
	Competitor      float64 `json:"competitor"`
	Loyalty         float64 `json:"loyalty"`
	Event           float64 `json:"event"`
	AdvanceBooking  float64 `json:"advanceBooking"`
	LengthOfStay    float64 `json:"lengthOfStay"`
	LastMinute      float64 `json:"lastMinute"`
	Promo           float64 `json:"promo"`
}

// neutralFactors starts every multiplier at 1.0.
func neutralFactors() Factors {
	return Factors{
		Demand: 1, Seasonal: 1, DayOfWeek: 1, WeeklyOccupancy: 1,
		Competitor: 1, Loyalty: 1, Event: 1,
		AdvanceBooking: 1, LengthOfStay: 1, LastMinute: 1, Promo: 1,
	}
}

// Product multiplies every factor together.
func (f Factors) Product() float64 {
	return f.Demand * f.Seasonal * f.DayOfWeek * f.WeeklyOccupancy *
		f.Competitor * f.Loyalty * f.Event *
		f.AdvanceBooking * f.LengthOfStay * f.LastMinute * f.Promo
}

// seasonalMultiplier buckets a date by month: winter high season (Dec-Feb)
// 1.3, summer peak (Jun-Aug) 1.6, shoulder months 1.0. An explicit per-hotel
// seasonal window overrides the bucket.
func seasonalMultiplier(date time.Time, hotel *domain.Hotel) float64 {
	for _, sp := range hotel.Yield.SeasonalPricing {
		if !date.Before(sp.StartDate) && !date.After(sp.EndDate) && sp.Multiplier > 0 {
			return sp.Multiplier
		}
	}
	switch date.Month() {
	case time.December, time.January, time.February:
		return 1.3
	case time.June, time.July, time.August:
		return 1.6
	case time.March, time.April, time.May,
		time.September, time.October, time.November:
		return 1.0
	default:
		return 0.8
	}
}

// weeklyOccupancyMultiplier converts the average occupancy ratio of the week
// around the stay into a premium or discount.
func weeklyOccupancyMultiplier(avgRatio float64) float64 {
	switch {
	case avgRatio >= 0.9:
		return 1.3
	case avgRatio >= 0.7:
		return 1.1
	case avgRatio <= 0.3:
		return 0.9
	default:
		return 1.0
	}
}

// competitorMultiplier nudges the price toward the market average: undercut
// when we run expensive, take margin when we run cheap.
func competitorMultiplier(ourPrice, avgPrice float64) float64 {
	if avgPrice <= 0 {
		return 1.0
	}
	ratio := ourPrice / avgPrice
	switch {
	case ratio > 1.2:
		return 0.95
	case ratio < 0.8:
		return 1.05
	default:
		return 1.0
	}
}

// eventMultiplier returns the multiplier of the first event window covering
// the date, clamped into [1.0, 5.0].
func eventMultiplier(date time.Time, hotel *domain.Hotel) float64 {
	for _, ep := range hotel.Yield.EventPricing {
		if !date.Before(ep.StartDate) && !date.After(ep.EndDate) {
			m := ep.Multiplier
			if m < 1.0 {
				m = 1.0
			}
			if m > 5.0 {
				m = 5.0
			}
			return m
		}
	}
	return 1.0
}

// advanceBookingMultiplier rewards early booking. Tiers are mutually
// exclusive; the highest qualifying tier wins.
func advanceBookingMultiplier(advanceDays int) float64 {
	switch {
	case advanceDays >= 90:
		return 0.8
	case advanceDays >= 60:
		return 0.85
	case advanceDays >= 30:
		return 0.9
	case advanceDays >= 7:
		return 0.95
	case advanceDays <= 1:
		return 1.1
	default:
		return 1.0
	}
}

// lengthOfStayMultiplier rewards longer stays.
func lengthOfStayMultiplier(nights int) float64 {
	switch {
	case nights >= 14:
		return 0.8
	case nights >= 7:
		return 0.85
	case nights >= 4:
		return 0.9
	case nights >= 2:
		return 0.95
	default:
		return 1.0
	}
}

// lastMinuteMultiplier stacks a premium on same-day and next-day bookings on
// top of the advance-booking factor.
func lastMinuteMultiplier(advanceDays int) float64 {
	switch {
	case advanceDays <= 0:
		return 1.2
	case advanceDays == 1:
		return 1.1
	default:
		return 1.0
	}
}

// dayOfWeekMultiplier prefers the hotel's override table, then the default.
func dayOfWeekMultiplier(date time.Time, hotel *domain.Hotel, defaults map[time.Weekday]float64) float64 {
	if hotel.Yield.DayOfWeekMultiplier != nil {
		if m, ok := hotel.Yield.DayOfWeekMultiplier[date.Weekday()]; ok && m > 0 {
			return m
		}
	}
	if m, ok := defaults[date.Weekday()]; ok && m > 0 {
		return m
	}
	return 1.0
}
