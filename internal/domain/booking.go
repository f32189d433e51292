package domain

import "time"

// BookingLine is a booked quantity of a single room type.
type BookingLine struct {
	RoomType RoomType `json:"roomType"`
	Quantity int      `json:"quantity"`
}

// Booking is the authoritative booking record. CheckIn/CheckOut are
// half-open: the guest occupies nights in [CheckIn, CheckOut).
type Booking struct {
	ID         BookingID     `json:"id"`
	HotelID    HotelID       `json:"hotelId"`
	UserID     UserID        `json:"userId"`
	Rooms      []BookingLine `json:"rooms"`
	CheckIn    time.Time     `json:"checkIn"`
	CheckOut   time.Time     `json:"checkOut"`
	Status     BookingStatus `json:"status"`
	TotalPrice float64       `json:"totalPrice"`
	Currency   string        `json:"currency"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// Overlaps reports whether the booking's stay intersects [from, to) using
// the half-open overlap predicate.
func (b *Booking) Overlaps(from, to time.Time) bool {
	return b.CheckIn.Before(to) && b.CheckOut.After(from)
}

// Nights counts the calendar nights of the stay in the given location. A
// booking that spans a DST transition still counts whole calendar dates.
func (b *Booking) Nights(loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	in := dateOf(b.CheckIn.In(loc))
	out := dateOf(b.CheckOut.In(loc))
	n := 0
	for d := in; d.Before(out); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// QuantityOf returns the booked quantity for a room type.
func (b *Booking) QuantityOf(rt RoomType) int {
	total := 0
	for _, line := range b.Rooms {
		if line.RoomType == rt {
			total += line.Quantity
		}
	}
	return total
}

// dateOf truncates a time to midnight in its own location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DatesCovered enumerates the calendar dates (midnight, hotel location) the
// stay occupies, one per night.
func (b *Booking) DatesCovered(loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	var dates []time.Time
	in := dateOf(b.CheckIn.In(loc))
	out := dateOf(b.CheckOut.In(loc))
	for d := in; d.Before(out); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}
