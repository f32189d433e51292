package domain

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOverlapsHalfOpen(t *testing.T) {
	b := &Booking{CheckIn: day(2025, time.July, 10), CheckOut: day(2025, time.July, 13)}

	cases := []struct {
		name     string
		from, to time.Time
		want     bool
	}{
		{"inside the stay", day(2025, time.July, 11), day(2025, time.July, 12), true},
		{"covers the stay", day(2025, time.July, 1), day(2025, time.July, 31), true},
		{"overlaps the start", day(2025, time.July, 8), day(2025, time.July, 11), true},
		{"overlaps the end", day(2025, time.July, 12), day(2025, time.July, 15), true},
		{"window ends at check-in", day(2025, time.July, 8), day(2025, time.July, 10), false},
		{"window starts at check-out", day(2025, time.July, 13), day(2025, time.July, 15), false},
		{"disjoint before", day(2025, time.July, 1), day(2025, time.July, 5), false},
		{"disjoint after", day(2025, time.July, 20), day(2025, time.July, 25), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := b.Overlaps(tc.from, tc.to); got != tc.want {
				t.Errorf("got %t, want %t", got, tc.want)
			}
		})
	}
}

func TestNightsAndDatesCovered(t *testing.T) {
	t.Run("simple stay", func(t *testing.T) {
		b := &Booking{CheckIn: day(2025, time.July, 10), CheckOut: day(2025, time.July, 13)}
		if got := b.Nights(time.UTC); got != 3 {
			t.Errorf("nights: got %d, want 3", got)
		}
		dates := b.DatesCovered(time.UTC)
		if len(dates) != 3 || !dates[0].Equal(day(2025, time.July, 10)) || !dates[2].Equal(day(2025, time.July, 12)) {
			t.Errorf("dates: got %v", dates)
		}
	})

	t.Run("nil location defaults to UTC", func(t *testing.T) {
		b := &Booking{CheckIn: day(2025, time.July, 10), CheckOut: day(2025, time.July, 11)}
		if got := b.Nights(nil); got != 1 {
			t.Errorf("nights: got %d, want 1", got)
		}
	})

	t.Run("spring-forward transition", func(t *testing.T) {
		// Paris loses an hour on 2025-03-30; the stay still covers two
		// calendar nights.
		paris, err := time.LoadLocation("Europe/Paris")
		if err != nil {
			t.Skipf("tzdata unavailable: %v", err)
		}
		b := &Booking{
			CheckIn:  time.Date(2025, time.March, 29, 15, 0, 0, 0, paris),
			CheckOut: time.Date(2025, time.March, 31, 11, 0, 0, 0, paris),
		}
		if got := b.Nights(paris); got != 2 {
			t.Errorf("nights across DST: got %d, want 2", got)
		}
		dates := b.DatesCovered(paris)
		if len(dates) != 2 {
			t.Fatalf("dates: got %v", dates)
		}
		if dates[1].Day() != 30 {
			t.Errorf("second night: got %s", dates[1])
		}
	})

	t.Run("midnight depends on location", func(t *testing.T) {
		// 23:00 UTC on the 10th is already the 11th in Paris.
		paris, err := time.LoadLocation("Europe/Paris")
		if err != nil {
			t.Skipf("tzdata unavailable: %v", err)
		}
		b := &Booking{
			CheckIn:  time.Date(2025, time.July, 10, 23, 0, 0, 0, time.UTC),
			CheckOut: time.Date(2025, time.July, 12, 10, 0, 0, 0, time.UTC),
		}
		if got := b.Nights(time.UTC); got != 2 {
			t.Errorf("UTC nights: got %d, want 2", got)
		}
		if got := b.Nights(paris); got != 1 {
			t.Errorf("Paris nights: got %d, want 1", got)
		}
	})
}

func TestQuantityOf(t *testing.T) {
	b := &Booking{Rooms: []BookingLine{
		{RoomType: RoomSimple, Quantity: 2},
		{RoomType: RoomSuite, Quantity: 1},
		{RoomType: RoomSimple, Quantity: 1},
	}}
	if got := b.QuantityOf(RoomSimple); got != 3 {
		t.Errorf("simple: got %d, want 3", got)
	}
	if got := b.QuantityOf(RoomDouble); got != 0 {
		t.Errorf("double: got %d, want 0", got)
	}
}

func TestCountsAgainstInventory(t *testing.T) {
	cases := map[BookingStatus]bool{
		BookingPending:    false,
		BookingConfirmed:  true,
		BookingCheckedIn:  true,
		BookingCheckedOut: false,
		BookingCancelled:  false,
		BookingCompleted:  false,
	}
	for status, want := range cases {
		if got := status.CountsAgainstInventory(); got != want {
			t.Errorf("%s: got %t, want %t", status, got, want)
		}
	}
}

func TestTierRanking(t *testing.T) {
	if TierBronze.Rank() != 0 || TierDiamond.Rank() != 4 {
		t.Errorf("ranks: bronze %d, diamond %d", TierBronze.Rank(), TierDiamond.Rank())
	}
	if Tier("COBALT").Rank() != -1 {
		t.Error("unknown tier must rank -1")
	}
	if !TierGold.AtLeast(TierGold) || !TierGold.AtLeast(TierSilver) {
		t.Error("AtLeast must be inclusive and ordered")
	}
	if TierSilver.AtLeast(TierGold) {
		t.Error("silver must not rank at gold")
	}
}
