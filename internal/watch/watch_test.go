package watch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/clock"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/errs"
)

type captured struct {
	userID domain.UserID
	alert  Alert
}

func newTestRegistry(t *testing.T) (*Registry, *clock.Manual, *[]captured) {
	t.Helper()
	clk := clock.NewManual(time.Date(2025, time.July, 12, 10, 0, 0, 0, time.UTC))
	r := NewRegistry(clk, 30*time.Minute)
	alerts := &[]captured{}
	r.SetAlertFunc(func(userID domain.UserID, alert Alert) {
		*alerts = append(*alerts, captured{userID: userID, alert: alert})
	})
	return r, clk, alerts
}

func register(t *testing.T, r *Registry, userID domain.UserID, payload string) {
	t.Helper()
	if err := r.Register(userID, json.RawMessage(payload)); err != nil {
		t.Fatalf("register failed: %v", err)
	}
}

var updateDate = time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC)

func TestWatchUnderMaxAlert(t *testing.T) {
	r, _, alerts := newTestRegistry(t)
	register(t, r, "C1", `{"hotelId":"H1","maxPrice":150}`)

	// 160 is above the watch ceiling: no alert.
	r.OnPriceUpdate("H1", domain.RoomSimple, updateDate, 170, 160, "EUR")
	if len(*alerts) != 0 {
		t.Fatalf("unexpected alert at 160: %v", *alerts)
	}

	// 140 crosses under.
	r.OnPriceUpdate("H1", domain.RoomSimple, updateDate, 160, 140, "EUR")
	if len(*alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(*alerts))
	}
	got := (*alerts)[0]
	if got.userID != "C1" || got.alert.Reason != "under-max" || got.alert.NewPrice != 140 {
		t.Errorf("got %+v", got)
	}
	if r.AlertsReceived("C1") != 1 {
		t.Errorf("alertsReceived: got %d, want 1", r.AlertsReceived("C1"))
	}
}

func TestWatchDropThresholdAlert(t *testing.T) {
	r, _, alerts := newTestRegistry(t)
	register(t, r, "C1", `{"hotelId":"H1","alertThreshold":10}`)

	// A 5% drop stays quiet.
	r.OnPriceUpdate("H1", domain.RoomSimple, updateDate, 200, 190, "EUR")
	if len(*alerts) != 0 {
		t.Fatalf("unexpected alert on 5%% drop")
	}

	// A 15% drop triggers.
	r.OnPriceUpdate("H1", domain.RoomSimple, updateDate, 200, 170, "EUR")
	if len(*alerts) != 1 || (*alerts)[0].alert.Reason != "drop-threshold" {
		t.Fatalf("got %v", *alerts)
	}
}

func TestWatchScopeFilters(t *testing.T) {
	r, _, alerts := newTestRegistry(t)
	checkIn := "2025-07-13T00:00:00Z"
	checkOut := "2025-07-15T00:00:00Z"
	register(t, r, "C1",
		`{"hotelId":"H1","roomTypes":["SUITE"],"checkIn":"`+checkIn+`","checkOut":"`+checkOut+`","maxPrice":300}`)

	// Wrong hotel, wrong type, wrong date: all quiet.
	r.OnPriceUpdate("H2", domain.RoomSuite, updateDate, 400, 250, "EUR")
	r.OnPriceUpdate("H1", domain.RoomSimple, updateDate, 400, 250, "EUR")
	r.OnPriceUpdate("H1", domain.RoomSuite, time.Date(2025, time.July, 20, 0, 0, 0, 0, time.UTC), 400, 250, "EUR")
	if len(*alerts) != 0 {
		t.Fatalf("scope leak: %v", *alerts)
	}

	r.OnPriceUpdate("H1", domain.RoomSuite, updateDate, 400, 250, "EUR")
	if len(*alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(*alerts))
	}
}

func TestWatchOneAlertPerUserPerUpdate(t *testing.T) {
	r, _, alerts := newTestRegistry(t)
	register(t, r, "C1", `{"hotelId":"H1","maxPrice":150}`)
	register(t, r, "C1", `{"hotelId":"H1","maxPrice":200}`)

	if r.WatchCount("C1") != 2 {
		t.Fatalf("watch count: got %d, want 2", r.WatchCount("C1"))
	}

	r.OnPriceUpdate("H1", domain.RoomSimple, updateDate, 180, 140, "EUR")
	if len(*alerts) != 1 {
		t.Errorf("got %d alerts, want 1 per update", len(*alerts))
	}
}

func TestWatchRegisterValidation(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	cases := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{`},
		{"missing hotel", `{"maxPrice":150}`},
		{"no trigger", `{"hotelId":"H1"}`},
		{"bad room type", `{"hotelId":"H1","maxPrice":150,"roomTypes":["PENTHOUSE"]}`},
		{"inverted window", `{"hotelId":"H1","maxPrice":150,"checkIn":"2025-07-15T00:00:00Z","checkOut":"2025-07-13T00:00:00Z"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := r.Register("C1", json.RawMessage(tc.payload))
			if !errs.IsKind(err, errs.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestWatchExpiresAfterDisconnect(t *testing.T) {
	r, clk, alerts := newTestRegistry(t)
	register(t, r, "C1", `{"hotelId":"H1","maxPrice":150}`)

	r.OnDisconnect("C1")
	clk.Advance(31 * time.Minute)

	r.OnPriceUpdate("H1", domain.RoomSimple, updateDate, 160, 140, "EUR")
	if len(*alerts) != 0 {
		t.Fatalf("expired watch still alerted: %v", *alerts)
	}
	if r.WatchCount("C1") != 0 {
		t.Error("expired watch set not pruned")
	}
}

func TestWatchReconnectKeepsWatchAlive(t *testing.T) {
	r, clk, alerts := newTestRegistry(t)
	register(t, r, "C1", `{"hotelId":"H1","maxPrice":150}`)

	r.OnDisconnect("C1")
	clk.Advance(20 * time.Minute)
	r.OnConnect("C1")
	clk.Advance(40 * time.Minute)

	r.OnPriceUpdate("H1", domain.RoomSimple, updateDate, 160, 140, "EUR")
	if len(*alerts) != 1 {
		t.Fatalf("reconnected watch lost: got %d alerts", len(*alerts))
	}
}

func TestSweepPrunesExpired(t *testing.T) {
	r, clk, _ := newTestRegistry(t)
	register(t, r, "C1", `{"hotelId":"H1","maxPrice":150}`)
	register(t, r, "C2", `{"hotelId":"H1","maxPrice":150}`)

	r.OnDisconnect("C1")
	clk.Advance(31 * time.Minute)

	if pruned := r.Sweep(); pruned != 1 {
		t.Errorf("pruned: got %d, want 1", pruned)
	}
	if r.WatchCount("C1") != 0 {
		t.Error("C1 survived the sweep")
	}
	if r.WatchCount("C2") != 1 {
		t.Error("online user swept")
	}
}
