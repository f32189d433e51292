package loyalty

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
)

// staticPrefs answers alert opt-in from a fixed map, defaulting to on.
type staticPrefs map[domain.UserID]bool

func (p staticPrefs) WantsExpiryAlerts(userID domain.UserID) bool {
	v, ok := p[userID]
	return !ok || v
}

func appendEarned(t *testing.T, f *loyaltyFixture, userID domain.UserID, points int64, expiresAt time.Time) {
	t.Helper()
	tx := &domain.LoyaltyTransaction{
		ID:           uuid.NewString(),
		UserID:       userID,
		PointsAmount: points,
		Status:       domain.TransactionCompleted,
		Reason:       domain.ReasonBookingCompleted,
		IssuedAt:     expiresAt.AddDate(0, -24, 0),
		ExpiresAt:    &expiresAt,
	}
	if err := f.gw.AppendTransaction(context.Background(), tx); err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
}

func TestScanExpiryAlertsAtMarks(t *testing.T) {
	f := newLoyaltyFixture(t)
	f.clk.Set(time.Date(2025, time.June, 24, 0, 0, 0, 0, time.UTC))
	f.engine.SetPrefs(staticPrefs{"C4": false})

	mark := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC) // 7 days out
	appendEarned(t, f, "C1", 800, mark)
	appendEarned(t, f, "C2", 50, mark)  // below the alert floor
	appendEarned(t, f, "C4", 200, mark) // opted out
	// 10 days out is not an alert mark.
	appendEarned(t, f, "C3", 500, time.Date(2025, time.July, 4, 0, 0, 0, 0, time.UTC))

	result, err := f.engine.ScanExpiry(context.Background())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if result.AlertsSent != 1 {
		t.Fatalf("alerts sent: got %d, want 1", result.AlertsSent)
	}
	if result.TxExpired != 0 {
		t.Errorf("nothing should have lapsed yet, expired %d", result.TxExpired)
	}

	if len(f.sink.alerts) != 1 || f.sink.alerts[0].userID != "C1" {
		t.Fatalf("alert events: got %v", f.sink.alerts)
	}
	payload := f.sink.alerts[0].payload
	if payload["pointsExpiring"] != int64(800) {
		t.Errorf("pointsExpiring: got %v", payload["pointsExpiring"])
	}
	if payload["daysLeft"] != 7 || payload["urgency"] != "critical" {
		t.Errorf("got daysLeft %v urgency %v", payload["daysLeft"], payload["urgency"])
	}
}

func TestScanExpiryAggregatesPerDay(t *testing.T) {
	f := newLoyaltyFixture(t)
	f.clk.Set(time.Date(2025, time.June, 24, 0, 0, 0, 0, time.UTC))

	// Two grants each below the 100-point floor, together above it: one alert
	// covers the batch.
	mark := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	appendEarned(t, f, "C1", 60, mark)
	appendEarned(t, f, "C1", 70, mark)

	result, err := f.engine.ScanExpiry(context.Background())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if result.AlertsSent != 1 {
		t.Fatalf("alerts sent: got %d, want 1", result.AlertsSent)
	}
	if f.sink.alerts[0].payload["pointsExpiring"] != int64(130) {
		t.Errorf("pointsExpiring: got %v", f.sink.alerts[0].payload["pointsExpiring"])
	}
}

func TestScanExpiryExpiresLapsed(t *testing.T) {
	f := newLoyaltyFixture(t)
	ctx := context.Background()
	seedAccount(t, f.gw, &domain.LoyaltyAccount{
		UserID: "C1", Tier: domain.TierGold,
		CurrentPoints: 300, LifetimePoints: 6000,
		State: domain.AccountActive,
	})
	appendEarned(t, f, "C1", 800, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC))

	f.clk.Set(time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC))
	result, err := f.engine.ScanExpiry(ctx)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if result.TxExpired != 1 || result.PointsExpired != 800 {
		t.Fatalf("got %+v, want 1 tx / 800 points expired", result)
	}
	if result.AlertsSent != 0 {
		t.Errorf("lapsed transaction still alerted")
	}

	account, _ := f.gw.GetAccount(ctx, "C1")
	if account.CurrentPoints != 0 {
		t.Errorf("current points: got %d, want 0 (floored)", account.CurrentPoints)
	}
	if account.LifetimePoints != 6000 || account.Tier != domain.TierGold {
		t.Errorf("expiry touched lifetime standing: %d points, tier %s", account.LifetimePoints, account.Tier)
	}

	txs, _ := f.gw.TransactionsByUser(ctx, "C1")
	var expired, offsets int
	for _, tx := range txs {
		switch {
		case tx.Status == domain.TransactionExpired:
			expired++
		case tx.Reason == domain.ReasonExpired:
			offsets++
			if tx.PointsAmount != -800 {
				t.Errorf("offset amount: got %d, want -800", tx.PointsAmount)
			}
		}
	}
	if expired != 1 || offsets != 1 {
		t.Errorf("ledger: %d expired, %d offsets; want 1 and 1", expired, offsets)
	}

	// A second run must not double-expire.
	again, err := f.engine.ScanExpiry(ctx)
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if again.TxExpired != 0 {
		t.Errorf("second scan expired %d transactions", again.TxExpired)
	}
}

func TestUrgencyBuckets(t *testing.T) {
	cases := map[int]string{
		3:  "critical",
		7:  "critical",
		14: "high",
		30: "medium",
		90: "low",
	}
	for daysLeft, want := range cases {
		if got := urgencyFor(daysLeft); got != want {
			t.Errorf("%d days: got %s, want %s", daysLeft, got, want)
		}
	}
}
