package loyalty

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
)

// expiry scan horizon for alerting.
const alertHorizonDays = 90

// ExpiryResult summarizes one scanner run.
type ExpiryResult struct {
	AlertsSent    int
	PointsExpired int64
	TxExpired     int
}

// urgencyFor buckets days-until-expiry into an alert urgency.
func urgencyFor(daysLeft int) string {
	switch {
	case daysLeft <= 7:
		return "critical"
	case daysLeft <= 14:
		return "high"
	case daysLeft <= 30:
		return "medium"
	default:
		return "low"
	}
}

// atAlertMark reports whether daysLeft sits on one of the configured alert
// marks. The scanner runs daily, so an exact-day match is sufficient.
func (e *Engine) atAlertMark(daysLeft int) bool {
	for _, mark := range e.cfg.AlertMarksDays {
		if daysLeft == mark {
			return true
		}
	}
	return false
}

// ScanExpiry is the daily expiry pass: alert on transactions approaching
// expiry at the configured day marks, then expire transactions past their
// date with an offsetting negative entry.
func (e *Engine) ScanExpiry(ctx context.Context) (*ExpiryResult, error) {
	now := e.clk.Now()
	result := &ExpiryResult{}

	// Phase 1: upcoming expirations inside the alert horizon.
	upcoming, err := e.store.ExpiringTransactions(ctx, now, now.AddDate(0, 0, alertHorizonDays))
	if err != nil {
		return nil, err
	}

	// Aggregate per user per expiry date so one alert covers the batch.
	type alertKey struct {
		user domain.UserID
		day  string
	}
	pending := make(map[alertKey]int64)
	expiresAt := make(map[alertKey]time.Time)
	for i := range upcoming {
		tx := &upcoming[i]
		if tx.ExpiresAt == nil {
			continue
		}
		key := alertKey{user: tx.UserID, day: tx.ExpiresAt.Format("2006-01-02")}
		pending[key] += tx.PointsAmount
		expiresAt[key] = *tx.ExpiresAt
	}

	for key, points := range pending {
		if points < e.cfg.MinimumPoints {
			continue
		}
		daysLeft := int(expiresAt[key].Sub(now).Hours() / 24)
		if !e.atAlertMark(daysLeft) {
			continue
		}
		if e.prefs != nil && !e.prefs.WantsExpiryAlerts(key.user) {
			continue
		}
		e.metrics.LoyaltyEvents.WithLabelValues("expiry-alert").Inc()
		if e.sink != nil {
			e.sink.ExpiryAlert(key.user, map[string]any{
				"userId":         string(key.user),
				"pointsExpiring": points,
				"expiresAt":      expiresAt[key].UTC().Format(time.RFC3339),
				"daysLeft":       daysLeft,
				"urgency":        urgencyFor(daysLeft),
			})
		}
		result.AlertsSent++
	}

	// Phase 2: transactions already past their expiry date.
	lapsed, err := e.store.ExpiringTransactions(ctx, now.AddDate(-100, 0, 0), now)
	if err != nil {
		return nil, err
	}
	for i := range lapsed {
		tx := &lapsed[i]
		if err := e.expireTransaction(ctx, tx); err != nil {
			log.Warn().Err(err).Str("tx", tx.ID).Msg("transaction expiry failed, will retry next run")
			continue
		}
		result.TxExpired++
		result.PointsExpired += tx.PointsAmount
	}
	return result, nil
}

// expireTransaction marks the original entry EXPIRED, appends the offsetting
// negative entry, and recomputes the account under the user lock.
func (e *Engine) expireTransaction(ctx context.Context, tx *domain.LoyaltyTransaction) error {
	lock := e.userLock(tx.UserID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.store.MarkTransactionStatus(ctx, tx.ID, domain.TransactionExpired); err != nil {
		return err
	}
	offset := &domain.LoyaltyTransaction{
		ID:           uuid.NewString(),
		UserID:       tx.UserID,
		PointsAmount: -tx.PointsAmount,
		Status:       domain.TransactionCompleted,
		Reason:       domain.ReasonExpired,
		IssuedAt:     e.clk.Now(),
	}
	if err := e.store.AppendTransaction(ctx, offset); err != nil {
		return err
	}

	account, err := e.store.GetAccount(ctx, tx.UserID)
	if err != nil {
		return err
	}
	account.CurrentPoints -= tx.PointsAmount
	if account.CurrentPoints < 0 {
		account.CurrentPoints = 0
	}
	// Lifetime points are untouched: expiry never demotes.
	if err := e.store.SaveAccount(ctx, account); err != nil {
		return err
	}

	e.metrics.PointsExpired.Add(float64(tx.PointsAmount))
	e.metrics.LoyaltyEvents.WithLabelValues("points-expired").Inc()
	return nil
}
