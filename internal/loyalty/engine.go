// Package loyalty implements points accrual, tier evaluation, redemption,
// expiry scanning, and campaign fan-out. The transaction log is append-only;
// every correction is a new offsetting entry.
package loyalty

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/clock"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/config"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/errs"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/metrics"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/store"
)

// Sink receives loyalty events for fan-out. The engine never blocks on it.
type Sink interface {
	PointsEarned(userID domain.UserID, payload map[string]any)
	TierUpgraded(userID domain.UserID, oldTier, newTier domain.Tier, payload map[string]any)
	PointsRedeemed(userID domain.UserID, payload map[string]any)
	ExpiryAlert(userID domain.UserID, payload map[string]any)
	CampaignBroadcast(c *domain.Campaign)
}

// Prefs answers whether a user opted into expiry alerting.
type Prefs interface {
	WantsExpiryAlerts(userID domain.UserID) bool
}

// Engine is the loyalty core. All mutations for one user are serialized by a
// per-user lock.
type Engine struct {
	store   store.LoyaltyStore
	cfg     config.Loyalty
	clk     clock.Clock
	metrics *metrics.Registry
	sink    Sink
	prefs   Prefs

	mu    sync.Mutex
	locks map[domain.UserID]*sync.Mutex
}

// New wires a loyalty engine.
func New(s store.LoyaltyStore, cfg config.Loyalty, clk clock.Clock, reg *metrics.Registry) *Engine {
	return &Engine{
		store:   s,
		cfg:     cfg,
		clk:     clk,
		metrics: reg,
		locks:   make(map[domain.UserID]*sync.Mutex),
	}
}

// SetSink registers the fan-out sink.
func (e *Engine) SetSink(s Sink) { e.sink = s }

// SetPrefs registers the alert preference source.
func (e *Engine) SetPrefs(p Prefs) { e.prefs = p }

func (e *Engine) userLock(id domain.UserID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// loadOrEnroll fetches the account, enrolling the user on first contact.
func (e *Engine) loadOrEnroll(ctx context.Context, userID domain.UserID) (*domain.LoyaltyAccount, error) {
	account, err := e.store.GetAccount(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errs.IsKind(err, errs.KindNotFound) {
		return nil, err
	}
	account = &domain.LoyaltyAccount{
		UserID:     userID,
		Tier:       domain.TierBronze,
		State:      domain.AccountEnrolled,
		EnrolledAt: e.clk.Now(),
	}
	if err := e.store.SaveAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Accrue awards points for a completed booking: round(totalPrice × tier
// multiplier), plus any active campaign bonus for the user's tier and hotel.
func (e *Engine) Accrue(ctx context.Context, booking *domain.Booking) (*domain.LoyaltyTransaction, error) {
	if booking.Status != domain.BookingCompleted {
		return nil, errs.Validation(fmt.Errorf("accrual requires a COMPLETED booking, got %s", booking.Status))
	}

	lock := e.userLock(booking.UserID)
	lock.Lock()
	defer lock.Unlock()

	account, err := e.loadOrEnroll(ctx, booking.UserID)
	if err != nil {
		return nil, err
	}
	if account.State == domain.AccountSuspended {
		return nil, errs.E(errs.KindValidation, "account suspended",
			fmt.Errorf("loyalty account %s is suspended", booking.UserID))
	}

	multiplier := e.cfg.TierMultipliers[account.Tier]
	if multiplier <= 0 {
		multiplier = 1.0
	}
	points := int64(math.Round(booking.TotalPrice * multiplier))

	// Campaign bonuses stack on top of the tier multiplier.
	points += e.campaignBonus(ctx, account, booking, points)

	now := e.clk.Now()
	expiresAt := now.AddDate(0, e.cfg.ExpiryMonths, 0)
	tx := &domain.LoyaltyTransaction{
		ID:           uuid.NewString(),
		UserID:       booking.UserID,
		PointsAmount: points,
		Status:       domain.TransactionCompleted,
		Reason:       domain.ReasonBookingCompleted,
		BookingID:    &booking.ID,
		IssuedAt:     now,
		ExpiresAt:    &expiresAt,
	}
	if err := e.store.AppendTransaction(ctx, tx); err != nil {
		return nil, err
	}

	account.CurrentPoints += points
	account.LifetimePoints += points
	if account.State == domain.AccountEnrolled {
		account.State = domain.AccountActive
	}

	upgraded, oldTier := e.evaluateTierLocked(account)
	if err := e.store.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	e.metrics.PointsAccrued.Add(float64(points))
	e.metrics.LoyaltyEvents.WithLabelValues("points-earned").Inc()
	if e.sink != nil {
		e.sink.PointsEarned(booking.UserID, map[string]any{
			"userId":        string(booking.UserID),
			"points":        points,
			"currentPoints": account.CurrentPoints,
			"bookingId":     string(booking.ID),
		})
	}
	if upgraded {
		e.emitUpgrade(ctx, account, oldTier)
	}
	return tx, nil
}

// evaluateTierLocked recomputes the tier from lifetime points. The tier only
// moves up; expiry alone never demotes an account.
func (e *Engine) evaluateTierLocked(account *domain.LoyaltyAccount) (upgraded bool, oldTier domain.Tier) {
	target := domain.TierBronze
	for _, tier := range domain.TierOrder {
		if account.LifetimePoints >= e.cfg.TierThresholds[tier] {
			target = tier
		}
	}
	if target.Rank() <= account.Tier.Rank() {
		return false, account.Tier
	}
	oldTier = account.Tier
	account.Tier = target
	return true, oldTier
}

// emitUpgrade grants the optional upgrade bonus and announces the new tier.
func (e *Engine) emitUpgrade(ctx context.Context, account *domain.LoyaltyAccount, oldTier domain.Tier) {
	var bonus int64
	if e.cfg.UpgradeBonus != nil {
		bonus = e.cfg.UpgradeBonus[account.Tier]
	}
	if bonus > 0 {
		now := e.clk.Now()
		expiresAt := now.AddDate(0, e.cfg.ExpiryMonths, 0)
		tx := &domain.LoyaltyTransaction{
			ID:           uuid.NewString(),
			UserID:       account.UserID,
			PointsAmount: bonus,
			Status:       domain.TransactionCompleted,
			Reason:       domain.ReasonTierBonus,
			IssuedAt:     now,
			ExpiresAt:    &expiresAt,
		}
		if err := e.store.AppendTransaction(ctx, tx); err != nil {
			log.Warn().Err(err).Str("user", string(account.UserID)).Msg("tier bonus transaction failed")
		} else {
			account.CurrentPoints += bonus
			account.LifetimePoints += bonus
			if err := e.store.SaveAccount(ctx, account); err != nil {
				log.Warn().Err(err).Str("user", string(account.UserID)).Msg("tier bonus account update failed")
			}
		}
	}

	e.metrics.LoyaltyEvents.WithLabelValues("tier-upgraded").Inc()
	if e.sink != nil {
		e.sink.TierUpgraded(account.UserID, oldTier, account.Tier, map[string]any{
			"userId":      string(account.UserID),
			"oldTier":     string(oldTier),
			"newTier":     string(account.Tier),
			"bonusPoints": bonus,
		})
	}
}

// Redemption option identifiers.
const (
	OptionDiscount  = "DISCOUNT"
	OptionUpgrade   = "UPGRADE"
	OptionFreeNight = "FREE_NIGHT"
)

const (
	discountMinPoints = 100
	discountCapPoints = 5000
	upgradePoints     = 1000
	freeNightPoints   = 5000
	pointsPerEuro     = 100
)

// Redeem spends points against a redemption option. The negative transaction
// and the account update happen under the per-user lock.
func (e *Engine) Redeem(ctx context.Context, userID domain.UserID, optionID string, amount int64) (*domain.LoyaltyTransaction, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	account, err := e.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account.State == domain.AccountSuspended {
		return nil, errs.E(errs.KindValidation, "account suspended",
			fmt.Errorf("loyalty account %s is suspended", userID))
	}

	var cost int64
	switch optionID {
	case OptionDiscount:
		if amount < discountMinPoints {
			return nil, errs.Validation(fmt.Errorf("discount redemption requires at least %d points", discountMinPoints))
		}
		if amount > discountCapPoints {
			return nil, errs.Validation(fmt.Errorf("discount redemption capped at %d points", discountCapPoints))
		}
		cost = amount
	case OptionUpgrade:
		cost = upgradePoints
	case OptionFreeNight:
		if !account.Tier.AtLeast(domain.TierGold) {
			return nil, errs.E(errs.KindValidation, "tier too low for free night",
				fmt.Errorf("free night requires GOLD, account is %s", account.Tier))
		}
		cost = freeNightPoints
	default:
		return nil, errs.Validation(fmt.Errorf("unknown redemption option %q", optionID))
	}

	if account.CurrentPoints < cost {
		return nil, errs.E(errs.KindValidation, "insufficient points",
			fmt.Errorf("redemption needs %d points, balance is %d", cost, account.CurrentPoints))
	}

	tx := &domain.LoyaltyTransaction{
		ID:           uuid.NewString(),
		UserID:       userID,
		PointsAmount: -cost,
		Status:       domain.TransactionCompleted,
		Reason:       domain.ReasonRedemption,
		IssuedAt:     e.clk.Now(),
	}
	if err := e.store.AppendTransaction(ctx, tx); err != nil {
		return nil, err
	}
	account.CurrentPoints -= cost
	if err := e.store.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	e.metrics.LoyaltyEvents.WithLabelValues("points-redeemed").Inc()
	if e.sink != nil {
		e.sink.PointsRedeemed(userID, map[string]any{
			"userId":        string(userID),
			"optionId":      optionID,
			"points":        cost,
			"currentPoints": account.CurrentPoints,
		})
	}
	return tx, nil
}

// RedemptionOptions lists the options the account currently qualifies for.
func (e *Engine) RedemptionOptions(ctx context.Context, userID domain.UserID) ([]map[string]any, error) {
	account, err := e.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	var options []map[string]any
	if account.CurrentPoints >= discountMinPoints {
		max := account.CurrentPoints
		if max > discountCapPoints {
			max = discountCapPoints
		}
		options = append(options, map[string]any{
			"optionId":  OptionDiscount,
			"maxPoints": max,
			"valueEUR":  float64(max) / pointsPerEuro,
		})
	}
	if account.CurrentPoints >= upgradePoints {
		options = append(options, map[string]any{"optionId": OptionUpgrade, "points": upgradePoints})
	}
	if account.CurrentPoints >= freeNightPoints && account.Tier.AtLeast(domain.TierGold) {
		options = append(options, map[string]any{"optionId": OptionFreeNight, "points": freeNightPoints})
	}
	return options, nil
}

// Status returns the subscriber-facing account summary.
func (e *Engine) Status(ctx context.Context, userID domain.UserID) (map[string]any, error) {
	account, err := e.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	nextTier, pointsToNext := e.nextTier(account)
	status := map[string]any{
		"userId":         string(account.UserID),
		"tier":           string(account.Tier),
		"currentPoints":  account.CurrentPoints,
		"lifetimePoints": account.LifetimePoints,
		"state":          string(account.State),
	}
	if nextTier != "" {
		status["nextTier"] = string(nextTier)
		status["pointsToNextTier"] = pointsToNext
	}
	return status, nil
}

func (e *Engine) nextTier(account *domain.LoyaltyAccount) (domain.Tier, int64) {
	for _, tier := range domain.TierOrder {
		if tier.Rank() > account.Tier.Rank() {
			return tier, e.cfg.TierThresholds[tier] - account.LifetimePoints
		}
	}
	return "", 0
}

// Suspend is the admin switch for an account.
func (e *Engine) Suspend(ctx context.Context, userID domain.UserID) error {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	account, err := e.store.GetAccount(ctx, userID)
	if err != nil {
		return err
	}
	account.State = domain.AccountSuspended
	return e.store.SaveAccount(ctx, account)
}
