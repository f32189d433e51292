package loyalty

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/errs"
)

func validationf(format string, args ...any) error {
	return errs.Validation(fmt.Errorf(format, args...))
}

// campaignBonus computes the extra points active campaigns contribute to an
// accrual. BONUS_MULTIPLIER scales the base points; BONUS_POINTS adds a flat
// grant. Campaign lookup failures degrade to no bonus.
func (e *Engine) campaignBonus(ctx context.Context, account *domain.LoyaltyAccount, booking *domain.Booking, basePoints int64) int64 {
	campaigns, err := e.store.ActiveCampaigns(ctx, e.clk.Now())
	if err != nil {
		log.Warn().Err(err).Msg("campaign lookup failed, accruing without bonus")
		return 0
	}

	var bonus int64
	for i := range campaigns {
		c := &campaigns[i]
		if !c.EligibleFor(account.Tier) {
			continue
		}
		if len(c.HotelIDs) > 0 && !campaignTargetsHotel(c, booking.HotelID) {
			continue
		}
		switch c.Type {
		case domain.CampaignBonusMultiplier:
			if c.Multiplier > 1 {
				bonus += int64(math.Round(float64(basePoints) * (c.Multiplier - 1)))
			}
		case domain.CampaignBonusPoints:
			bonus += c.BonusPoints
		}
	}
	return bonus
}

func campaignTargetsHotel(c *domain.Campaign, hotelID domain.HotelID) bool {
	for _, id := range c.HotelIDs {
		if id == hotelID {
			return true
		}
	}
	return false
}

// BroadcastCampaign persists the campaign and fans it out: the campaign room,
// each eligible tier room, and each targeted hotel room.
func (e *Engine) BroadcastCampaign(ctx context.Context, c *domain.Campaign) error {
	if err := e.validateCampaign(c); err != nil {
		return err
	}
	if err := e.store.SaveCampaign(ctx, c); err != nil {
		return err
	}
	e.metrics.LoyaltyEvents.WithLabelValues("campaign-update").Inc()
	if e.sink != nil {
		e.sink.CampaignBroadcast(c)
	}
	return nil
}

func (e *Engine) validateCampaign(c *domain.Campaign) error {
	switch {
	case c.ID == "":
		return validationf("campaign requires an id")
	case len(c.EligibleTiers) == 0:
		return validationf("campaign requires eligible tiers")
	case !c.ValidFrom.Before(c.ValidUntil):
		return validationf("campaign validFrom must precede validUntil")
	case c.Type == domain.CampaignBonusMultiplier && c.Multiplier <= 1:
		return validationf("bonus multiplier campaign requires multiplier > 1")
	case c.Type == domain.CampaignBonusPoints && c.BonusPoints <= 0:
		return validationf("bonus points campaign requires positive bonusPoints")
	}
	for _, tier := range c.EligibleTiers {
		if tier.Rank() < 0 {
			return validationf("unknown tier %q", tier)
		}
	}
	return nil
}
