package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/errs"
)

// newBreaker builds a circuit breaker tuned for external providers: trip on
// 3 consecutive failures, or a >5% failure rate once 20 requests are seen.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{Name: name}
	settings.Interval = 60 * time.Second
	settings.Timeout = 60 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}
	return gobreaker.NewCircuitBreaker(settings)
}

// ResilientCurrency wraps a currency provider with a circuit breaker, a rate
// limiter, and a call deadline.
type ResilientCurrency struct {
	inner   CurrencyProvider
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
}

// WrapCurrency applies the standard resilience stack to a currency provider.
func WrapCurrency(inner CurrencyProvider) *ResilientCurrency {
	return &ResilientCurrency{
		inner:   inner,
		breaker: newBreaker("currency"),
		limiter: rate.NewLimiter(rate.Limit(20), 40),
		timeout: 3 * time.Second,
	}
}

// Convert delegates with breaker/limit/deadline protection. Failures map to
// ProviderUnavailable.
func (r *ResilientCurrency) Convert(ctx context.Context, amount float64, from, to string) (Conversion, error) {
	if from == to {
		return Conversion{Amount: amount, Rate: 1}, nil
	}
	if !r.limiter.Allow() {
		return Conversion{}, errs.E(errs.KindProviderUnavailable, "currency service busy",
			fmt.Errorf("currency provider rate limited"))
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.inner.Convert(callCtx, amount, from, to)
	})
	if err != nil {
		return Conversion{}, errs.E(errs.KindProviderUnavailable, "currency conversion unavailable", err)
	}
	return result.(Conversion), nil
}

// ResilientCompetitor wraps a competitor provider the same way.
type ResilientCompetitor struct {
	inner   CompetitorProvider
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
}

// WrapCompetitor applies the standard resilience stack to a competitor
// provider.
func WrapCompetitor(inner CompetitorProvider) *ResilientCompetitor {
	return &ResilientCompetitor{
		inner:   inner,
		breaker: newBreaker("competitor"),
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		timeout: 3 * time.Second,
	}
}

// Fetch delegates with breaker/limit/deadline protection.
func (r *ResilientCompetitor) Fetch(ctx context.Context, hotelID domain.HotelID) (*CompetitorSnapshot, error) {
	if !r.limiter.Allow() {
		return nil, errs.E(errs.KindProviderUnavailable, "competitor service busy",
			fmt.Errorf("competitor provider rate limited"))
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.inner.Fetch(callCtx, hotelID)
	})
	if err != nil {
		return nil, errs.E(errs.KindProviderUnavailable, "competitor data unavailable", err)
	}
	return result.(*CompetitorSnapshot), nil
}
