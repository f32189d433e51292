// Package providers defines the external collaborator contracts (currency
// conversion, competitor prices) and the resilience wrapping applied to any
// concrete implementation. The core tolerates every provider failure.
package providers

import (
	"context"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
)

// Conversion is the result of a currency conversion.
type Conversion struct {
	Amount float64 `json:"amount"`
	Rate   float64 `json:"rate"`
}

// CurrencyProvider converts an amount between currencies. Errors are
// permitted; callers must degrade to the original currency.
type CurrencyProvider interface {
	Convert(ctx context.Context, amount float64, from, to string) (Conversion, error)
}

// CompetitorSnapshot pairs our reference price with the market average.
type CompetitorSnapshot struct {
	OurPrice float64 `json:"ourPrice"`
	AvgPrice float64 `json:"avgPrice"`
}

// CompetitorProvider fetches competitor pricing for a hotel. A nil snapshot
// with nil error means no data is available; the competitor factor is
// skipped in either failure mode.
type CompetitorProvider interface {
	Fetch(ctx context.Context, hotelID domain.HotelID) (*CompetitorSnapshot, error)
}
