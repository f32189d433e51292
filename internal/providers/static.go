package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
)

// StaticCurrency converts using a fixed rate table keyed "FROM/TO". The
// default deployment plugs a real rate service; this one backs tests and
// degraded operation.
type StaticCurrency struct {
	mu    sync.RWMutex
	rates map[string]float64
}

// NewStaticCurrency builds a provider from a rate table.
func NewStaticCurrency(rates map[string]float64) *StaticCurrency {
	if rates == nil {
		rates = map[string]float64{}
	}
	return &StaticCurrency{rates: rates}
}

// SetRate updates a conversion rate.
func (s *StaticCurrency) SetRate(from, to string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[from+"/"+to] = rate
}

// Convert applies the table rate.
func (s *StaticCurrency) Convert(_ context.Context, amount float64, from, to string) (Conversion, error) {
	if from == to {
		return Conversion{Amount: amount, Rate: 1}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rate, ok := s.rates[from+"/"+to]
	if !ok {
		return Conversion{}, fmt.Errorf("no rate for %s/%s", from, to)
	}
	return Conversion{Amount: amount * rate, Rate: rate}, nil
}

// StaticCompetitor serves competitor snapshots from a fixed table. Hotels
// without an entry report no data.
type StaticCompetitor struct {
	mu        sync.RWMutex
	snapshots map[domain.HotelID]CompetitorSnapshot
}

// NewStaticCompetitor builds a provider from a snapshot table.
func NewStaticCompetitor(snapshots map[domain.HotelID]CompetitorSnapshot) *StaticCompetitor {
	if snapshots == nil {
		snapshots = map[domain.HotelID]CompetitorSnapshot{}
	}
	return &StaticCompetitor{snapshots: snapshots}
}

// SetSnapshot updates a hotel's competitor snapshot.
func (s *StaticCompetitor) SetSnapshot(hotelID domain.HotelID, snap CompetitorSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[hotelID] = snap
}

// Fetch returns the stored snapshot, or nil when the hotel has none.
func (s *StaticCompetitor) Fetch(_ context.Context, hotelID domain.HotelID) (*CompetitorSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[hotelID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}
