// Package memory implements the store gateway on in-process maps. It backs
// tests and local development without PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/errs"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/store"
)

// Gateway is the in-memory store gateway.
type Gateway struct {
	mu           sync.RWMutex
	hotels       map[domain.HotelID]*domain.Hotel
	rooms        map[domain.RoomID]*domain.Room
	bookings     map[domain.BookingID]*domain.Booking
	accounts     map[domain.UserID]*domain.LoyaltyAccount
	transactions []*domain.LoyaltyTransaction
	campaigns    map[domain.CampaignID]*domain.Campaign
}

var _ store.Gateway = (*Gateway)(nil)

// New creates an empty gateway.
func New() *Gateway {
	return &Gateway{
		hotels:    make(map[domain.HotelID]*domain.Hotel),
		rooms:     make(map[domain.RoomID]*domain.Room),
		bookings:  make(map[domain.BookingID]*domain.Booking),
		accounts:  make(map[domain.UserID]*domain.LoyaltyAccount),
		campaigns: make(map[domain.CampaignID]*domain.Campaign),
	}
}

func (g *Gateway) GetHotel(_ context.Context, id domain.HotelID) (*domain.Hotel, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	h, ok := g.hotels[id]
	if !ok {
		return nil, errs.NotFound("hotel", string(id))
	}
	cp := *h
	return &cp, nil
}

func (g *Gateway) ListHotels(context.Context) ([]domain.Hotel, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.Hotel, 0, len(g.hotels))
	for _, h := range g.hotels {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *Gateway) SaveHotel(_ context.Context, h *domain.Hotel) error {
	if err := domain.ValidateHotel(h); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := *h
	g.hotels[h.ID] = &cp
	return nil
}

func (g *Gateway) UpdatePerformanceMetrics(_ context.Context, id domain.HotelID, m *domain.PerformanceMetrics) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.hotels[id]
	if !ok {
		return errs.NotFound("hotel", string(id))
	}
	cp := *m
	h.Metrics = &cp
	return nil
}

func (g *Gateway) GetRoom(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[id]
	if !ok {
		return nil, errs.NotFound("room", string(id))
	}
	cp := *r
	return &cp, nil
}

func (g *Gateway) RoomsByHotel(_ context.Context, hotelID domain.HotelID) ([]domain.Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []domain.Room
	for _, r := range g.rooms {
		if r.HotelID == hotelID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *Gateway) SaveRoom(_ context.Context, r *domain.Room) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := domain.ValidateRoom(r, g.hotels[r.HotelID]); err != nil {
		return err
	}
	cp := *r
	g.rooms[r.ID] = &cp
	return nil
}

func (g *Gateway) UpdateDynamicPrice(_ context.Context, id domain.RoomID, dp *domain.DynamicPrice) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[id]
	if !ok {
		return errs.NotFound("room", string(id))
	}
	cp := *dp
	r.DynamicPrice = &cp
	return nil
}

func (g *Gateway) SetApproval(_ context.Context, id domain.RoomID, status domain.ApprovalStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[id]
	if !ok {
		return errs.NotFound("room", string(id))
	}
	if r.DynamicPrice == nil {
		return errs.Validation(errNoDynamicPrice)
	}
	r.DynamicPrice.Approval = status
	return nil
}

func (g *Gateway) GetBooking(_ context.Context, id domain.BookingID) (*domain.Booking, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b, ok := g.bookings[id]
	if !ok {
		return nil, errs.NotFound("booking", string(id))
	}
	cp := *b
	return &cp, nil
}

func (g *Gateway) CreateBooking(_ context.Context, b *domain.Booking) error {
	if err := domain.ValidateBooking(b); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.bookings[b.ID]; exists {
		return errs.E(errs.KindConflict, "booking already exists", nil)
	}
	cp := *b
	g.bookings[b.ID] = &cp
	return nil
}

func (g *Gateway) UpdateBookingStatus(_ context.Context, id domain.BookingID, status domain.BookingStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.bookings[id]
	if !ok {
		return errs.NotFound("booking", string(id))
	}
	b.Status = status
	return nil
}

func (g *Gateway) OverlappingBookings(_ context.Context, hotelID domain.HotelID, from, to time.Time) ([]domain.Booking, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []domain.Booking
	for _, b := range g.bookings {
		if b.HotelID == hotelID && b.Status.CountsAgainstInventory() && b.Overlaps(from, to) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (g *Gateway) BookingsCompletedSince(_ context.Context, since time.Time) ([]domain.Booking, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []domain.Booking
	for _, b := range g.bookings {
		if b.Status == domain.BookingCompleted && !b.UpdatedAt.Before(since) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (g *Gateway) GetAccount(_ context.Context, userID domain.UserID) (*domain.LoyaltyAccount, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.accounts[userID]
	if !ok {
		return nil, errs.NotFound("loyalty account", string(userID))
	}
	cp := *a
	return &cp, nil
}

func (g *Gateway) SaveAccount(_ context.Context, a *domain.LoyaltyAccount) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := *a
	g.accounts[a.UserID] = &cp
	return nil
}

func (g *Gateway) AppendTransaction(_ context.Context, tx *domain.LoyaltyTransaction) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := *tx
	g.transactions = append(g.transactions, &cp)
	return nil
}

func (g *Gateway) TransactionsByUser(_ context.Context, userID domain.UserID) ([]domain.LoyaltyTransaction, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []domain.LoyaltyTransaction
	for _, tx := range g.transactions {
		if tx.UserID == userID {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (g *Gateway) ExpiringTransactions(_ context.Context, from, to time.Time) ([]domain.LoyaltyTransaction, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []domain.LoyaltyTransaction
	for _, tx := range g.transactions {
		if tx.PointsAmount <= 0 || tx.Status != domain.TransactionCompleted || tx.ExpiresAt == nil {
			continue
		}
		if tx.ExpiresAt.After(from) && !tx.ExpiresAt.After(to) {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (g *Gateway) MarkTransactionStatus(_ context.Context, id string, status domain.TransactionStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, tx := range g.transactions {
		if tx.ID == id {
			tx.Status = status
			return nil
		}
	}
	return errs.NotFound("loyalty transaction", id)
}

func (g *Gateway) ActiveCampaigns(_ context.Context, now time.Time) ([]domain.Campaign, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []domain.Campaign
	for _, c := range g.campaigns {
		if c.ActiveAt(now) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (g *Gateway) SaveCampaign(_ context.Context, c *domain.Campaign) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := *c
	g.campaigns[c.ID] = &cp
	return nil
}

func (g *Gateway) Ping(context.Context) error { return nil }
func (g *Gateway) Close() error               { return nil }

var errNoDynamicPrice = errMsg("room has no dynamic price")

type errMsg string

func (e errMsg) Error() string { return string(e) }
