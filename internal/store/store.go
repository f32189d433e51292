// Package store defines the gateway to the authoritative document store.
// The store is the single source of truth; every cache and counter in the
// system is derivable from it.
package store

import (
	"context"
	"time"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
)

// HotelStore reads and writes hotel records.
type HotelStore interface {
	GetHotel(ctx context.Context, id domain.HotelID) (*domain.Hotel, error)
	ListHotels(ctx context.Context) ([]domain.Hotel, error)
	SaveHotel(ctx context.Context, h *domain.Hotel) error
	UpdatePerformanceMetrics(ctx context.Context, id domain.HotelID, m *domain.PerformanceMetrics) error
}

// RoomStore reads and writes room records.
type RoomStore interface {
	GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	RoomsByHotel(ctx context.Context, hotelID domain.HotelID) ([]domain.Room, error)
	SaveRoom(ctx context.Context, r *domain.Room) error
	UpdateDynamicPrice(ctx context.Context, id domain.RoomID, dp *domain.DynamicPrice) error
	SetApproval(ctx context.Context, id domain.RoomID, status domain.ApprovalStatus) error
}

// BookingStore reads and writes bookings.
type BookingStore interface {
	GetBooking(ctx context.Context, id domain.BookingID) (*domain.Booking, error)
	CreateBooking(ctx context.Context, b *domain.Booking) error
	UpdateBookingStatus(ctx context.Context, id domain.BookingID, status domain.BookingStatus) error
	// OverlappingBookings returns inventory-consuming bookings whose stay
	// intersects [from, to) at the given hotel.
	OverlappingBookings(ctx context.Context, hotelID domain.HotelID, from, to time.Time) ([]domain.Booking, error)
	BookingsCompletedSince(ctx context.Context, since time.Time) ([]domain.Booking, error)
}

// LoyaltyStore reads and writes loyalty accounts and their append-only
// transaction log.
type LoyaltyStore interface {
	GetAccount(ctx context.Context, userID domain.UserID) (*domain.LoyaltyAccount, error)
	SaveAccount(ctx context.Context, a *domain.LoyaltyAccount) error
	AppendTransaction(ctx context.Context, tx *domain.LoyaltyTransaction) error
	TransactionsByUser(ctx context.Context, userID domain.UserID) ([]domain.LoyaltyTransaction, error)
	// ExpiringTransactions returns positive COMPLETED transactions with
	// expiresAt inside (from, to].
	ExpiringTransactions(ctx context.Context, from, to time.Time) ([]domain.LoyaltyTransaction, error)
	MarkTransactionStatus(ctx context.Context, id string, status domain.TransactionStatus) error
	ActiveCampaigns(ctx context.Context, now time.Time) ([]domain.Campaign, error)
	SaveCampaign(ctx context.Context, c *domain.Campaign) error
}

// Gateway bundles every collection the core touches.
type Gateway interface {
	HotelStore
	RoomStore
	BookingStore
	LoyaltyStore

	Ping(ctx context.Context) error
	Close() error
}
