package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/errs"
)

type bookingRow struct {
	ID         string          `db:"id"`
	HotelID    string          `db:"hotel_id"`
	UserID     string          `db:"user_id"`
	Rooms      json.RawMessage `db:"rooms"`
	CheckIn    time.Time       `db:"check_in"`
	CheckOut   time.Time       `db:"check_out"`
	Status     string          `db:"status"`
	TotalPrice float64         `db:"total_price"`
	Currency   string          `db:"currency"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

const bookingColumns = `id, hotel_id, user_id, rooms, check_in, check_out, status,
	total_price, currency, created_at, updated_at`

func (r *bookingRow) toDomain() (*domain.Booking, error) {
	b := &domain.Booking{
		ID:         domain.BookingID(r.ID),
		HotelID:    domain.HotelID(r.HotelID),
		UserID:     domain.UserID(r.UserID),
		CheckIn:    r.CheckIn,
		CheckOut:   r.CheckOut,
		Status:     domain.BookingStatus(r.Status),
		TotalPrice: r.TotalPrice,
		Currency:   r.Currency,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if err := json.Unmarshal(r.Rooms, &b.Rooms); err != nil {
		return nil, fmt.Errorf("booking %s: bad rooms blob: %w", r.ID, err)
	}
	return b, nil
}

// GetBooking loads a booking by id.
func (g *Gateway) GetBooking(ctx context.Context, id domain.BookingID) (*domain.Booking, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var row bookingRow
	err := g.db.GetContext(ctx, &row,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("booking", string(id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking %s: %w", id, err)
	}
	return row.toDomain()
}

// CreateBooking inserts a new booking after ingress validation.
func (g *Gateway) CreateBooking(ctx context.Context, b *domain.Booking) error {
	if err := domain.ValidateBooking(b); err != nil {
		return errs.Validation(err)
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	rooms, err := json.Marshal(b.Rooms)
	if err != nil {
		return fmt.Errorf("failed to marshal booking rooms: %w", err)
	}

	_, err = g.db.ExecContext(ctx, `
		INSERT INTO bookings (id, hotel_id, user_id, rooms, check_in, check_out,
		                      status, total_price, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		string(b.ID), string(b.HotelID), string(b.UserID), rooms,
		b.CheckIn, b.CheckOut, string(b.Status), b.TotalPrice, b.Currency)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return errs.E(errs.KindConflict, "booking already exists", err)
		}
		return fmt.Errorf("failed to create booking %s: %w", b.ID, err)
	}
	return nil
}

// UpdateBookingStatus transitions a booking's status.
func (g *Gateway) UpdateBookingStatus(ctx context.Context, id domain.BookingID, status domain.BookingStatus) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	res, err := g.db.ExecContext(ctx,
		`UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`,
		string(id), string(status))
	if err != nil {
		return fmt.Errorf("failed to update booking %s status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("booking", string(id))
	}
	return nil
}

// OverlappingBookings returns inventory-consuming bookings intersecting
// [from, to) using the half-open overlap predicate.
func (g *Gateway) OverlappingBookings(ctx context.Context, hotelID domain.HotelID, from, to time.Time) ([]domain.Booking, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var rows []bookingRow
	err := g.db.SelectContext(ctx, &rows, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE hotel_id = $1
		  AND check_in < $3 AND check_out > $2
		  AND status IN ('CONFIRMED', 'CHECKED_IN')
		ORDER BY check_in`,
		string(hotelID), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load overlapping bookings for hotel %s: %w", hotelID, err)
	}

	bookings := make([]domain.Booking, 0, len(rows))
	for i := range rows {
		b, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, nil
}

// BookingsCompletedSince returns bookings that transitioned to COMPLETED
// after the given instant. The loyalty accrual worker consumes this.
func (g *Gateway) BookingsCompletedSince(ctx context.Context, since time.Time) ([]domain.Booking, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var rows []bookingRow
	err := g.db.SelectContext(ctx, &rows, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = 'COMPLETED' AND updated_at > $1
		ORDER BY updated_at`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed bookings: %w", err)
	}

	bookings := make([]domain.Booking, 0, len(rows))
	for i := range rows {
		b, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, nil
}
