package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/errs"
)

type roomRow struct {
	ID           string          `db:"id"`
	HotelID      string          `db:"hotel_id"`
	Number       string          `db:"number"`
	Floor        int             `db:"floor"`
	Type         string          `db:"type"`
	BasePrice    float64         `db:"base_price"`
	Status       string          `db:"status"`
	Amenities    pq.StringArray  `db:"amenities"`
	Yield        json.RawMessage `db:"yield_management"`
	DynamicPrice json.RawMessage `db:"current_dynamic_price"`
	History      json.RawMessage `db:"price_history"`
	Suggestions  json.RawMessage `db:"yield_suggestions"`
	Revenue      json.RawMessage `db:"revenue_tracking"`
}

const roomColumns = `id, hotel_id, number, floor, type, base_price, status, amenities,
	yield_management, current_dynamic_price, price_history, yield_suggestions, revenue_tracking`

func (r *roomRow) toDomain() (*domain.Room, error) {
	room := &domain.Room{
		ID:        domain.RoomID(r.ID),
		HotelID:   domain.HotelID(r.HotelID),
		Number:    r.Number,
		Floor:     r.Floor,
		Type:      domain.RoomType(r.Type),
		BasePrice: r.BasePrice,
		Status:    domain.RoomStatus(r.Status),
		Amenities: r.Amenities,
	}
	if len(r.Yield) > 0 && string(r.Yield) != "null" {
		room.Yield = &domain.RoomYieldOverride{}
		if err := json.Unmarshal(r.Yield, room.Yield); err != nil {
			return nil, fmt.Errorf("room %s: bad yield blob: %w", r.ID, err)
		}
	}
	if len(r.DynamicPrice) > 0 && string(r.DynamicPrice) != "null" {
		room.DynamicPrice = &domain.DynamicPrice{}
		if err := json.Unmarshal(r.DynamicPrice, room.DynamicPrice); err != nil {
			return nil, fmt.Errorf("room %s: bad dynamic price blob: %w", r.ID, err)
		}
	}
	if len(r.History) > 0 && string(r.History) != "null" {
		if err := json.Unmarshal(r.History, &room.PriceHistory); err != nil {
			return nil, fmt.Errorf("room %s: bad price history blob: %w", r.ID, err)
		}
	}
	if len(r.Suggestions) > 0 && string(r.Suggestions) != "null" {
		if err := json.Unmarshal(r.Suggestions, &room.YieldSuggestions); err != nil {
			return nil, fmt.Errorf("room %s: bad suggestions blob: %w", r.ID, err)
		}
	}
	if len(r.Revenue) > 0 && string(r.Revenue) != "null" {
		if err := json.Unmarshal(r.Revenue, &room.Revenue); err != nil {
			return nil, fmt.Errorf("room %s: bad revenue blob: %w", r.ID, err)
		}
	}
	return room, nil
}

// GetRoom loads a room by id.
func (g *Gateway) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var row roomRow
	err := g.db.GetContext(ctx, &row,
		`SELECT `+roomColumns+` FROM rooms WHERE id = $1`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("room", string(id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room %s: %w", id, err)
	}
	return row.toDomain()
}

// RoomsByHotel loads every room of a hotel.
func (g *Gateway) RoomsByHotel(ctx context.Context, hotelID domain.HotelID) ([]domain.Room, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var rows []roomRow
	err := g.db.SelectContext(ctx, &rows,
		`SELECT `+roomColumns+` FROM rooms WHERE hotel_id = $1 ORDER BY number`, string(hotelID))
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms for hotel %s: %w", hotelID, err)
	}

	rooms := make([]domain.Room, 0, len(rows))
	for i := range rows {
		room, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
	}
	return rooms, nil
}

// SaveRoom upserts a room. Uniqueness on (hotel_id, number) maps to a
// Conflict error.
func (g *Gateway) SaveRoom(ctx context.Context, room *domain.Room) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	yield, err := json.Marshal(room.Yield)
	if err != nil {
		return fmt.Errorf("failed to marshal yield override: %w", err)
	}
	dp, err := json.Marshal(room.DynamicPrice)
	if err != nil {
		return fmt.Errorf("failed to marshal dynamic price: %w", err)
	}
	history, err := json.Marshal(room.PriceHistory)
	if err != nil {
		return fmt.Errorf("failed to marshal price history: %w", err)
	}
	suggestions, err := json.Marshal(room.YieldSuggestions)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestions: %w", err)
	}
	revenue, err := json.Marshal(room.Revenue)
	if err != nil {
		return fmt.Errorf("failed to marshal revenue tracking: %w", err)
	}

	_, err = g.db.ExecContext(ctx, `
		INSERT INTO rooms (id, hotel_id, number, floor, type, base_price, status, amenities,
		                   yield_management, current_dynamic_price, price_history,
		                   yield_suggestions, revenue_tracking)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			floor = EXCLUDED.floor, type = EXCLUDED.type, base_price = EXCLUDED.base_price,
			status = EXCLUDED.status, amenities = EXCLUDED.amenities,
			yield_management = EXCLUDED.yield_management,
			current_dynamic_price = EXCLUDED.current_dynamic_price,
			price_history = EXCLUDED.price_history,
			yield_suggestions = EXCLUDED.yield_suggestions,
			revenue_tracking = EXCLUDED.revenue_tracking`,
		string(room.ID), string(room.HotelID), room.Number, room.Floor, string(room.Type),
		room.BasePrice, string(room.Status), pq.Array(room.Amenities),
		yield, dp, history, suggestions, revenue)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return errs.E(errs.KindConflict, "room number already exists", err)
		}
		return fmt.Errorf("failed to save room %s: %w", room.ID, err)
	}
	return nil
}

// UpdateDynamicPrice replaces the room's current dynamic price proposal.
func (g *Gateway) UpdateDynamicPrice(ctx context.Context, id domain.RoomID, dp *domain.DynamicPrice) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	blob, err := json.Marshal(dp)
	if err != nil {
		return fmt.Errorf("failed to marshal dynamic price: %w", err)
	}

	res, err := g.db.ExecContext(ctx,
		`UPDATE rooms SET current_dynamic_price = $2 WHERE id = $1`, string(id), blob)
	if err != nil {
		return fmt.Errorf("failed to update dynamic price for room %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("room", string(id))
	}
	return nil
}

// SetApproval moves a pending dynamic price through the approval workflow.
func (g *Gateway) SetApproval(ctx context.Context, id domain.RoomID, status domain.ApprovalStatus) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	res, err := g.db.ExecContext(ctx, `
		UPDATE rooms
		SET current_dynamic_price = jsonb_set(current_dynamic_price, '{approvalStatus}', to_jsonb($2::text))
		WHERE id = $1 AND current_dynamic_price IS NOT NULL`,
		string(id), string(status))
	if err != nil {
		return fmt.Errorf("failed to set approval for room %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("room", string(id))
	}
	return nil
}
