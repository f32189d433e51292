package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/errs"
)

type hotelRow struct {
	ID          string          `db:"id"`
	Code        string          `db:"code"`
	Name        string          `db:"name"`
	Stars       int             `db:"stars"`
	Timezone    string          `db:"timezone"`
	Coordinates json.RawMessage `db:"coordinates"`
	QRSettings  json.RawMessage `db:"qr_settings"`
	CacheCfg    json.RawMessage `db:"cache_settings"`
	YieldCfg    json.RawMessage `db:"yield_management"`
	Metrics     json.RawMessage `db:"performance_metrics"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (r *hotelRow) toDomain() (*domain.Hotel, error) {
	h := &domain.Hotel{
		ID:       domain.HotelID(r.ID),
		Code:     r.Code,
		Name:     r.Name,
		Stars:    r.Stars,
		Timezone: r.Timezone,
	}
	if len(r.Coordinates) > 0 && string(r.Coordinates) != "null" {
		h.Coordinates = &domain.Coordinates{}
		if err := json.Unmarshal(r.Coordinates, h.Coordinates); err != nil {
			return nil, fmt.Errorf("hotel %s: bad coordinates: %w", r.ID, err)
		}
	}
	for blob, dst := range map[*json.RawMessage]interface{}{
		&r.QRSettings: &h.QRSettings,
		&r.CacheCfg:   &h.Cache,
		&r.YieldCfg:   &h.Yield,
	} {
		if len(*blob) > 0 && string(*blob) != "null" {
			if err := json.Unmarshal(*blob, dst); err != nil {
				return nil, fmt.Errorf("hotel %s: bad config blob: %w", r.ID, err)
			}
		}
	}
	if len(r.Metrics) > 0 && string(r.Metrics) != "null" {
		h.Metrics = &domain.PerformanceMetrics{}
		if err := json.Unmarshal(r.Metrics, h.Metrics); err != nil {
			return nil, fmt.Errorf("hotel %s: bad metrics blob: %w", r.ID, err)
		}
	}
	return h, nil
}

// GetHotel loads a hotel by id.
func (g *Gateway) GetHotel(ctx context.Context, id domain.HotelID) (*domain.Hotel, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var row hotelRow
	err := g.db.GetContext(ctx, &row, `
		SELECT id, code, name, stars, timezone, coordinates, qr_settings,
		       cache_settings, yield_management, performance_metrics, updated_at
		FROM hotels WHERE id = $1`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("hotel", string(id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load hotel %s: %w", id, err)
	}
	return row.toDomain()
}

// ListHotels loads every hotel.
func (g *Gateway) ListHotels(ctx context.Context) ([]domain.Hotel, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var rows []hotelRow
	err := g.db.SelectContext(ctx, &rows, `
		SELECT id, code, name, stars, timezone, coordinates, qr_settings,
		       cache_settings, yield_management, performance_metrics, updated_at
		FROM hotels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hotels: %w", err)
	}

	hotels := make([]domain.Hotel, 0, len(rows))
	for i := range rows {
		h, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		hotels = append(hotels, *h)
	}
	return hotels, nil
}

// SaveHotel upserts a hotel record.
func (g *Gateway) SaveHotel(ctx context.Context, h *domain.Hotel) error {
	if err := domain.ValidateHotel(h); err != nil {
		return errs.Validation(err)
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	coords, err := json.Marshal(h.Coordinates)
	if err != nil {
		return fmt.Errorf("failed to marshal coordinates: %w", err)
	}
	qr, err := json.Marshal(h.QRSettings)
	if err != nil {
		return fmt.Errorf("failed to marshal qr settings: %w", err)
	}
	cacheCfg, err := json.Marshal(h.Cache)
	if err != nil {
		return fmt.Errorf("failed to marshal cache settings: %w", err)
	}
	yield, err := json.Marshal(h.Yield)
	if err != nil {
		return fmt.Errorf("failed to marshal yield management: %w", err)
	}
	metricsBlob, err := json.Marshal(h.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal performance metrics: %w", err)
	}

	_, err = g.db.ExecContext(ctx, `
		INSERT INTO hotels (id, code, name, stars, timezone, coordinates, qr_settings,
		                    cache_settings, yield_management, performance_metrics, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code, name = EXCLUDED.name, stars = EXCLUDED.stars,
			timezone = EXCLUDED.timezone, coordinates = EXCLUDED.coordinates,
			qr_settings = EXCLUDED.qr_settings, cache_settings = EXCLUDED.cache_settings,
			yield_management = EXCLUDED.yield_management,
			performance_metrics = EXCLUDED.performance_metrics, updated_at = NOW()`,
		string(h.ID), h.Code, h.Name, h.Stars, h.Timezone,
		coords, qr, cacheCfg, yield, metricsBlob)
	if err != nil {
		return fmt.Errorf("failed to save hotel %s: %w", h.ID, err)
	}
	return nil
}

// UpdatePerformanceMetrics writes only the rollup snapshot blob. Metrics are
// derived state kept out of the config write path.
func (g *Gateway) UpdatePerformanceMetrics(ctx context.Context, id domain.HotelID, m *domain.PerformanceMetrics) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	blob, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal performance metrics: %w", err)
	}

	res, err := g.db.ExecContext(ctx,
		`UPDATE hotels SET performance_metrics = $2, updated_at = NOW() WHERE id = $1`,
		string(id), blob)
	if err != nil {
		return fmt.Errorf("failed to update metrics for hotel %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("hotel", string(id))
	}
	return nil
}
