// Package postgres implements the store gateway on PostgreSQL via sqlx.
// Nested configuration blocks live in JSONB columns; the relational shape
// covers only what the core queries.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/store"
)

// defaultTimeout bounds individual store operations when the caller's
// context carries no tighter deadline.
const defaultTimeout = 5 * time.Second

// Gateway is the PostgreSQL store gateway.
type Gateway struct {
	db      *sqlx.DB
	timeout time.Duration
}

var _ store.Gateway = (*Gateway)(nil)

// Connect opens a pooled connection and verifies it.
func Connect(ctx context.Context, dsn string) (*Gateway, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	log.Info().Msg("connected to postgres")
	return &Gateway{db: db, timeout: defaultTimeout}, nil
}

// NewFromDB wraps an existing connection; used by tests.
func NewFromDB(db *sqlx.DB) *Gateway {
	return &Gateway{db: db, timeout: defaultTimeout}
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.timeout)
}

// Ping checks store connectivity.
func (g *Gateway) Ping(ctx context.Context) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.db.PingContext(ctx)
}

// Close releases the connection pool.
func (g *Gateway) Close() error {
	return g.db.Close()
}
