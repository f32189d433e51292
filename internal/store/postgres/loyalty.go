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

type accountRow struct {
	UserID         string    `db:"user_id"`
	Tier           string    `db:"tier"`
	CurrentPoints  int64     `db:"current_points"`
	LifetimePoints int64     `db:"lifetime_points"`
	State          string    `db:"state"`
	EnrolledAt     time.Time `db:"enrolled_at"`
}

type transactionRow struct {
	ID           string         `db:"id"`
	UserID       string         `db:"user_id"`
	PointsAmount int64          `db:"points_amount"`
	Status       string         `db:"status"`
	Reason       string         `db:"reason"`
	BookingID    sql.NullString `db:"booking_id"`
	IssuedAt     time.Time      `db:"issued_at"`
	ExpiresAt    sql.NullTime   `db:"expires_at"`
}

func (r *transactionRow) toDomain() domain.LoyaltyTransaction {
	tx := domain.LoyaltyTransaction{
		ID:           r.ID,
		UserID:       domain.UserID(r.UserID),
		PointsAmount: r.PointsAmount,
		Status:       domain.TransactionStatus(r.Status),
		Reason:       r.Reason,
		IssuedAt:     r.IssuedAt,
	}
	if r.BookingID.Valid {
		id := domain.BookingID(r.BookingID.String)
		tx.BookingID = &id
	}
	if r.ExpiresAt.Valid {
		t := r.ExpiresAt.Time
		tx.ExpiresAt = &t
	}
	return tx
}

// GetAccount loads a loyalty account by user.
func (g *Gateway) GetAccount(ctx context.Context, userID domain.UserID) (*domain.LoyaltyAccount, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var row accountRow
	err := g.db.GetContext(ctx, &row, `
		SELECT user_id, tier, current_points, lifetime_points, state, enrolled_at
		FROM loyalty_accounts WHERE user_id = $1`, string(userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("loyalty account", string(userID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load loyalty account %s: %w", userID, err)
	}

	return &domain.LoyaltyAccount{
		UserID:         domain.UserID(row.UserID),
		Tier:           domain.Tier(row.Tier),
		CurrentPoints:  row.CurrentPoints,
		LifetimePoints: row.LifetimePoints,
		State:          domain.AccountState(row.State),
		EnrolledAt:     row.EnrolledAt,
	}, nil
}

// SaveAccount upserts a loyalty account.
func (g *Gateway) SaveAccount(ctx context.Context, a *domain.LoyaltyAccount) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	_, err := g.db.ExecContext(ctx, `
		INSERT INTO loyalty_accounts (user_id, tier, current_points, lifetime_points, state, enrolled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			tier = EXCLUDED.tier, current_points = EXCLUDED.current_points,
			lifetime_points = EXCLUDED.lifetime_points, state = EXCLUDED.state`,
		string(a.UserID), string(a.Tier), a.CurrentPoints, a.LifetimePoints,
		string(a.State), a.EnrolledAt)
	if err != nil {
		return fmt.Errorf("failed to save loyalty account %s: %w", a.UserID, err)
	}
	return nil
}

// AppendTransaction inserts a transaction into the append-only log.
func (g *Gateway) AppendTransaction(ctx context.Context, tx *domain.LoyaltyTransaction) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var bookingID interface{}
	if tx.BookingID != nil {
		bookingID = string(*tx.BookingID)
	}
	var expiresAt interface{}
	if tx.ExpiresAt != nil {
		expiresAt = *tx.ExpiresAt
	}

	_, err := g.db.ExecContext(ctx, `
		INSERT INTO loyalty_transactions (id, user_id, points_amount, status, reason,
		                                  booking_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tx.ID, string(tx.UserID), tx.PointsAmount, string(tx.Status), tx.Reason,
		bookingID, tx.IssuedAt, expiresAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return errs.E(errs.KindConflict, "duplicate loyalty transaction", err)
		}
		return fmt.Errorf("failed to append loyalty transaction %s: %w", tx.ID, err)
	}
	return nil
}

const transactionColumns = `id, user_id, points_amount, status, reason, booking_id, issued_at, expires_at`

// TransactionsByUser returns a user's full transaction log, oldest first.
func (g *Gateway) TransactionsByUser(ctx context.Context, userID domain.UserID) ([]domain.LoyaltyTransaction, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var rows []transactionRow
	err := g.db.SelectContext(ctx, &rows,
		`SELECT `+transactionColumns+` FROM loyalty_transactions WHERE user_id = $1 ORDER BY issued_at`,
		string(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions for %s: %w", userID, err)
	}

	txs := make([]domain.LoyaltyTransaction, 0, len(rows))
	for i := range rows {
		txs = append(txs, rows[i].toDomain())
	}
	return txs, nil
}

// ExpiringTransactions returns positive COMPLETED transactions with
// expires_at inside (from, to].
func (g *Gateway) ExpiringTransactions(ctx context.Context, from, to time.Time) ([]domain.LoyaltyTransaction, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var rows []transactionRow
	err := g.db.SelectContext(ctx, &rows, `
		SELECT `+transactionColumns+`
		FROM loyalty_transactions
		WHERE points_amount > 0 AND status = 'COMPLETED'
		  AND expires_at > $1 AND expires_at <= $2
		ORDER BY expires_at`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load expiring transactions: %w", err)
	}

	txs := make([]domain.LoyaltyTransaction, 0, len(rows))
	for i := range rows {
		txs = append(txs, rows[i].toDomain())
	}
	return txs, nil
}

// MarkTransactionStatus updates a transaction's status in place. Used only
// to flag source transactions as EXPIRED; points corrections are offsetting
// entries, never edits.
func (g *Gateway) MarkTransactionStatus(ctx context.Context, id string, status domain.TransactionStatus) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	res, err := g.db.ExecContext(ctx,
		`UPDATE loyalty_transactions SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to mark transaction %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("loyalty transaction", id)
	}
	return nil
}

// ActiveCampaigns loads campaigns whose window covers now.
func (g *Gateway) ActiveCampaigns(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var blobs []json.RawMessage
	err := g.db.SelectContext(ctx, &blobs, `
		SELECT payload FROM loyalty_campaigns
		WHERE valid_from <= $1 AND valid_until >= $1
		ORDER BY valid_from`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load active campaigns: %w", err)
	}

	campaigns := make([]domain.Campaign, 0, len(blobs))
	for _, blob := range blobs {
		var c domain.Campaign
		if err := json.Unmarshal(blob, &c); err != nil {
			return nil, fmt.Errorf("bad campaign blob: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, nil
}

// SaveCampaign upserts a campaign.
func (g *Gateway) SaveCampaign(ctx context.Context, c *domain.Campaign) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	blob, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign: %w", err)
	}

	_, err = g.db.ExecContext(ctx, `
		INSERT INTO loyalty_campaigns (id, valid_from, valid_until, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			valid_from = EXCLUDED.valid_from, valid_until = EXCLUDED.valid_until,
			payload = EXCLUDED.payload`,
		string(c.ID), c.ValidFrom, c.ValidUntil, blob)
	if err != nil {
		return fmt.Errorf("failed to save campaign %s: %w", c.ID, err)
	}
	return nil
}
