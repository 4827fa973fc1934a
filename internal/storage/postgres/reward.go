package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veciapp/marketplace-core/internal/domain/reward"
)

var _ reward.Repository = (*RewardRepository)(nil)

// RewardRepository implements the write-once settlement ledger on PostgreSQL.
// The order_id primary key enforces at most one entry per order; a second
// write surfaces as reward.ErrAlreadySettled instead of overwriting.
type RewardRepository struct {
	pool *pgxpool.Pool
}

// NewRewardRepository returns a RewardRepository that uses the given pool.
func NewRewardRepository(pool *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{pool: pool}
}

// Write inserts the settlement entry for an order.
func (r *RewardRepository) Write(ctx context.Context, e *reward.Entry) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO reward_ledger (order_id, shopkeeper_points, courier_earnings, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id) DO NOTHING`,
		e.OrderID, e.ShopkeeperPoints, e.CourierEarnings, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("writing ledger entry for order %q: %w", e.OrderID, err)
	}
	if tag.RowsAffected() == 0 {
		return reward.ErrAlreadySettled
	}
	return nil
}

// Get loads the settlement entry for an order, or reward.ErrNotSettled.
func (r *RewardRepository) Get(ctx context.Context, orderID string) (*reward.Entry, error) {
	var e reward.Entry
	err := r.pool.QueryRow(ctx, `
		SELECT order_id, shopkeeper_points, courier_earnings, created_at
		FROM reward_ledger WHERE order_id = $1`, orderID,
	).Scan(&e.OrderID, &e.ShopkeeperPoints, &e.CourierEarnings, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reward.ErrNotSettled
		}
		return nil, fmt.Errorf("getting ledger entry for order %q: %w", orderID, err)
	}
	return &e, nil
}
