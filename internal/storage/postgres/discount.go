package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veciapp/marketplace-core/internal/domain/discount"
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

const couponColumns = `code, store_id, discount_type, value, min_subtotal,
	description, starts_at, ends_at, active`

// FindCouponByCode looks up a coupon by its normalized code. Returns
// discount.ErrCouponNotFound when no row matches; store and activity checks
// belong to the validator, not the query.
func (r *DiscountRepository) FindCouponByCode(ctx context.Context, code string) (*discount.Coupon, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code)

	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrCouponNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return c, nil
}

// ListCoupons returns a store's coupons in creation order.
func (r *DiscountRepository) ListCoupons(ctx context.Context, storeID string) ([]discount.Coupon, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE store_id = $1 ORDER BY code`, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing coupons for store %q: %w", storeID, err)
	}
	defer rows.Close()

	var out []discount.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning coupon: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating coupons: %w", err)
	}
	return out, nil
}

// ListPromotions returns a store's promotions, newest window first.
func (r *DiscountRepository) ListPromotions(ctx context.Context, storeID string) ([]discount.Promotion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, store_id, name, discount_type, value, category, product_ids,
		       starts_at, ends_at, enabled
		FROM promotions WHERE store_id = $1 ORDER BY starts_at DESC`, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing promotions for store %q: %w", storeID, err)
	}
	defer rows.Close()

	var out []discount.Promotion
	for rows.Next() {
		var (
			p          discount.Promotion
			productIDs []byte
		)
		err := rows.Scan(
			&p.ID, &p.StoreID, &p.Name, &p.Rule.Type, &p.Rule.Value,
			&p.Category, &productIDs, &p.StartsAt, &p.EndsAt, &p.Enabled,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning promotion: %w", err)
		}
		if err := json.Unmarshal(productIDs, &p.ProductIDs); err != nil {
			return nil, fmt.Errorf("unmarshaling promotion product ids: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating promotions: %w", err)
	}
	return out, nil
}

func scanCoupon(row rowScanner) (*discount.Coupon, error) {
	var c discount.Coupon
	err := row.Scan(
		&c.Code, &c.StoreID, &c.Rule.Type, &c.Rule.Value, &c.MinSubtotal,
		&c.Description, &c.StartsAt, &c.EndsAt, &c.Active,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
