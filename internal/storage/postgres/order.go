package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veciapp/marketplace-core/internal/domain/discount"
	"github.com/veciapp/marketplace-core/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. The
// compare-and-set contract of UpdateStatus and Claim maps to conditional
// UPDATE statements: the WHERE clause re-checks the expected status inside
// the statement, so concurrent writers serialize at the row.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, store_id, status, items, subtotal, discount, total,
	coupon_code, coupon_description, contact_name, phone, address, notes,
	courier_id, courier_name, payment_confirmed, created_at, updated_at`

// Create persists a new order. Line items are serialized to JSON for the
// JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	couponCode, couponDescription := "", ""
	if o.Coupon != nil {
		couponCode = o.Coupon.Code
		couponDescription = o.Coupon.Description
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO orders (
			id, store_id, status, items, subtotal, discount, total,
			coupon_code, coupon_description, contact_name, phone, address, notes,
			courier_id, courier_name, payment_confirmed, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		o.ID, o.StoreID, o.Status, items, o.Subtotal, o.Discount, o.Total,
		couponCode, couponDescription,
		o.Delivery.ContactName, o.Delivery.Phone, o.Delivery.Address, o.Delivery.Notes,
		o.CourierID, o.CourierName, o.PaymentConfirmed, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// Get loads one order by id.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// ListByStore returns a store's orders, newest first.
func (r *OrderRepository) ListByStore(ctx context.Context, storeID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE store_id = $1 ORDER BY created_at DESC`, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for store %q: %w", storeID, err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// ListUnassigned returns confirmed orders with no courier, oldest first, the
// queue couriers pick from.
func (r *OrderRepository) ListUnassigned(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE status = $1 AND courier_id = '' ORDER BY created_at`, order.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("listing unassigned orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// UpdateStatus moves an order from one status to another only if the
// persisted status still equals from. A conflicting concurrent write makes
// the UPDATE match nothing and surfaces as order.ErrStatusConflict.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status, at time.Time) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE orders SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+orderColumns,
		id, from, to, at)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, r.conflictOrMissing(ctx, id)
		}
		return nil, err
	}
	return o, nil
}

// Claim atomically assigns a courier to a confirmed order and moves it to
// assigned. The WHERE clause is the whole race arbiter: of two concurrent
// couriers exactly one UPDATE matches the confirmed row.
func (r *OrderRepository) Claim(ctx context.Context, id, courierID, courierName string, at time.Time) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE orders SET status = $4, courier_id = $2, courier_name = $3, updated_at = $5
		WHERE id = $1 AND status = $6 AND courier_id = ''
		RETURNING `+orderColumns,
		id, courierID, courierName, order.StatusAssigned, at, order.StatusConfirmed)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, r.conflictOrMissing(ctx, id)
		}
		return nil, err
	}
	return o, nil
}

// conflictOrMissing distinguishes "the row moved on" from "no such order"
// after a conditional UPDATE matched nothing.
func (r *OrderRepository) conflictOrMissing(ctx context.Context, id string) error {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking order %q: %w", id, err)
	}
	if !exists {
		return order.ErrNotFound
	}
	return order.ErrStatusConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o                 order.Order
		items             []byte
		couponCode        string
		couponDescription string
	)
	err := row.Scan(
		&o.ID, &o.StoreID, &o.Status, &items, &o.Subtotal, &o.Discount, &o.Total,
		&couponCode, &couponDescription,
		&o.Delivery.ContactName, &o.Delivery.Phone, &o.Delivery.Address, &o.Delivery.Notes,
		&o.CourierID, &o.CourierName, &o.PaymentConfirmed, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("scanning order: %w", err)
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if couponCode != "" {
		o.Coupon = &discount.Applied{
			Code:        couponCode,
			Amount:      o.Discount,
			Description: couponDescription,
		}
	}
	return &o, nil
}

func scanOrders(rows pgx.Rows) ([]order.Order, error) {
	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}
	return out, nil
}
