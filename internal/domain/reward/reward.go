// Package reward computes and records the one-time delivery settlement:
// loyalty points for the shopkeeper and an earning amount for the courier.
package reward

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/veciapp/marketplace-core/internal/domain/order"
)

// Entry is the ledger record for one delivered order. At most one entry may
// ever exist per order; absence means "not yet settled", never "zero".
type Entry struct {
	OrderID          string
	ShopkeeperPoints int64
	CourierEarnings  decimal.Decimal
	CreatedAt        time.Time
}

var (
	// ErrAlreadySettled is returned by repositories when an entry for the
	// order already exists.
	ErrAlreadySettled = errors.New("order already settled")
	// ErrNotSettled is returned by Get when no entry exists yet.
	ErrNotSettled = errors.New("order not settled yet")
)

// Repository is the write-once ledger store.
type Repository interface {
	Write(ctx context.Context, e *Entry) error
	Get(ctx context.Context, orderID string) (*Entry, error)
}

// EarningsTable computes what the courier earns for a delivered order.
// The concrete rates are operations configuration, not core logic.
type EarningsTable interface {
	Earnings(o *order.Order) decimal.Decimal
}

// FlatTable pays a flat base per delivery plus a percentage of the order
// total. It is the default EarningsTable; zones plug in as alternative
// implementations.
type FlatTable struct {
	Base    decimal.Decimal
	Percent decimal.Decimal
}

// Earnings implements EarningsTable.
func (t FlatTable) Earnings(o *order.Order) decimal.Decimal {
	cut := o.Total.Mul(t.Percent).Div(decimal.NewFromInt(100))
	return t.Base.Add(cut).Round(2)
}
