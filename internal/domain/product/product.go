package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item offered by a store.
type Product struct {
	ID       string
	StoreID  string
	Name     string
	Price    decimal.Decimal
	Category string
	Stock    int
	Active   bool
}

// Sellable reports whether the product can currently be added to a cart.
func (p Product) Sellable() bool {
	return p.Active && p.Stock > 0
}

// Repository defines read operations for the product catalog. The catalog is
// owned by the admin tooling; the order core only ever reads it.
type Repository interface {
	ListActive(ctx context.Context, storeID string) ([]Product, error)
	GetByIDs(ctx context.Context, storeID string, ids []string) ([]Product, error)
}
