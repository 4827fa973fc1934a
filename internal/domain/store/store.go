package store

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a store does not exist.
var ErrNotFound = errors.New("store not found")

// Store holds the seller-side settings the order core cares about.
type Store struct {
	ID       string
	Name     string
	MinOrder decimal.Decimal
	Active   bool
}

// Repository defines read operations for store settings.
type Repository interface {
	Get(ctx context.Context, storeID string) (*Store, error)
}
