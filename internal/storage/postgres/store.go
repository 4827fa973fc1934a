package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veciapp/marketplace-core/internal/domain/store"
)

var _ store.Repository = (*StoreRepository)(nil)

// StoreRepository implements store.Repository backed by PostgreSQL.
type StoreRepository struct {
	pool *pgxpool.Pool
}

// NewStoreRepository returns a StoreRepository that uses the given pool.
func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{pool: pool}
}

// Get loads one store's settings.
func (r *StoreRepository) Get(ctx context.Context, storeID string) (*store.Store, error) {
	var s store.Store
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, min_order, active FROM stores WHERE id = $1`, storeID,
	).Scan(&s.ID, &s.Name, &s.MinOrder, &s.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("getting store %q: %w", storeID, err)
	}
	return &s, nil
}
