package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veciapp/marketplace-core/internal/domain/incident"
)

var _ incident.Repository = (*IncidentRepository)(nil)

// IncidentRepository implements the append-only incident log on PostgreSQL.
type IncidentRepository struct {
	pool *pgxpool.Pool
}

// NewIncidentRepository returns an IncidentRepository that uses the given pool.
func NewIncidentRepository(pool *pgxpool.Pool) *IncidentRepository {
	return &IncidentRepository{pool: pool}
}

// Append inserts one incident record. There is no update path: the log only
// grows.
func (r *IncidentRepository) Append(ctx context.Context, inc *incident.Incident) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO incidents (id, order_id, order_status, reason, detail, reported_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inc.ID, inc.OrderID, inc.OrderStatus, inc.Reason, inc.Detail, inc.ReportedBy, inc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending incident for order %q: %w", inc.OrderID, err)
	}
	return nil
}

// ListByOrder returns an order's incidents, oldest first.
func (r *IncidentRepository) ListByOrder(ctx context.Context, orderID string) ([]incident.Incident, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, order_status, reason, detail, reported_by, created_at
		FROM incidents WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing incidents for order %q: %w", orderID, err)
	}
	defer rows.Close()

	var out []incident.Incident
	for rows.Next() {
		var inc incident.Incident
		err := rows.Scan(&inc.ID, &inc.OrderID, &inc.OrderStatus, &inc.Reason,
			&inc.Detail, &inc.ReportedBy, &inc.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning incident: %w", err)
		}
		out = append(out, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating incidents: %w", err)
	}
	return out, nil
}
