package incident

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/veciapp/marketplace-core/internal/domain/order"
)

// OrderSource is the read-only slice of order persistence the service needs.
type OrderSource interface {
	Get(ctx context.Context, id string) (*order.Order, error)
}

// Service appends incident reports after checking the order is still open.
type Service struct {
	orders OrderSource
	repo   Repository
	now    func() time.Time
}

// NewService creates an incident Service.
func NewService(orders OrderSource, repo Repository) *Service {
	return &Service{orders: orders, repo: repo, now: time.Now}
}

// Report appends an incident for the given order. It succeeds for any
// existing non-terminal order, however many incidents it already has, and
// never mutates the order itself.
func (s *Service) Report(ctx context.Context, orderID string, reason Reason, detail string, reportedBy order.Role) (*Incident, error) {
	if !reason.Valid() {
		return nil, errors.Wrapf(ErrInvalidReason, "%q", reason)
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, ErrOrderClosed
	}

	inc := &Incident{
		ID:          uuid.New().String(),
		OrderID:     orderID,
		OrderStatus: o.Status,
		Reason:      reason,
		Detail:      detail,
		ReportedBy:  reportedBy,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Append(ctx, inc); err != nil {
		return nil, errors.Wrap(err, "append incident")
	}
	return inc, nil
}

// ListByOrder returns an order's incident log, oldest first.
func (s *Service) ListByOrder(ctx context.Context, orderID string) ([]Incident, error) {
	return s.repo.ListByOrder(ctx, orderID)
}
