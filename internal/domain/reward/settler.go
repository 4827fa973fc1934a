package reward

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/veciapp/marketplace-core/internal/domain/order"
)

// DefaultPointsDivisor awards one loyalty point per 1000 currency units of
// order total.
const DefaultPointsDivisor = 1000

// Settler writes the settlement entry for a delivered order. Settle is
// idempotent: a second call for the same order is a no-op, never a
// double-credit.
type Settler struct {
	repo     Repository
	earnings EarningsTable
	divisor  decimal.Decimal
	lg       *zap.Logger
	now      func() time.Time
}

// NewSettler creates a Settler. A non-positive pointsDivisor falls back to
// DefaultPointsDivisor.
func NewSettler(repo Repository, earnings EarningsTable, pointsDivisor int64, lg *zap.Logger) *Settler {
	if pointsDivisor <= 0 {
		pointsDivisor = DefaultPointsDivisor
	}
	return &Settler{
		repo:     repo,
		earnings: earnings,
		divisor:  decimal.NewFromInt(pointsDivisor),
		lg:       lg,
		now:      time.Now,
	}
}

// Settle computes and writes the ledger entry for o. Points are
// floor(total / divisor); courier earnings come from the configured table.
func (s *Settler) Settle(ctx context.Context, o *order.Order) error {
	entry := &Entry{
		OrderID:          o.ID,
		ShopkeeperPoints: o.Total.Div(s.divisor).Floor().IntPart(),
		CourierEarnings:  s.earnings.Earnings(o),
		CreatedAt:        s.now(),
	}

	if err := s.repo.Write(ctx, entry); err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			s.lg.Debug("settlement already recorded", zap.String("order_id", o.ID))
			return nil
		}
		return errors.Wrap(err, "write ledger entry")
	}

	s.lg.Info("delivery settled",
		zap.String("order_id", o.ID),
		zap.Int64("shopkeeper_points", entry.ShopkeeperPoints),
		zap.String("courier_earnings", entry.CourierEarnings.String()),
	)
	return nil
}
