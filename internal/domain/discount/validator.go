package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator validates coupon codes and picks the best auto-applicable coupon
// for a store. All time-dependent checks go through the injectable clock.
type Validator struct {
	repo Repository
	now  func() time.Time
}

// NewValidator creates a Validator backed by the given Repository.
func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo, now: time.Now}
}

// Validate looks up the coupon by its normalized code and evaluates it against
// the store and subtotal. Rejections come back as *RejectedError; any other
// error is infrastructural.
func (v *Validator) Validate(ctx context.Context, storeID, code string, subtotal decimal.Decimal) (*Applied, error) {
	normalized := NormalizeCode(code)

	c, err := v.repo.FindCouponByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, rejected(normalized, ReasonNotFound, "el cupón no existe")
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	return Evaluate(*c, storeID, subtotal, v.now())
}

// SelectBest evaluates every coupon of the store and returns the valid one
// with the largest discount. Ties keep the earliest coupon in repository
// order. It returns (nil, nil) when no coupon currently applies.
func (v *Validator) SelectBest(ctx context.Context, storeID string, subtotal decimal.Decimal) (*Applied, error) {
	coupons, err := v.repo.ListCoupons(ctx, storeID)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}

	now := v.now()

	var best *Applied
	for _, c := range coupons {
		applied, err := Evaluate(c, storeID, subtotal, now)
		if err != nil {
			var rej *RejectedError
			if errors.As(err, &rej) {
				continue
			}
			return nil, err
		}
		if best == nil || applied.Amount.GreaterThan(best.Amount) {
			best = applied
		}
	}
	return best, nil
}

// Promotions returns every promotion of the store regardless of state.
// Callers derive the state per promotion with Promotion.Status.
func (v *Validator) Promotions(ctx context.Context, storeID string) ([]Promotion, error) {
	promos, err := v.repo.ListPromotions(ctx, storeID)
	if err != nil {
		return nil, errors.Wrap(err, "list promotions")
	}
	return promos, nil
}

// Active returns the store's promotions that are live at validation time.
func (v *Validator) Active(ctx context.Context, storeID string) ([]Promotion, error) {
	promos, err := v.repo.ListPromotions(ctx, storeID)
	if err != nil {
		return nil, errors.Wrap(err, "list promotions")
	}
	return ActivePromotions(promos, v.now()), nil
}
