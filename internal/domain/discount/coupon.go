package discount

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Reason classifies why a coupon was rejected. It is stable and machine
// readable; the Message on RejectedError is what the storefront shows.
type Reason string

const (
	ReasonNotFound     Reason = "not_found"
	ReasonWrongStore   Reason = "wrong_store"
	ReasonInactive     Reason = "inactive"
	ReasonOutOfWindow  Reason = "out_of_window"
	ReasonBelowMinimum Reason = "below_minimum"
)

// RejectedError reports a coupon that failed validation. Rejections are always
// recoverable: the caller proceeds without a discount.
type RejectedError struct {
	Code    string
	Reason  Reason
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("coupon %s rejected: %s", e.Code, e.Message)
}

// RejectionReason extracts the rejection reason from err, or "" when err is
// not a coupon rejection.
func RejectionReason(err error) Reason {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ""
}

func rejected(code string, reason Reason, msg string) *RejectedError {
	return &RejectedError{Code: code, Reason: reason, Message: msg}
}

// Coupon is a code-redeemed discount rule scoped to one store.
type Coupon struct {
	Code        string
	StoreID     string
	Rule        Rule
	MinSubtotal decimal.Decimal
	Description string
	// StartsAt/EndsAt bound the validity window inclusively. A nil bound is
	// unbounded on that side.
	StartsAt *time.Time
	EndsAt   *time.Time
	Active   bool
}

// NormalizeCode canonicalizes a coupon code for lookup and storage.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Applied is the outcome of a successful coupon validation. Orders persist
// this computed snapshot, never a live reference to the coupon record.
type Applied struct {
	Code        string
	Amount      decimal.Decimal
	Description string
}

// Evaluate checks a coupon against a store and subtotal at a given instant and
// computes the discount. It is a pure function: identical inputs always yield
// identical results.
func Evaluate(c Coupon, storeID string, subtotal decimal.Decimal, now time.Time) (*Applied, error) {
	if c.StoreID != storeID {
		return nil, rejected(c.Code, ReasonWrongStore, "el cupón no es válido en esta tienda")
	}
	if !c.Active {
		return nil, rejected(c.Code, ReasonInactive, "el cupón ya no está activo")
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return nil, rejected(c.Code, ReasonOutOfWindow, "el cupón aún no está vigente")
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return nil, rejected(c.Code, ReasonOutOfWindow, "el cupón ya venció")
	}
	if subtotal.LessThan(c.MinSubtotal) {
		return nil, rejected(c.Code, ReasonBelowMinimum,
			fmt.Sprintf("el pedido debe superar %s para usar este cupón", c.MinSubtotal.StringFixed(0)))
	}

	amount, err := c.Rule.Amount(subtotal)
	if err != nil {
		return nil, err
	}

	return &Applied{
		Code:        c.Code,
		Amount:      amount,
		Description: c.Description,
	}, nil
}

// ErrCouponNotFound is returned by repositories when no coupon matches a code.
var ErrCouponNotFound = errors.New("coupon not found")

// Repository provides read access to a store's coupon and promotion records.
type Repository interface {
	FindCouponByCode(ctx context.Context, code string) (*Coupon, error)
	ListCoupons(ctx context.Context, storeID string) ([]Coupon, error)
	ListPromotions(ctx context.Context, storeID string) ([]Promotion, error)
}
