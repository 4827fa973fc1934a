// Package discount implements the pricing rules shared by code-redeemed
// coupons and store-wide promotions. Both are entry points into the same
// Rule math, so the two record types can never drift apart.
package discount

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage applies a percentage of the subtotal.
	TypePercentage Type = "percentage"
	// TypeFixed applies a fixed monetary amount capped at the subtotal.
	TypeFixed Type = "fixed"
)

// ErrUnsupportedType is returned when a rule carries an unknown discount type.
var ErrUnsupportedType = errors.New("unsupported discount type")

var hundred = decimal.NewFromInt(100)

// Rule is the single discount computation both coupons and promotions share.
type Rule struct {
	Type  Type
	Value decimal.Decimal
}

// Amount computes the monetary discount for the given subtotal. The result is
// always within [0, subtotal], so applying it never produces a negative total.
func (r Rule) Amount(subtotal decimal.Decimal) (decimal.Decimal, error) {
	var amount decimal.Decimal
	switch r.Type {
	case TypePercentage:
		amount = subtotal.Mul(r.Value).Div(hundred)
	case TypeFixed:
		amount = r.Value
	default:
		return decimal.Zero, errors.Wrapf(ErrUnsupportedType, "%q", r.Type)
	}

	if amount.IsNegative() {
		return decimal.Zero, nil
	}
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	return amount.Round(2), nil
}
