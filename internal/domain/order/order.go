// Package order holds the order aggregate and its state machine. An order is
// created once by checkout, then only ever mutated through status transitions;
// it is never deleted.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/veciapp/marketplace-core/internal/domain/discount"
)

// LineItem is one priced cart line. Quantity is always positive; Subtotal is
// UnitPrice times Quantity, frozen at creation time.
type LineItem struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Subtotal  decimal.Decimal
}

// DeliveryInfo is the contact data required before an order can be created.
type DeliveryInfo struct {
	ContactName string
	Phone       string
	Address     string
	Notes       string
}

// Order is the aggregate root. Pricing fields obey two invariants for the
// whole lifetime of the record: 0 <= Discount <= Subtotal, and
// Total = Subtotal - Discount.
type Order struct {
	ID               string
	StoreID          string
	Status           Status
	Items            []LineItem
	Subtotal         decimal.Decimal
	Discount         decimal.Decimal
	Total            decimal.Decimal
	Coupon           *discount.Applied
	Delivery         DeliveryInfo
	CourierID        string
	CourierName      string
	PaymentConfirmed bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TransitionErrorKind classifies why a transition was refused.
type TransitionErrorKind string

const (
	// KindInvalidTransition means the target is not the legal next state.
	KindInvalidTransition TransitionErrorKind = "invalid_transition"
	// KindAlreadyTerminal means the order reached delivered or cancelled.
	KindAlreadyTerminal TransitionErrorKind = "already_terminal"
	// KindMissingCourier means a courier-driven move was attempted on an
	// order with no assignment.
	KindMissingCourier TransitionErrorKind = "missing_courier"
	// KindNoChange means the order is already in the requested state. It is
	// deliberately distinct from an illegal jump so callers can treat it as
	// a stale retry rather than a bug.
	KindNoChange TransitionErrorKind = "no_change"
)

// TransitionError reports a refused status transition. The Message is what
// the storefront shows; Kind is what callers branch on.
type TransitionError struct {
	Kind    TransitionErrorKind
	From    Status
	To      Status
	Message string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s: %s", e.From, e.To, e.Message)
}

func newTransitionError(kind TransitionErrorKind, from, to Status) *TransitionError {
	var msg string
	switch kind {
	case KindAlreadyTerminal:
		msg = "el pedido ya está cerrado"
	case KindMissingCourier:
		msg = "el pedido no tiene repartidor asignado"
	case KindNoChange:
		msg = "el pedido ya está en ese estado"
	default:
		msg = "el cambio de estado no es válido"
	}
	return &TransitionError{Kind: kind, From: from, To: to, Message: msg}
}

// ValidationError reports malformed order creation input. Always recoverable:
// the caller fixes the field and retries.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

var (
	// ErrNotFound is returned when an order id is unknown.
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyAssigned is returned to the loser of a claim race. The caller
	// must re-fetch the order list, not retry the same claim.
	ErrAlreadyAssigned = errors.New("order already claimed by another courier")
	// ErrStatusConflict is returned by repositories when the persisted status
	// no longer matches the expected one during a compare-and-set.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// Repository defines persistence for orders. UpdateStatus and Claim are
// compare-and-set operations: they must apply the write only when the
// persisted status still equals the expected value, atomically, and return
// ErrStatusConflict otherwise. That single guarantee is what serializes
// concurrent couriers racing for the same order.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	ListByStore(ctx context.Context, storeID string) ([]Order, error)
	ListUnassigned(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) (*Order, error)
	Claim(ctx context.Context, id, courierID, courierName string, at time.Time) (*Order, error)
}
