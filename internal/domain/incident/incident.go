// Package incident records out-of-band problem reports against orders. The
// log is append-only and never touches the order's status machine.
package incident

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/veciapp/marketplace-core/internal/domain/order"
)

// Reason classifies what went wrong during fulfillment or delivery.
type Reason string

const (
	ReasonCustomerUnreachable Reason = "customer_unreachable"
	ReasonWrongAddress        Reason = "wrong_address"
	ReasonIncompleteOrder     Reason = "incomplete_order"
	ReasonPaymentIssue        Reason = "payment_issue"
	ReasonOther               Reason = "other"
)

// Valid reports whether r is a known reason.
func (r Reason) Valid() bool {
	switch r {
	case ReasonCustomerUnreachable, ReasonWrongAddress, ReasonIncompleteOrder,
		ReasonPaymentIssue, ReasonOther:
		return true
	}
	return false
}

// Incident is one report. OrderStatus is a snapshot of the order's status at
// report time, so the log stays meaningful after the order moves on.
type Incident struct {
	ID          string
	OrderID     string
	OrderStatus order.Status
	Reason      Reason
	Detail      string
	ReportedBy  order.Role
	CreatedAt   time.Time
}

var (
	// ErrInvalidReason is returned for an unknown reason value.
	ErrInvalidReason = errors.New("unknown incident reason")
	// ErrOrderClosed is returned when reporting against a terminal order.
	ErrOrderClosed = errors.New("order is already closed")
)

// Repository is the append-only incident store.
type Repository interface {
	Append(ctx context.Context, inc *Incident) error
	ListByOrder(ctx context.Context, orderID string) ([]Incident, error)
}
