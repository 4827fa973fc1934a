package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/veciapp/marketplace-core/internal/domain/discount"
	"github.com/veciapp/marketplace-core/internal/domain/product"
	"github.com/veciapp/marketplace-core/internal/domain/store"
)

// Role identifies the actor behind a mutation. Roles are audit context, not
// authorization: access control lives in the session layer above this core.
type Role string

const (
	RoleShopkeeper Role = "shopkeeper"
	RoleWarehouse  Role = "warehouse"
	RoleCourier    Role = "courier"
	RoleAdmin      Role = "admin"
)

// Actor is who requested a transition.
type Actor struct {
	Role Role
	ID   string
}

// CouponValidator is the slice of the discount engine the order service needs.
type CouponValidator interface {
	Validate(ctx context.Context, storeID, code string, subtotal decimal.Decimal) (*discount.Applied, error)
	SelectBest(ctx context.Context, storeID string, subtotal decimal.Decimal) (*discount.Applied, error)
}

// Settler records the one-time delivery rewards. Implementations must be
// idempotent: settling the same order twice writes exactly one ledger entry.
type Settler interface {
	Settle(ctx context.Context, o *Order) error
}

// ItemRequest is one requested cart line.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// CreateRequest is the checkout input.
type CreateRequest struct {
	StoreID          string
	Items            []ItemRequest
	Delivery         DeliveryInfo
	PaymentConfirmed bool
	// CouponCode applies an explicit coupon. When empty, the best currently
	// valid store coupon is auto-applied.
	CouponCode string
}

// Pricing is the computed price breakdown for a cart. CouponRejection is set
// when a requested coupon failed validation: pricing still succeeds at full
// price and the storefront shows the reason.
type Pricing struct {
	Items           []LineItem
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	Coupon          *discount.Applied
	CouponRejection *discount.RejectedError
}

// CreateResult is the checkout output.
type CreateResult struct {
	Order           *Order
	CouponRejection *discount.RejectedError
}

// Service coordinates checkout, the status machine, courier claims, and the
// delivery settlement hook.
type Service struct {
	orders  Repository
	catalog product.Repository
	stores  store.Repository
	coupons CouponValidator
	settler Settler
	lg      *zap.Logger
	now     func() time.Time
}

// NewService creates an order Service.
func NewService(
	orders Repository,
	catalog product.Repository,
	stores store.Repository,
	coupons CouponValidator,
	settler Settler,
	lg *zap.Logger,
) *Service {
	return &Service{
		orders:  orders,
		catalog: catalog,
		stores:  stores,
		coupons: coupons,
		settler: settler,
		lg:      lg,
		now:     time.Now,
	}
}

// Price validates and prices a cart without persisting anything. The checkout
// UI calls it on every quantity edit, which is what re-validates the coupon:
// a subtotal that drops below the coupon minimum drops the coupon and reports
// why, instead of force-applying it.
func (s *Service) Price(ctx context.Context, storeID string, items []ItemRequest, couponCode string) (*Pricing, error) {
	st, err := s.stores.Get(ctx, storeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &ValidationError{Field: "storeId", Message: "la tienda no existe"}
		}
		return nil, errors.Wrap(err, "get store")
	}
	if !st.Active {
		return nil, &ValidationError{Field: "storeId", Message: "la tienda no está activa"}
	}

	if len(items) == 0 {
		return nil, &ValidationError{Field: "items", Message: "el carrito está vacío"}
	}

	ids := make([]string, len(items))
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, &ValidationError{
				Field:   "items",
				Message: fmt.Sprintf("la cantidad del producto %s debe ser mayor a cero", item.ProductID),
			}
		}
		ids[i] = item.ProductID
	}

	fetched, err := s.catalog.GetByIDs(ctx, storeID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	lines := make([]LineItem, len(items))
	subtotal := decimal.Zero
	for i, item := range items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, &ValidationError{
				Field:   "items",
				Message: fmt.Sprintf("el producto %s no existe en esta tienda", item.ProductID),
			}
		}
		if !p.Sellable() {
			return nil, &ValidationError{
				Field:   "items",
				Message: fmt.Sprintf("el producto %s no está disponible", p.Name),
			}
		}
		lineSubtotal := p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		lines[i] = LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  item.Quantity,
			Subtotal:  lineSubtotal,
		}
		subtotal = subtotal.Add(lineSubtotal)
	}

	if subtotal.LessThan(st.MinOrder) {
		return nil, &ValidationError{
			Field: "items",
			Message: fmt.Sprintf("el pedido mínimo de la tienda es %s, faltan %s",
				st.MinOrder.StringFixed(0), st.MinOrder.Sub(subtotal).StringFixed(0)),
		}
	}

	pricing := &Pricing{Items: lines, Subtotal: subtotal, Total: subtotal, Discount: decimal.Zero}

	if couponCode != "" {
		applied, err := s.coupons.Validate(ctx, storeID, couponCode, subtotal)
		if err != nil {
			var rej *discount.RejectedError
			if !errors.As(err, &rej) {
				return nil, errors.Wrap(err, "validate coupon")
			}
			pricing.CouponRejection = rej
		} else {
			pricing.Coupon = applied
		}
	} else {
		applied, err := s.coupons.SelectBest(ctx, storeID, subtotal)
		if err != nil {
			return nil, errors.Wrap(err, "select best coupon")
		}
		pricing.Coupon = applied
	}

	if pricing.Coupon != nil {
		pricing.Discount = pricing.Coupon.Amount
		pricing.Total = subtotal.Sub(pricing.Discount)
	}

	return pricing, nil
}

// Create prices the cart, validates the delivery data, and persists a new
// order in the initial status. A rejected coupon does not block creation; the
// order is stored at full price and the rejection reason travels back to the
// storefront.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := validateDelivery(req.Delivery); err != nil {
		return nil, err
	}

	pricing, err := s.Price(ctx, req.StoreID, req.Items, req.CouponCode)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := &Order{
		ID:               uuid.New().String(),
		StoreID:          req.StoreID,
		Status:           StatusCreated,
		Items:            pricing.Items,
		Subtotal:         pricing.Subtotal,
		Discount:         pricing.Discount,
		Total:            pricing.Total,
		Coupon:           pricing.Coupon,
		Delivery:         req.Delivery,
		PaymentConfirmed: req.PaymentConfirmed,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return &CreateResult{Order: o, CouponRejection: pricing.CouponRejection}, nil
}

func validateDelivery(d DeliveryInfo) error {
	switch {
	case d.ContactName == "":
		return &ValidationError{Field: "delivery.contactName", Message: "el nombre de contacto es obligatorio"}
	case d.Phone == "":
		return &ValidationError{Field: "delivery.phone", Message: "el teléfono es obligatorio"}
	case d.Address == "":
		return &ValidationError{Field: "delivery.address", Message: "la dirección es obligatoria"}
	}
	return nil
}

// Get loads a single order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}

// ListByStore returns a store's orders, newest first.
func (s *Service) ListByStore(ctx context.Context, storeID string) ([]Order, error) {
	return s.orders.ListByStore(ctx, storeID)
}

// ListUnassigned returns confirmed orders with no courier, the list couriers
// browse before claiming.
func (s *Service) ListUnassigned(ctx context.Context) ([]Order, error) {
	return s.orders.ListUnassigned(ctx)
}

// Transition moves an order to the target status. The move is validated
// against the persisted state at apply time, not against whatever the caller
// last saw: the repository write is a compare-and-set on the current status,
// and a conflict re-reads and reports against the fresh state.
//
// Reaching delivered triggers settlement. A settlement failure is logged and
// retried out of band; it never rolls back the status change, which is the
// durable fact.
func (s *Service) Transition(ctx context.Context, id string, target Status, actor Actor) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if terr := CheckTransition(o.Status, target, o.CourierID != ""); terr != nil {
		return nil, terr
	}

	updated, err := s.orders.UpdateStatus(ctx, id, o.Status, target, s.now())
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, s.conflictError(ctx, id, target)
		}
		return nil, errors.Wrap(err, "update status")
	}

	s.lg.Info("order transitioned",
		zap.String("order_id", id),
		zap.String("from", string(o.Status)),
		zap.String("to", string(target)),
		zap.String("actor_role", string(actor.Role)),
		zap.String("actor_id", actor.ID),
	)

	if target == StatusDelivered {
		if err := s.settler.Settle(ctx, updated); err != nil {
			s.lg.Error("delivery settlement failed, will retry out of band",
				zap.String("order_id", id), zap.Error(err))
		}
	}

	return updated, nil
}

// Claim binds a courier to a confirmed order and moves it to assigned in one
// atomic write. Two couriers racing for the same order resolve at the
// database: exactly one compare-and-set wins, the loser gets
// ErrAlreadyAssigned and must re-fetch the unassigned list.
func (s *Service) Claim(ctx context.Context, id, courierID, courierName string) (*Order, error) {
	if courierID == "" {
		return nil, &ValidationError{Field: "courierId", Message: "el repartidor es obligatorio"}
	}
	if courierName == "" {
		return nil, &ValidationError{Field: "courierName", Message: "el nombre del repartidor es obligatorio"}
	}

	updated, err := s.orders.Claim(ctx, id, courierID, courierName, s.now())
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, s.claimConflictError(ctx, id)
		}
		return nil, err
	}

	s.lg.Info("order claimed",
		zap.String("order_id", id),
		zap.String("courier_id", courierID),
	)
	return updated, nil
}

// conflictError re-reads the order after a lost compare-and-set and reports
// the transition failure against the fresh persisted state.
func (s *Service) conflictError(ctx context.Context, id string, target Status) error {
	fresh, err := s.orders.Get(ctx, id)
	if err != nil {
		return errors.Wrap(err, "reload after conflict")
	}
	if terr := CheckTransition(fresh.Status, target, fresh.CourierID != ""); terr != nil {
		return terr
	}
	// The move is legal against the fresh state; the caller simply lost a
	// race with an identical writer.
	return newTransitionError(KindNoChange, fresh.Status, target)
}

func (s *Service) claimConflictError(ctx context.Context, id string) error {
	fresh, err := s.orders.Get(ctx, id)
	if err != nil {
		return errors.Wrap(err, "reload after conflict")
	}
	switch {
	case fresh.Status.Terminal():
		return newTransitionError(KindAlreadyTerminal, fresh.Status, StatusAssigned)
	case fresh.CourierID != "":
		return ErrAlreadyAssigned
	default:
		return newTransitionError(KindInvalidTransition, fresh.Status, StatusAssigned)
	}
}
