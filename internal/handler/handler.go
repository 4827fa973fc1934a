// Package handler adapts the domain services to HTTP. It owns no business
// rules: it decodes requests, delegates, and maps domain errors to status
// codes the storefront understands.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veciapp/marketplace-core/internal/domain/discount"
	"github.com/veciapp/marketplace-core/internal/domain/incident"
	"github.com/veciapp/marketplace-core/internal/domain/order"
	"github.com/veciapp/marketplace-core/internal/domain/product"
	"github.com/veciapp/marketplace-core/internal/domain/recommend"
)

// Handler wires the domain services to chi routes.
type Handler struct {
	orders     *order.Service
	incidents  *incident.Service
	recommends *recommend.Service
	coupons    *discount.Validator
	catalog    product.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	orders *order.Service,
	incidents *incident.Service,
	recommends *recommend.Service,
	coupons *discount.Validator,
	catalog product.Repository,
) *Handler {
	return &Handler{
		orders:     orders,
		incidents:  incidents,
		recommends: recommends,
		coupons:    coupons,
		catalog:    catalog,
	}
}

// Routes returns the API router. Static segments are registered before
// parameterized ones so /orders/unassigned is not captured as an order id.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/unassigned", h.listUnassigned)
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", h.getOrder)
			r.Post("/transition", h.transitionOrder)
			r.Post("/claim", h.claimOrder)
			r.Post("/incidents", h.reportIncident)
			r.Get("/incidents", h.listIncidents)
		})
	})

	r.Route("/stores/{storeID}", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Get("/promotions", h.listPromotions)
		r.Get("/recommendations", h.getRecommendations)
		r.Get("/orders", h.listStoreOrders)
		r.Post("/coupons/validate", h.validateCoupon)
	})

	return r
}
