package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/veciapp/marketplace-core/internal/domain/discount"
	"github.com/veciapp/marketplace-core/internal/domain/product"
	"github.com/veciapp/marketplace-core/internal/domain/recommend"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListActive(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range products {
			encodeProduct(e, &products[i])
		}
		e.ArrEnd()
	})
}

func (h *Handler) listPromotions(w http.ResponseWriter, r *http.Request) {
	promos, err := h.coupons.Promotions(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	now := time.Now()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range promos {
			encodePromotion(e, &promos[i], now)
		}
		e.ArrEnd()
	})
}

func (h *Handler) getRecommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	cart := recommend.CartSnapshot{}
	if raw := q.Get("subtotal"); raw != "" {
		subtotal, err := decimal.NewFromString(raw)
		if err != nil || subtotal.IsNegative() {
			writeError(w, http.StatusBadRequest, "bad_request", "subtotal inválido", nil)
			return
		}
		cart.Subtotal = subtotal
	}
	cart.ProductIDs = q["productId"]

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit inválido", nil)
			return
		}
		limit = n
	}

	products, err := h.recommends.Recommend(r.Context(), chi.URLParam(r, "storeID"), cart, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range products {
			encodeProduct(e, &products[i])
		}
		e.ArrEnd()
	})
}

type validateCouponRequest struct {
	Code     string  `json:"code"`
	Subtotal float64 `json:"subtotal"`
}

func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "cuerpo JSON inválido", nil)
		return
	}
	if req.Subtotal < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "subtotal inválido", nil)
		return
	}

	applied, err := h.coupons.Validate(r.Context(), chi.URLParam(r, "storeID"),
		req.Code, decimal.NewFromFloat(req.Subtotal))
	if err != nil {
		var rej *discount.RejectedError
		if errors.As(err, &rej) {
			// Rejection is the endpoint's answer, not a failure.
			writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
				e.ObjStart()
				e.FieldStart("valid")
				e.Bool(false)
				e.FieldStart("rejection")
				encodeRejection(e, rej)
				e.ObjEnd()
			})
			return
		}
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("valid")
		e.Bool(true)
		e.FieldStart("coupon")
		e.ObjStart()
		e.FieldStart("code")
		e.Str(applied.Code)
		e.FieldStart("discount")
		e.Float64(applied.Amount.InexactFloat64())
		e.FieldStart("description")
		e.Str(applied.Description)
		e.ObjEnd()
		e.ObjEnd()
	})
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	e.Float64(p.Price.InexactFloat64())
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.ObjEnd()
}

func encodePromotion(e *jx.Encoder, p *discount.Promotion, now time.Time) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("type")
	e.Str(string(p.Rule.Type))
	e.FieldStart("value")
	e.Float64(p.Rule.Value.InexactFloat64())
	if p.Category != "" {
		e.FieldStart("category")
		e.Str(p.Category)
	}
	if len(p.ProductIDs) > 0 {
		e.FieldStart("productIds")
		e.ArrStart()
		for _, id := range p.ProductIDs {
			e.Str(id)
		}
		e.ArrEnd()
	}
	e.FieldStart("startsAt")
	e.Str(p.StartsAt.Format(time.RFC3339))
	e.FieldStart("endsAt")
	e.Str(p.EndsAt.Format(time.RFC3339))
	e.FieldStart("status")
	e.Str(string(p.Status(now)))
	e.ObjEnd()
}
