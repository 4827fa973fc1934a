package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/veciapp/marketplace-core/internal/domain/discount"
	"github.com/veciapp/marketplace-core/internal/domain/incident"
	"github.com/veciapp/marketplace-core/internal/domain/order"
)

type createOrderRequest struct {
	StoreID string `json:"storeId"`
	Items   []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	Delivery struct {
		ContactName string `json:"contactName"`
		Phone       string `json:"phone"`
		Address     string `json:"address"`
		Notes       string `json:"notes"`
	} `json:"delivery"`
	PaymentConfirmed bool   `json:"paymentConfirmed"`
	CouponCode       string `json:"couponCode"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "cuerpo JSON inválido", nil)
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	res, err := h.orders.Create(r.Context(), order.CreateRequest{
		StoreID: req.StoreID,
		Items:   items,
		Delivery: order.DeliveryInfo{
			ContactName: req.Delivery.ContactName,
			Phone:       req.Delivery.Phone,
			Address:     req.Delivery.Address,
			Notes:       req.Delivery.Notes,
		},
		PaymentConfirmed: req.PaymentConfirmed,
		CouponCode:       req.CouponCode,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("order")
		encodeOrder(e, res.Order, "")
		if res.CouponRejection != nil {
			e.FieldStart("couponRejection")
			encodeRejection(e, res.CouponRejection)
		}
		e.ObjEnd()
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	audience := order.Audience(r.URL.Query().Get("audience"))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o, audience)
	})
}

func (h *Handler) listStoreOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByStore(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeOrderList(w, orders, order.AudienceShopkeeper)
}

func (h *Handler) listUnassigned(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListUnassigned(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeOrderList(w, orders, order.AudienceCourier)
}

type transitionRequest struct {
	Target    string `json:"target"`
	ActorRole string `json:"actorRole"`
	ActorID   string `json:"actorId"`
}

func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "cuerpo JSON inválido", nil)
		return
	}

	o, err := h.orders.Transition(r.Context(), chi.URLParam(r, "orderID"),
		order.Status(req.Target), order.Actor{Role: order.Role(req.ActorRole), ID: req.ActorID})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o, order.Audience(req.ActorRole))
	})
}

type claimRequest struct {
	CourierID   string `json:"courierId"`
	CourierName string `json:"courierName"`
}

func (h *Handler) claimOrder(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "cuerpo JSON inválido", nil)
		return
	}

	o, err := h.orders.Claim(r.Context(), chi.URLParam(r, "orderID"), req.CourierID, req.CourierName)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o, order.AudienceCourier)
	})
}

type incidentRequest struct {
	Reason     string `json:"reason"`
	Detail     string `json:"detail"`
	ReportedBy string `json:"reportedBy"`
}

func (h *Handler) reportIncident(w http.ResponseWriter, r *http.Request) {
	var req incidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "cuerpo JSON inválido", nil)
		return
	}

	inc, err := h.incidents.Report(r.Context(), chi.URLParam(r, "orderID"),
		incident.Reason(req.Reason), req.Detail, order.Role(req.ReportedBy))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeIncident(e, inc)
	})
}

func (h *Handler) listIncidents(w http.ResponseWriter, r *http.Request) {
	log, err := h.incidents.ListByOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range log {
			encodeIncident(e, &log[i])
		}
		e.ArrEnd()
	})
}

func writeOrderList(w http.ResponseWriter, orders []order.Order, audience order.Audience) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range orders {
			encodeOrder(e, &orders[i], audience)
		}
		e.ArrEnd()
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order, audience order.Audience) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("storeId")
	e.Str(o.StoreID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	if audience != "" {
		e.FieldStart("statusLabel")
		e.Str(order.Label(audience, o.Status))
	}

	e.FieldStart("items")
	e.ArrStart()
	for _, item := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(item.ProductID)
		e.FieldStart("name")
		e.Str(item.Name)
		e.FieldStart("unitPrice")
		e.Float64(item.UnitPrice.InexactFloat64())
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.FieldStart("subtotal")
		e.Float64(item.Subtotal.InexactFloat64())
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("subtotal")
	e.Float64(o.Subtotal.InexactFloat64())
	e.FieldStart("discount")
	e.Float64(o.Discount.InexactFloat64())
	e.FieldStart("total")
	e.Float64(o.Total.InexactFloat64())

	if o.Coupon != nil {
		e.FieldStart("coupon")
		e.ObjStart()
		e.FieldStart("code")
		e.Str(o.Coupon.Code)
		e.FieldStart("discount")
		e.Float64(o.Coupon.Amount.InexactFloat64())
		e.FieldStart("description")
		e.Str(o.Coupon.Description)
		e.ObjEnd()
	}

	e.FieldStart("delivery")
	e.ObjStart()
	e.FieldStart("contactName")
	e.Str(o.Delivery.ContactName)
	e.FieldStart("phone")
	e.Str(o.Delivery.Phone)
	e.FieldStart("address")
	e.Str(o.Delivery.Address)
	if o.Delivery.Notes != "" {
		e.FieldStart("notes")
		e.Str(o.Delivery.Notes)
	}
	e.ObjEnd()

	if o.CourierID != "" {
		e.FieldStart("courierId")
		e.Str(o.CourierID)
		e.FieldStart("courierName")
		e.Str(o.CourierName)
	}

	e.FieldStart("paymentConfirmed")
	e.Bool(o.PaymentConfirmed)
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.Format(time.RFC3339))
	e.FieldStart("updatedAt")
	e.Str(o.UpdatedAt.Format(time.RFC3339))
	e.ObjEnd()
}

func encodeIncident(e *jx.Encoder, inc *incident.Incident) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(inc.ID)
	e.FieldStart("orderId")
	e.Str(inc.OrderID)
	e.FieldStart("orderStatus")
	e.Str(string(inc.OrderStatus))
	e.FieldStart("reason")
	e.Str(string(inc.Reason))
	if inc.Detail != "" {
		e.FieldStart("detail")
		e.Str(inc.Detail)
	}
	e.FieldStart("reportedBy")
	e.Str(string(inc.ReportedBy))
	e.FieldStart("createdAt")
	e.Str(inc.CreatedAt.Format(time.RFC3339))
	e.ObjEnd()
}

func encodeRejection(e *jx.Encoder, rej *discount.RejectedError) {
	e.ObjStart()
	e.FieldStart("code")
	e.Str(rej.Code)
	e.FieldStart("reason")
	e.Str(string(rej.Reason))
	e.FieldStart("message")
	e.Str(rej.Message)
	e.ObjEnd()
}
