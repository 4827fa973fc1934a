package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/veciapp/marketplace-core/internal/domain/discount"
	"github.com/veciapp/marketplace-core/internal/domain/incident"
	"github.com/veciapp/marketplace-core/internal/domain/order"
	"github.com/veciapp/marketplace-core/internal/domain/store"
)

// writeJSON encodes the object with jx and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, code, message string, extra func(e *jx.Encoder)) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("error")
		e.Str(code)
		e.FieldStart("message")
		e.Str(message)
		if extra != nil {
			extra(e)
		}
		e.ObjEnd()
	})
}

// respondError maps a domain error to an HTTP response. Every branch keeps
// the machine-readable kind and the human wording separate, so the storefront
// renders messages without re-deriving semantics.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *order.ValidationError
		terr *order.TransitionError
		rej  *discount.RejectedError
	)

	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "validation_failed", verr.Message, func(e *jx.Encoder) {
			e.FieldStart("field")
			e.Str(verr.Field)
		})
	case errors.As(err, &terr):
		writeError(w, http.StatusConflict, string(terr.Kind), terr.Message, func(e *jx.Encoder) {
			e.FieldStart("from")
			e.Str(string(terr.From))
			e.FieldStart("to")
			e.Str(string(terr.To))
		})
	case errors.As(err, &rej):
		writeError(w, http.StatusUnprocessableEntity, string(rej.Reason), rej.Message, func(e *jx.Encoder) {
			e.FieldStart("code")
			e.Str(rej.Code)
		})
	case errors.Is(err, order.ErrAlreadyAssigned):
		writeError(w, http.StatusConflict, "already_assigned",
			"otro repartidor ya tomó este pedido", nil)
	case errors.Is(err, incident.ErrOrderClosed):
		writeError(w, http.StatusConflict, "order_closed",
			"el pedido ya está cerrado", nil)
	case errors.Is(err, incident.ErrInvalidReason):
		writeError(w, http.StatusBadRequest, "invalid_reason",
			"el motivo del reporte no es válido", nil)
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order_not_found",
			"el pedido no existe", nil)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "store_not_found",
			"la tienda no existe", nil)
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal",
			"error interno, intenta de nuevo", nil)
	}
}
