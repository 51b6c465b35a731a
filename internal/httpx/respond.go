package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-shop-orders/internal/cart"
	"github.com/ariefcatur/go-shop-orders/internal/catalog"
	"github.com/ariefcatur/go-shop-orders/internal/inventory"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/ariefcatur/go-shop-orders/internal/payment"
	"github.com/ariefcatur/go-shop-orders/internal/users"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, code int, msg string, data any) {
	writeJSON(w, code, envelope{Success: true, Message: msg, Data: data})
}

func fail(w http.ResponseWriter, code int, msg string, details any) {
	writeJSON(w, code, envelope{Success: false, Message: msg, Errors: details})
}

type stockDetail struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// statusOf maps domain errors onto HTTP codes. Server-side failures get a
// generic message; the cause only goes to the log.
func statusOf(err error) (int, string, any) {
	var se *inventory.StockError
	switch {
	case errors.As(err, &se):
		return http.StatusBadRequest, err.Error(), stockDetail{se.ProductID, se.Requested, se.Available}
	case errors.Is(err, orders.ErrValidation), errors.Is(err, catalog.ErrValidation),
		errors.Is(err, cart.ErrValidation), errors.Is(err, users.ErrValidation),
		errors.Is(err, orders.ErrInvalidTransition):
		return http.StatusBadRequest, err.Error(), nil
	case errors.Is(err, catalog.ErrDuplicateSKU):
		return http.StatusConflict, err.Error(), nil
	case errors.Is(err, inventory.ErrProductNotFound), errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, cart.ErrItemNotFound), errors.Is(err, users.ErrNotFound):
		return http.StatusNotFound, err.Error(), nil
	case errors.Is(err, orders.ErrForbidden), errors.Is(err, catalog.ErrForbidden):
		return http.StatusForbidden, err.Error(), nil
	case errors.Is(err, payment.ErrGateway):
		return http.StatusBadGateway, "payment gateway unavailable", nil
	}
	return http.StatusInternalServerError, "internal server error", nil
}

func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	code, msg, details := statusOf(err)
	if code >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path), zap.Error(err))
	}
	fail(w, code, msg, details)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		fail(w, http.StatusBadRequest, "invalid json", nil)
		return false
	}
	return true
}
