package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/go-shop-orders/internal/cart"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/ariefcatur/go-shop-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type OrdersHandler struct {
	Orders *orders.Service
	Carts  *cart.Service
	Idem   *redisx.Idempotency // optional
	Status *redisx.StatusCache // optional
	Log    *zap.Logger
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Post("/orders/checkout", h.checkout)
	r.Get("/orders/my-orders", h.myOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Put("/orders/{id}/status", h.updateStatus)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Get("/vendor/orders", h.vendorOrders)
}

type placeOrderReq struct {
	Items           []orders.ItemInput `json:"items"`
	ShippingAddress orders.Address     `json:"shipping_address"`
	PaymentMethod   string             `json:"payment_method"`
	CouponCode      string             `json:"coupon_code"`
	Notes           string             `json:"notes"`
}

type placeOrderResp struct {
	Order        *orders.Order `json:"order"`
	ClientSecret string        `json:"client_secret,omitempty"`
	Idempotent   bool          `json:"idempotent"`
}

func (h *OrdersHandler) requestCtx(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	ctx := orders.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
	return context.WithTimeout(ctx, d)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if !decode(w, r, &req) {
		return
	}
	h.place(w, r, req.Items, req)
}

// checkout orders whatever is in the caller's cart, then empties it.
func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if !decode(w, r, &req) {
		return
	}
	p := principal(r)
	c, err := h.Carts.Get(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	items := make([]orders.ItemInput, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, orders.ItemInput{ProductID: it.ProductID, Qty: it.Quantity})
	}
	if h.place(w, r, items, req) {
		if err := h.Carts.Clear(context.WithoutCancel(r.Context()), p.UserID); err != nil {
			h.Log.Warn("clear cart after checkout", zap.String("user_id", p.UserID), zap.Error(err))
		}
	}
}

// place runs the order workflow and writes the response. It reports whether
// a new order was created.
func (h *OrdersHandler) place(w http.ResponseWriter, r *http.Request, items []orders.ItemInput, req placeOrderReq) bool {
	p := principal(r)
	method, valid := orders.ParsePaymentMethod(req.PaymentMethod)
	if !valid {
		fail(w, http.StatusBadRequest, "unsupported payment method", nil)
		return false
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	ctx, cancel := h.requestCtx(r, 10*time.Second)
	defer cancel()

	if key != "" && h.Idem != nil {
		if id, hit, err := h.Idem.Lookup(ctx, p.UserID, key); err == nil && hit {
			if o, err := h.Orders.Get(ctx, p, id); err == nil {
				ok(w, http.StatusOK, "Order already exists", placeOrderResp{Order: o, Idempotent: true})
				return false
			}
		} else if err != nil {
			h.Log.Warn("idempotency lookup", zap.Error(err))
		}
	}

	placed, err := h.Orders.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:          p.UserID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   method,
		CouponCode:      req.CouponCode,
		ExternalID:      key,
		Notes:           req.Notes,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return false
	}
	if key != "" && h.Idem != nil {
		if err := h.Idem.Remember(ctx, p.UserID, key, placed.Order.ID); err != nil {
			h.Log.Warn("remember idempotency key", zap.Error(err))
		}
	}

	resp := placeOrderResp{Order: placed.Order, ClientSecret: placed.ClientSecret, Idempotent: placed.Existing}
	if placed.Existing {
		ok(w, http.StatusOK, "Order already exists", resp)
		return false
	}
	h.cacheStatus(ctx, placed.Order)
	ok(w, http.StatusCreated, "Order created successfully", resp)
	return true
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListMine(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "", list)
}

func (h *OrdersHandler) vendorOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListForVendor(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "", list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "", o)
}

// getStatus answers from the status cache when it can, else from the store.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p := principal(r)
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Status != nil {
		st, hit, err := h.Status.Get(ctx, id)
		if err != nil {
			h.Log.Warn("read status cache", zap.String("order_id", id), zap.Error(err))
		}
		if hit && st.UserID != "" {
			if !p.Owns(st.UserID) {
				fail(w, http.StatusForbidden, "not authorized to view this order", nil)
				return
			}
			ok(w, http.StatusOK, "", st)
			return
		}
	}

	o, err := h.Orders.Get(ctx, p, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.cacheStatus(ctx, o)
	ok(w, http.StatusOK, "", statusView(o))
}

type updateStatusReq struct {
	Status         string     `json:"status"`
	TrackingNumber *string    `json:"tracking_number"`
	EstimatedAt    *time.Time `json:"estimated_delivery_date"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusReq
	if !decode(w, r, &req) {
		return
	}
	to, valid := orders.ParseStatus(req.Status)
	if !valid {
		fail(w, http.StatusBadRequest, "invalid order status", nil)
		return
	}
	ctx, cancel := h.requestCtx(r, 10*time.Second)
	defer cancel()

	o, err := h.Orders.UpdateStatus(ctx, principal(r), chi.URLParam(r, "id"), to,
		orders.StatusOptions{TrackingNumber: req.TrackingNumber, EstimatedAt: req.EstimatedAt})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.cacheStatus(ctx, o)
	ok(w, http.StatusOK, "Order status updated successfully", o)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestCtx(r, 10*time.Second)
	defer cancel()

	o, err := h.Orders.Cancel(ctx, principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.cacheStatus(ctx, o)
	ok(w, http.StatusOK, "Order cancelled successfully", o)
}

func statusView(o *orders.Order) redisx.OrderStatus {
	return redisx.OrderStatus{
		UserID:        o.UserID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		UpdatedAt:     o.UpdatedAt,
	}
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, o *orders.Order) {
	if h.Status == nil {
		return
	}
	if err := h.Status.Set(ctx, o.ID, statusView(o)); err != nil {
		h.Log.Warn("write status cache", zap.String("order_id", o.ID), zap.Error(err))
	}
}
