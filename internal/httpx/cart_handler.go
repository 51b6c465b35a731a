package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-shop-orders/internal/cart"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CartHandler struct {
	Carts *cart.Service
	Log   *zap.Logger
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.get)
	r.Post("/cart/items", h.add)
	r.Put("/cart/items/{productId}", h.update)
	r.Delete("/cart/items/{productId}", h.remove)
	r.Delete("/cart", h.clear)

	r.Get("/wishlist", h.wishlist)
	r.Post("/wishlist/items", h.addWish)
	r.Delete("/wishlist/items/{productId}", h.removeWish)
	r.Delete("/wishlist", h.clearWish)
}

type cartItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Carts.Get(r.Context(), principal(r).UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "", c)
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req cartItemReq
	if !decode(w, r, &req) {
		return
	}
	c, err := h.Carts.AddItem(r.Context(), principal(r).UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Item added to cart", c)
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request) {
	var req cartItemReq
	if !decode(w, r, &req) {
		return
	}
	c, err := h.Carts.UpdateItem(r.Context(), principal(r).UserID, chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Cart updated", c)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	c, err := h.Carts.RemoveItem(r.Context(), principal(r).UserID, chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Item removed from cart", c)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Carts.Clear(r.Context(), principal(r).UserID); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Cart cleared", nil)
}

func (h *CartHandler) wishlist(w http.ResponseWriter, r *http.Request) {
	wl, err := h.Carts.Wishlist(r.Context(), principal(r).UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "", wl)
}

func (h *CartHandler) addWish(w http.ResponseWriter, r *http.Request) {
	var req cartItemReq
	if !decode(w, r, &req) {
		return
	}
	wl, err := h.Carts.AddToWishlist(r.Context(), principal(r).UserID, req.ProductID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Product added to wishlist", wl)
}

func (h *CartHandler) removeWish(w http.ResponseWriter, r *http.Request) {
	wl, err := h.Carts.RemoveFromWishlist(r.Context(), principal(r).UserID, chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Product removed from wishlist", wl)
}

func (h *CartHandler) clearWish(w http.ResponseWriter, r *http.Request) {
	if err := h.Carts.ClearWishlist(r.Context(), principal(r).UserID); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Wishlist cleared", nil)
}
