package httpx

import (
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductsHandler struct {
	Catalog *catalog.Service
	Log     *zap.Logger
}

// RegisterPublic mounts the read-only catalog routes.
func (h *ProductsHandler) RegisterPublic(r chi.Router) {
	r.Get("/products", h.list)
	r.Get("/products/{id}", h.get)
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Post("/products/{id}/ratings", h.rate)
	r.Group(func(r chi.Router) {
		r.Use(RequireRole(auth.RoleVendor, auth.RoleAdmin))
		r.Post("/products", h.create)
		r.Put("/products/{id}", h.update)
		r.Delete("/products/{id}", h.remove)
		r.Post("/products/{id}/restock", h.restock)
		r.Get("/vendor/products", h.vendorProducts)
	})
}

func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	f := catalog.Filter{
		Sort:     q.Get("sort"),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	for key, dst := range map[string]**decimal.Decimal{"minPrice": &f.MinPrice, "maxPrice": &f.MaxPrice} {
		if v := q.Get(key); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return f, err
			}
			*dst = &d
		}
	}
	return f, nil
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		fail(w, http.StatusBadRequest, "invalid price filter", nil)
		return
	}
	page, err := h.Catalog.List(r.Context(), f)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "", page)
}

func (h *ProductsHandler) vendorProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		fail(w, http.StatusBadRequest, "invalid price filter", nil)
		return
	}
	f.VendorID = principal(r).UserID
	f.IncludeInactive = true
	page, err := h.Catalog.List(r.Context(), f)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "", page)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "", p)
}

type productReq struct {
	SKU         string   `json:"sku"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       string   `json:"price"`
	Images      []string `json:"images"`
	Tags        []string `json:"tags"`
	Stock       int      `json:"stock"`
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if !decode(w, r, &req) {
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		fail(w, http.StatusBadRequest, "price must be a decimal string", nil)
		return
	}
	p, err := h.Catalog.Create(r.Context(), principal(r), catalog.Product{
		SKU: req.SKU, Name: req.Name, Description: req.Description, Category: req.Category,
		Price: price, Images: req.Images, Tags: req.Tags, Stock: req.Stock,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusCreated, "Product created successfully", p)
}

type productChangesReq struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Price       *string  `json:"price"`
	Images      []string `json:"images"`
	Tags        []string `json:"tags"`
	IsActive    *bool    `json:"is_active"`
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req productChangesReq
	if !decode(w, r, &req) {
		return
	}
	c := catalog.Changes{
		Name: req.Name, Description: req.Description, Category: req.Category,
		Images: req.Images, Tags: req.Tags, IsActive: req.IsActive,
	}
	if req.Price != nil {
		d, err := decimal.NewFromString(*req.Price)
		if err != nil {
			fail(w, http.StatusBadRequest, "price must be a decimal string", nil)
			return
		}
		c.Price = &d
	}
	p, err := h.Catalog.Update(r.Context(), principal(r), chi.URLParam(r, "id"), c)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Product updated successfully", p)
}

func (h *ProductsHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Delete(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Product deleted successfully", nil)
}

func (h *ProductsHandler) restock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decode(w, r, &req) {
		return
	}
	p, err := h.Catalog.Restock(r.Context(), principal(r), chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Stock updated successfully", p)
}

func (h *ProductsHandler) rate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rating int    `json:"rating"`
		Review string `json:"review"`
	}
	if !decode(w, r, &req) {
		return
	}
	p, err := h.Catalog.Rate(r.Context(), principal(r), chi.URLParam(r, "id"), req.Rating, req.Review)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Rating added successfully", p)
}
