package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-shop-orders/internal/users"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UsersHandler struct {
	Users users.Store
	Log   *zap.Logger
}

func (h *UsersHandler) Register(r chi.Router) {
	r.Get("/users/profile", h.profile)
	r.Put("/users/profile", h.updateProfile)
}

func (h *UsersHandler) profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.Users.Get(r.Context(), principal(r).UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "", p)
}

func (h *UsersHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string         `json:"first_name"`
		LastName  string         `json:"last_name"`
		Phone     string         `json:"phone"`
		Address   *users.Address `json:"address"`
	}
	if !decode(w, r, &req) {
		return
	}
	p, err := users.UpdateProfile(r.Context(), h.Users, principal(r), users.Update{
		FirstName: req.FirstName, LastName: req.LastName, Phone: req.Phone, Address: req.Address,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "Profile updated successfully", p)
}
