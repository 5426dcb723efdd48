package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/averix/storefront/internal/domain/user"
)

// userView is the client-facing shape of an account. Credential fields are
// never serialized.
type userView struct {
	ID        string    `json:"_id"`
	FirstName string    `json:"firstname"`
	LastName  string    `json:"lastname"`
	Email     string    `json:"email"`
	Mobile    string    `json:"mobile"`
	Role      string    `json:"role"`
	Blocked   bool      `json:"blocked"`
	Address   string    `json:"address"`
	Wishlist  []string  `json:"wishlist"`
	CreatedAt time.Time `json:"created_at"`
}

// ListUsers returns every account. Admin only.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	views := make([]userView, len(users))
	for i := range users {
		views[i] = userToView(&users[i])
	}
	respondJSON(w, http.StatusOK, views)
}

// GetUser returns a single account by ID. Admin only.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, userToView(u))
}

type updateProfileRequest struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
}

// UpdateProfile updates the authenticated user's editable fields.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), identity(r).UserID, user.Profile{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Mobile:    req.Mobile,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, userToView(u))
}

type saveAddressRequest struct {
	Address string `json:"address"`
}

// SaveAddress stores the authenticated user's shipping address.
func (h *Handler) SaveAddress(w http.ResponseWriter, r *http.Request) {
	var req saveAddressRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, err := h.users.SetAddress(r.Context(), identity(r).UserID, req.Address)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, userToView(u))
}

// GetWishlist returns the caller's wishlist with product refs resolved.
// Dangling refs to since-deleted products are skipped.
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), identity(r).UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	views := []productView{}
	if len(u.Wishlist) > 0 {
		products, err := h.products.GetByIDs(r.Context(), u.Wishlist)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		for _, p := range products {
			views = append(views, productToView(p))
		}
	}
	respondJSON(w, http.StatusOK, views)
}

// ToggleWishlist adds the product to the caller's wishlist, or removes it
// when already listed.
func (h *Handler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	if _, err := h.products.GetByID(r.Context(), productID); err != nil {
		respondDomainError(w, r, err)
		return
	}

	u, err := h.users.ToggleWishlist(r.Context(), identity(r).UserID, productID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, userToView(u))
}

// DeleteUser removes an account. Admin only.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BlockUser marks an account as blocked. Admin only.
func (h *Handler) BlockUser(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true, "User Blocked")
}

// UnblockUser lifts an account block. Admin only.
func (h *Handler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false, "User Unblocked")
}

func (h *Handler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool, message string) {
	if err := h.users.SetBlocked(r.Context(), chi.URLParam(r, "id"), blocked); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": message})
}
