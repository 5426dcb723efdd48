package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/averix/storefront/internal/domain/cart"
)

type submitCartRequest struct {
	Cart []submitCartLine `json:"cart"`
}

type submitCartLine struct {
	ProductID string `json:"_id"`
	Count     int    `json:"count"`
	Color     string `json:"color"`
}

type cartLineView struct {
	ProductID string          `json:"product"`
	Count     int             `json:"count"`
	Color     string          `json:"color"`
	Price     decimal.Decimal `json:"price"`
}

type cartView struct {
	ID              string           `json:"_id"`
	Lines           []cartLineView   `json:"products"`
	CartTotal       decimal.Decimal  `json:"cartTotal"`
	DiscountedTotal *decimal.Decimal `json:"totalAfterDiscount,omitempty"`
	Products        []productView    `json:"productDetails,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func cartToView(c *cart.Cart) cartView {
	lines := make([]cartLineView, len(c.Lines))
	for i, line := range c.Lines {
		lines[i] = cartLineView{
			ProductID: line.ProductID,
			Count:     line.Count,
			Color:     line.Color,
			Price:     line.Price,
		}
	}
	return cartView{
		ID:              c.ID,
		Lines:           lines,
		CartTotal:       c.CartTotal,
		DiscountedTotal: c.DiscountedTotal,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// SubmitCart replaces the authenticated user's cart with the submitted
// selections, priced from the current catalog.
func (h *Handler) SubmitCart(w http.ResponseWriter, r *http.Request) {
	var req submitCartRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sels := make([]cart.Selection, len(req.Cart))
	for i, line := range req.Cart {
		sels[i] = cart.Selection{
			ProductID: line.ProductID,
			Count:     line.Count,
			Color:     line.Color,
		}
	}

	c, err := h.carts.Replace(r.Context(), identity(r).UserID, sels)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, cartToView(c))
}

// GetCart returns the user's cart with resolved product details.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.carts.Get(r.Context(), identity(r).UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	view := cartToView(resolved.Cart)
	view.Products = productsToViews(resolved.Products)
	respondJSON(w, http.StatusOK, view)
}

// EmptyCart deletes the user's cart, returning the deleted cart or null.
func (h *Handler) EmptyCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Empty(r.Context(), identity(r).UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if c == nil {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	respondJSON(w, http.StatusOK, cartToView(c))
}

type applyCouponRequest struct {
	Coupon string `json:"coupon"`
}

// ApplyCoupon applies a named coupon to the user's cart and returns the
// discounted total formatted with two decimal places.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := decodeBody(r, &req); err != nil || req.Coupon == "" {
		respondError(w, http.StatusBadRequest, "coupon required")
		return
	}

	discounted, err := h.evaluator.Apply(r.Context(), identity(r).UserID, req.Coupon)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"totalAfterDiscount": discounted.StringFixed(2)})
}
