package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/averix/storefront/internal/domain/coupon"
)

type couponView struct {
	ID        string          `json:"_id"`
	Name      string          `json:"name"`
	Discount  decimal.Decimal `json:"discount"`
	ExpiresAt *time.Time      `json:"expiry,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func couponToView(c coupon.Coupon) couponView {
	return couponView{
		ID:        c.ID,
		Name:      c.Name,
		Discount:  c.Discount,
		ExpiresAt: c.ExpiresAt,
		CreatedAt: c.CreatedAt,
	}
}

type createCouponRequest struct {
	Name     string          `json:"name"`
	Discount decimal.Decimal `json:"discount"`
	Expiry   *time.Time      `json:"expiry"`
}

// CreateCoupon adds a coupon and registers its name with the lookup
// prefilter. Admin only.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || !req.Discount.IsPositive() {
		respondError(w, http.StatusBadRequest, "name and a positive discount are required")
		return
	}

	c := &coupon.Coupon{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Discount:  req.Discount,
		ExpiresAt: req.Expiry,
	}
	if err := h.coupons.Create(r.Context(), c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if h.prefilter != nil {
		h.prefilter.Add(c.Name)
	}
	respondJSON(w, http.StatusCreated, couponToView(*c))
}

// ListCoupons returns every coupon. Admin only.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	views := make([]couponView, len(coupons))
	for i, c := range coupons {
		views[i] = couponToView(c)
	}
	respondJSON(w, http.StatusOK, views)
}

// DeleteCoupon removes a coupon. Admin only. The prefilter keeps the name
// until restart; a stale positive only costs one database lookup.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
