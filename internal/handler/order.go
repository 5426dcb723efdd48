package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/averix/storefront/internal/domain/order"
)

type placeOrderRequest struct {
	CashOrder     bool `json:"cashOrder"`
	CouponApplied bool `json:"couponApplied"`
}

type paymentIntentView struct {
	ID        string          `json:"id"`
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
}

type orderView struct {
	ID        string            `json:"_id"`
	Lines     []cartLineView    `json:"products"`
	Status    string            `json:"orderStatus"`
	Payment   paymentIntentView `json:"paymentIntent"`
	CreatedAt time.Time         `json:"created_at"`
}

func orderToView(o *order.Order) orderView {
	lines := make([]cartLineView, len(o.Lines))
	for i, line := range o.Lines {
		lines[i] = cartLineView{
			ProductID: line.ProductID,
			Count:     line.Count,
			Color:     line.Color,
			Price:     line.Price,
		}
	}
	return orderView{
		ID:     o.ID,
		Lines:  lines,
		Status: string(o.Status),
		Payment: paymentIntentView{
			ID:        o.Payment.ID,
			Method:    o.Payment.Method,
			Amount:    o.Payment.Amount,
			Status:    string(o.Payment.Status),
			Currency:  o.Payment.Currency,
			CreatedAt: o.Payment.CreatedAt,
		},
		CreatedAt: o.CreatedAt,
	}
}

// PlaceCashOrder converts the user's cart into a cash-on-delivery order.
// The response keeps the upstream success message and additionally carries
// the created order's ID.
func (h *Handler) PlaceCashOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	o, err := h.orders.PlaceCashOrder(r.Context(), identity(r).UserID, req.CashOrder, req.CouponApplied)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"message": "Success",
		"orderId": o.ID,
	})
}

type listOrdersResponse struct {
	Orders   []orderView   `json:"orders"`
	Products []productView `json:"productDetails,omitempty"`
}

// ListOrders returns the user's orders with resolved product details.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	res, err := h.orders.List(r.Context(), identity(r).UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	views := make([]orderView, len(res.Orders))
	for i := range res.Orders {
		views[i] = orderToView(&res.Orders[i])
	}
	respondJSON(w, http.StatusOK, listOrdersResponse{
		Orders:   views,
		Products: productsToViews(res.Products),
	})
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus transitions an order to a new status. Admin only.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateOrderStatusRequest
	if err := decodeBody(r, &req); err != nil || req.Status == "" {
		respondError(w, http.StatusBadRequest, "status required")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orderToView(o))
}
