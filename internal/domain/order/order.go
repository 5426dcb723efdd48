package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/averix/storefront/internal/domain/cart"
)

// Status enumerates the order lifecycle states. Stored as plain text; any
// transition must go through ParseStatus so unknown values are rejected.
type Status string

const (
	StatusProcessing     Status = "Processing"
	StatusShipped        Status = "Shipped"
	StatusDelivered      Status = "Delivered"
	StatusCashOnDelivery Status = "Cash on Delivery"
	StatusCancelled      Status = "Cancelled"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// InvalidStatusError indicates a status string outside the known set.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return "unknown order status " + e.Status
}

// ParseStatus validates a client-supplied status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusProcessing, StatusShipped, StatusDelivered, StatusCashOnDelivery, StatusCancelled:
		return Status(s), nil
	default:
		return "", &InvalidStatusError{Status: s}
	}
}

// PaymentIntent is the payment record embedded in an order. Amount is fixed
// at creation; only Status changes afterwards, in lockstep with the order.
type PaymentIntent struct {
	ID        string          `json:"id"`
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Status    Status          `json:"status"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
}

// Order is an immutable snapshot of a cart taken at checkout.
type Order struct {
	ID        string
	UserID    string
	Lines     []cart.Line
	Status    Status
	Payment   PaymentIntent
	CreatedAt time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// UpdateStatus sets both the order status and the embedded payment
	// status, returning the updated order or ErrNotFound.
	UpdateStatus(ctx context.Context, id string, status Status) (*Order, error)
}
