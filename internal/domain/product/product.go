package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// NotFoundError indicates a specific requested product does not exist.
type NotFoundError struct {
	ProductID string
}

func (e *NotFoundError) Error() string {
	return "product " + e.ProductID + " not found"
}

// Product is a catalog item. Quantity is the stock available for sale and
// Sold the cumulative number of units ordered; both are mutated only through
// Repository.AdjustStock.
type Product struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Brand       string
	Category    string
	Color       string
	Price       decimal.Decimal
	Quantity    int
	Sold        int
	CreatedAt   time.Time
}

// StockAdjustment describes the stock delta for one product: quantity is
// decremented and sold incremented by Count.
type StockAdjustment struct {
	ProductID string
	Count     int
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	// AdjustStock applies all adjustments as one batched write. Decrements
	// are relative, not compare-and-set: quantity may go negative.
	AdjustStock(ctx context.Context, adjustments []StockAdjustment) error
}
