package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when the user has no live cart.
	ErrNotFound = errors.New("cart not found")
	// ErrCacheMiss is returned by Cache implementations when no entry exists.
	ErrCacheMiss = errors.New("cart not in cache")
)

// Line is one priced selection in a cart. Price is the unit price captured
// at assembly time; it does not track later catalog price changes.
type Line struct {
	ProductID string          `json:"product_id"`
	Count     int             `json:"count"`
	Color     string          `json:"color"`
	Price     decimal.Decimal `json:"price"`
}

// Cart is a user's replaceable selection of priced lines. CartTotal is
// always Σ line.Price × line.Count, recomputed on every rebuild.
// DiscountedTotal is set only after a coupon has been applied.
type Cart struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	Lines           []Line           `json:"lines"`
	CartTotal       decimal.Decimal  `json:"cart_total"`
	DiscountedTotal *decimal.Decimal `json:"discounted_total,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Repository defines persistence operations for carts.
type Repository interface {
	// Replace atomically deletes any existing cart for c.UserID and inserts c.
	Replace(ctx context.Context, c *Cart) error
	GetByUser(ctx context.Context, userID string) (*Cart, error)
	// DeleteByUser removes the user's cart and returns it, or ErrNotFound.
	DeleteByUser(ctx context.Context, userID string) (*Cart, error)
	// SetDiscountedTotal persists the coupon-discounted total onto the cart.
	SetDiscountedTotal(ctx context.Context, userID string, total decimal.Decimal) error
}

// Cache is a read-through cache in front of Repository.GetByUser.
type Cache interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Set(ctx context.Context, userID string, c *Cart) error
	Delete(ctx context.Context, userID string) error
}
