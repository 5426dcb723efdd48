package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidCoupon is returned when a coupon name is unknown.
// The message text is part of the API contract.
var ErrInvalidCoupon = errors.New("Invalid coupon")

// ErrNotFound is returned when a coupon id does not exist.
var ErrNotFound = errors.New("coupon not found")

// Coupon is a named percentage discount. ExpiresAt is informational: the
// evaluator checks only existence, matching the upstream behaviour.
type Coupon struct {
	ID        string
	Name      string
	Discount  decimal.Decimal
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// Repository defines persistence operations for coupons.
type Repository interface {
	FindByName(ctx context.Context, name string) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	List(ctx context.Context) ([]Coupon, error)
	Delete(ctx context.Context, id string) error
	// Names returns every coupon name, used to seed the lookup prefilter.
	Names(ctx context.Context) ([]string, error)
}
