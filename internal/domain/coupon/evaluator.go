package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/averix/storefront/internal/domain/cart"
)

var hundred = decimal.NewFromInt(100)

// Evaluator applies a named coupon to a user's current cart, persisting the
// discounted total onto the cart so order placement can pick it up later.
type Evaluator struct {
	coupons   Repository
	carts     cart.Repository
	cache     cart.Cache
	prefilter *Prefilter
}

// NewEvaluator creates an Evaluator. prefilter may be nil to disable the
// bloom fast path; cache may be a no-op implementation.
func NewEvaluator(coupons Repository, carts cart.Repository, cache cart.Cache, prefilter *Prefilter) *Evaluator {
	return &Evaluator{
		coupons:   coupons,
		carts:     carts,
		cache:     cache,
		prefilter: prefilter,
	}
}

// Apply looks up the coupon by exact name, recomputes the discounted total
// from the cart's persisted total, and writes it back onto the cart.
// Reapplying with an unchanged cart and coupon yields the same result.
//
// The coupon's expiry window is deliberately not checked here: only
// existence gates the discount.
func (e *Evaluator) Apply(ctx context.Context, userID, name string) (decimal.Decimal, error) {
	if e.prefilter != nil && !e.prefilter.MightContain(name) {
		return decimal.Zero, ErrInvalidCoupon
	}

	c, err := e.coupons.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return decimal.Zero, ErrInvalidCoupon
		}
		return decimal.Zero, errors.Wrap(err, "lookup coupon")
	}

	userCart, err := e.carts.GetByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	total := userCart.CartTotal
	discounted := total.Sub(total.Mul(c.Discount).Div(hundred)).Round(2)

	if err := e.carts.SetDiscountedTotal(ctx, userID, discounted); err != nil {
		return decimal.Zero, errors.Wrap(err, "persist discounted total")
	}
	if err := e.cache.Delete(ctx, userID); err != nil {
		return decimal.Zero, errors.Wrap(err, "invalidate cart cache")
	}

	return discounted, nil
}
