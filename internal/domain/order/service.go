package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/averix/storefront/internal/domain/cart"
	"github.com/averix/storefront/internal/domain/product"
)

const (
	paymentMethodCOD = "COD"
	currencyUSD      = "usd"
)

// ErrCashOrderRequired is returned when the cash-on-delivery confirmation
// flag is absent. The message text is part of the API contract.
var ErrCashOrderRequired = errors.New("Create cash order failed")

// ListResult pairs a user's orders with the catalog products referenced by
// their lines, deduplicated across orders.
type ListResult struct {
	Orders   []Order
	Products []product.Product
}

// Service converts persisted carts into durable orders and adjusts catalog
// stock accordingly.
type Service struct {
	carts    cart.Repository
	products product.Repository
	orders   Repository
	cache    cart.Cache

	newID func() string
	now   func() time.Time
}

// NewService creates an order Service. cache may be a no-op implementation.
func NewService(carts cart.Repository, products product.Repository, orders Repository, cache cart.Cache) *Service {
	return &Service{
		carts:    carts,
		products: products,
		orders:   orders,
		cache:    cache,
		newID:    func() string { return uuid.New().String() },
		now:      time.Now,
	}
}

// PlaceCashOrder snapshots the user's cart into an immutable order with a
// cash-on-delivery payment intent, then decrements stock for every line.
//
// Amount selection is a strict two-way branch: the discounted total is used
// when couponApplied is set AND the cart carries one; otherwise the base
// total. The coupon itself is not re-validated here.
//
// The order insert and the stock batch are separately atomic. A crash in
// between leaves an order recorded without its stock adjustment; there is
// no compensation step.
func (s *Service) PlaceCashOrder(ctx context.Context, userID string, cashOrder, couponApplied bool) (*Order, error) {
	if !cashOrder {
		return nil, ErrCashOrderRequired
	}

	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	amount := c.CartTotal
	if couponApplied && c.DiscountedTotal != nil {
		amount = *c.DiscountedTotal
	}

	now := s.now()
	o := &Order{
		ID:     s.newID(),
		UserID: userID,
		Lines:  c.Lines,
		Status: StatusCashOnDelivery,
		Payment: PaymentIntent{
			ID:        s.newID(),
			Method:    paymentMethodCOD,
			Amount:    amount,
			Status:    StatusCashOnDelivery,
			Currency:  currencyUSD,
			CreatedAt: now,
		},
		CreatedAt: now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	adjustments := make([]product.StockAdjustment, len(c.Lines))
	for i, line := range c.Lines {
		adjustments[i] = product.StockAdjustment{
			ProductID: line.ProductID,
			Count:     line.Count,
		}
	}
	if err := s.products.AdjustStock(ctx, adjustments); err != nil {
		return nil, errors.Wrap(err, "adjust stock")
	}

	if err := s.cache.Delete(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "invalidate cart cache")
	}

	return o, nil
}

// List returns the user's orders with their product references resolved.
func (s *Service) List(ctx context.Context, userID string) (*ListResult, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, o := range orders {
		for _, line := range o.Lines {
			if _, ok := seen[line.ProductID]; ok {
				continue
			}
			seen[line.ProductID] = struct{}{}
			ids = append(ids, line.ProductID)
		}
	}

	var products []product.Product
	if len(ids) > 0 {
		products, err = s.products.GetByIDs(ctx, ids)
		if err != nil {
			return nil, errors.Wrap(err, "resolve products")
		}
	}

	return &ListResult{Orders: orders, Products: products}, nil
}

// UpdateStatus transitions an order (and its payment intent) to the given
// status. Unknown status strings are rejected before touching storage.
func (s *Service) UpdateStatus(ctx context.Context, orderID, status string) (*Order, error) {
	parsed, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.orders.UpdateStatus(ctx, orderID, parsed)
}
