package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/averix/storefront/internal/domain/product"
)

// ErrEmptySelection is returned when a cart submission contains no lines.
var ErrEmptySelection = errors.New("cart selection required")

// InvalidCountError indicates a selection with a non-positive count.
type InvalidCountError struct {
	ProductID string
}

func (e *InvalidCountError) Error() string {
	return fmt.Sprintf("count must be greater than 0 for product %s", e.ProductID)
}

// Selection is one requested cart line before pricing.
type Selection struct {
	ProductID string
	Count     int
	Color     string
}

// ResolvedCart pairs a cart with the catalog products its lines reference.
type ResolvedCart struct {
	Cart     *Cart
	Products []product.Product
}

// Service assembles, reads, and empties user carts.
type Service struct {
	products product.Repository
	carts    Repository
	cache    Cache

	newID func() string
}

// NewService creates a cart Service. cache may be a no-op implementation.
func NewService(products product.Repository, carts Repository, cache Cache) *Service {
	return &Service{
		products: products,
		carts:    carts,
		cache:    cache,
		newID:    func() string { return uuid.New().String() },
	}
}

// Replace builds a priced cart from the given selections and swaps it in for
// the user's previous cart. Unit prices are captured from the catalog at this
// moment. The whole operation aborts without persisting anything when a
// selection is invalid or references an unknown product.
func (s *Service) Replace(ctx context.Context, userID string, sels []Selection) (*Cart, error) {
	if len(sels) == 0 {
		return nil, ErrEmptySelection
	}

	ids := make([]string, len(sels))
	for i, sel := range sels {
		if sel.Count <= 0 {
			return nil, &InvalidCountError{ProductID: sel.ProductID}
		}
		ids[i] = sel.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	lines := make([]Line, len(sels))
	total := decimal.Zero
	for i, sel := range sels {
		p, ok := byID[sel.ProductID]
		if !ok {
			return nil, &product.NotFoundError{ProductID: sel.ProductID}
		}
		lines[i] = Line{
			ProductID: sel.ProductID,
			Count:     sel.Count,
			Color:     sel.Color,
			Price:     p.Price,
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(sel.Count))))
	}

	c := &Cart{
		ID:        s.newID(),
		UserID:    userID,
		Lines:     lines,
		CartTotal: total.Round(2),
	}
	if err := s.carts.Replace(ctx, c); err != nil {
		return nil, errors.Wrap(err, "replace cart")
	}

	// Stale cache entries would resurrect the replaced cart.
	if err := s.cache.Delete(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "invalidate cart cache")
	}

	return c, nil
}

// Get returns the user's cart with its product references resolved.
// Cart reads go through the cache; product details are always fresh.
func (s *Service) Get(ctx context.Context, userID string) (*ResolvedCart, error) {
	c, err := s.cache.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			return nil, errors.Wrap(err, "cart cache")
		}
		c, err = s.carts.GetByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, userID, c); err != nil {
			return nil, errors.Wrap(err, "cache cart")
		}
	}

	ids := make([]string, len(c.Lines))
	for i, line := range c.Lines {
		ids[i] = line.ProductID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "resolve products")
	}

	return &ResolvedCart{Cart: c, Products: products}, nil
}

// Empty deletes the user's cart and returns it. A missing cart is not an
// error: the result is nil, matching the "deleted Cart or null" contract.
func (s *Service) Empty(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.DeleteByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := s.cache.Delete(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "invalidate cart cache")
	}
	return c, nil
}
