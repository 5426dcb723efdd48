package coupon

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averix/storefront/internal/domain/cart"
)

// --- Mock implementations ---

type mockCouponRepo struct {
	byName  map[string]Coupon
	lookups int
}

func (m *mockCouponRepo) FindByName(_ context.Context, name string) (*Coupon, error) {
	m.lookups++
	c, ok := m.byName[name]
	if !ok {
		return nil, ErrInvalidCoupon
	}
	return &c, nil
}

func (m *mockCouponRepo) Create(_ context.Context, c *Coupon) error {
	m.byName[c.Name] = *c
	return nil
}

func (m *mockCouponRepo) List(_ context.Context) ([]Coupon, error) { return nil, nil }

func (m *mockCouponRepo) Delete(_ context.Context, _ string) error { return nil }

func (m *mockCouponRepo) Names(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(m.byName))
	for name := range m.byName {
		names = append(names, name)
	}
	return names, nil
}

type mockCartRepo struct {
	cart *cart.Cart
}

func (m *mockCartRepo) Replace(_ context.Context, _ *cart.Cart) error { return nil }

func (m *mockCartRepo) GetByUser(_ context.Context, userID string) (*cart.Cart, error) {
	if m.cart == nil || m.cart.UserID != userID {
		return nil, cart.ErrNotFound
	}
	return m.cart, nil
}

func (m *mockCartRepo) DeleteByUser(_ context.Context, _ string) (*cart.Cart, error) {
	return nil, cart.ErrNotFound
}

func (m *mockCartRepo) SetDiscountedTotal(_ context.Context, userID string, total decimal.Decimal) error {
	if m.cart == nil || m.cart.UserID != userID {
		return cart.ErrNotFound
	}
	m.cart.DiscountedTotal = &total
	return nil
}

type mockCache struct {
	deletes int
}

func (m *mockCache) Get(_ context.Context, _ string) (*cart.Cart, error) {
	return nil, cart.ErrCacheMiss
}

func (m *mockCache) Set(_ context.Context, _ string, _ *cart.Cart) error { return nil }

func (m *mockCache) Delete(_ context.Context, _ string) error {
	m.deletes++
	return nil
}

// --- Helpers ---

func newCouponRepo(coupons ...Coupon) *mockCouponRepo {
	byName := make(map[string]Coupon, len(coupons))
	for _, c := range coupons {
		byName[c.Name] = c
	}
	return &mockCouponRepo{byName: byName}
}

func cartWithTotal(userID, total string) *cart.Cart {
	return &cart.Cart{
		ID:        "c1",
		UserID:    userID,
		CartTotal: decimal.RequireFromString(total),
	}
}

// --- Tests ---

func TestApply_PercentageDiscount(t *testing.T) {
	coupons := newCouponRepo(Coupon{ID: "cp1", Name: "SAVE10", Discount: decimal.NewFromInt(10)})
	carts := &mockCartRepo{cart: cartWithTotal("u1", "20.00")}
	cache := &mockCache{}
	ev := NewEvaluator(coupons, carts, cache, nil)

	discounted, err := ev.Apply(context.Background(), "u1", "SAVE10")
	require.NoError(t, err)

	assert.Equal(t, "18.00", discounted.StringFixed(2))
	require.NotNil(t, carts.cart.DiscountedTotal)
	assert.Equal(t, "18.00", carts.cart.DiscountedTotal.StringFixed(2))
	assert.Equal(t, 1, cache.deletes)
}

func TestApply_RoundsToCents(t *testing.T) {
	coupons := newCouponRepo(Coupon{Name: "SAVE15", Discount: decimal.NewFromInt(15)})
	carts := &mockCartRepo{cart: cartWithTotal("u1", "33.33")}
	ev := NewEvaluator(coupons, carts, &mockCache{}, nil)

	// 33.33 - 33.33*0.15 = 28.3305 -> 28.33
	discounted, err := ev.Apply(context.Background(), "u1", "SAVE15")
	require.NoError(t, err)
	assert.Equal(t, "28.33", discounted.StringFixed(2))
}

func TestApply_UnknownCoupon(t *testing.T) {
	coupons := newCouponRepo()
	carts := &mockCartRepo{cart: cartWithTotal("u1", "20.00")}
	ev := NewEvaluator(coupons, carts, &mockCache{}, nil)

	_, err := ev.Apply(context.Background(), "u1", "NOPE")
	require.ErrorIs(t, err, ErrInvalidCoupon)
	assert.Nil(t, carts.cart.DiscountedTotal)
}

func TestApply_NoCart(t *testing.T) {
	coupons := newCouponRepo(Coupon{Name: "SAVE10", Discount: decimal.NewFromInt(10)})
	ev := NewEvaluator(coupons, &mockCartRepo{}, &mockCache{}, nil)

	_, err := ev.Apply(context.Background(), "u1", "SAVE10")
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestApply_Idempotent(t *testing.T) {
	coupons := newCouponRepo(Coupon{Name: "SAVE10", Discount: decimal.NewFromInt(10)})
	carts := &mockCartRepo{cart: cartWithTotal("u1", "20.00")}
	ev := NewEvaluator(coupons, carts, &mockCache{}, nil)

	first, err := ev.Apply(context.Background(), "u1", "SAVE10")
	require.NoError(t, err)
	second, err := ev.Apply(context.Background(), "u1", "SAVE10")
	require.NoError(t, err)

	// Recomputed from the base total each time, never compounded.
	assert.True(t, first.Equal(second))
	assert.Equal(t, "18.00", second.StringFixed(2))
}

func TestApply_PrefilterShortCircuits(t *testing.T) {
	coupons := newCouponRepo(Coupon{Name: "SAVE10", Discount: decimal.NewFromInt(10)})
	carts := &mockCartRepo{cart: cartWithTotal("u1", "20.00")}

	pf := NewPrefilter()
	pf.Add("SAVE10")
	ev := NewEvaluator(coupons, carts, &mockCache{}, pf)

	_, err := ev.Apply(context.Background(), "u1", "DEFINITELY-NOT-A-COUPON")
	require.ErrorIs(t, err, ErrInvalidCoupon)
	assert.Zero(t, coupons.lookups, "prefilter should reject without a lookup")

	// A name in the filter reaches the repository.
	_, err = ev.Apply(context.Background(), "u1", "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 1, coupons.lookups)
}

func TestPrefilter_NoFalseNegatives(t *testing.T) {
	repo := newCouponRepo(
		Coupon{Name: "SAVE10", Discount: decimal.NewFromInt(10)},
		Coupon{Name: "HAPPYHOURS", Discount: decimal.NewFromInt(18)},
	)

	pf := NewPrefilter()
	require.NoError(t, pf.Load(context.Background(), repo))

	assert.True(t, pf.MightContain("SAVE10"))
	assert.True(t, pf.MightContain("HAPPYHOURS"))
}

func TestApply_ZeroDiscount(t *testing.T) {
	coupons := newCouponRepo(Coupon{Name: "NOOP", Discount: decimal.Zero})
	carts := &mockCartRepo{cart: cartWithTotal("u1", "20.00")}
	ev := NewEvaluator(coupons, carts, &mockCache{}, nil)

	discounted, err := ev.Apply(context.Background(), "u1", "NOOP")
	require.NoError(t, err)
	assert.Equal(t, "20.00", discounted.StringFixed(2))
}
