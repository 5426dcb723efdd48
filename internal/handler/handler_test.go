package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averix/storefront/internal/auth"
	"github.com/averix/storefront/internal/domain/cart"
	"github.com/averix/storefront/internal/domain/coupon"
	"github.com/averix/storefront/internal/domain/order"
	"github.com/averix/storefront/internal/domain/product"
	"github.com/averix/storefront/internal/domain/user"
)

// --- In-memory stores ---

type memUsers struct {
	users map[string]*user.User
}

func (m *memUsers) Create(_ context.Context, u *user.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memUsers) GetByRefreshToken(_ context.Context, token string) (*user.User, error) {
	for _, u := range m.users {
		if u.RefreshToken != "" && u.RefreshToken == token {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memUsers) GetByResetTokenHash(_ context.Context, hash string) (*user.User, error) {
	for _, u := range m.users {
		if u.ResetTokenHash != "" && u.ResetTokenHash == hash {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memUsers) List(_ context.Context) ([]user.User, error) {
	var out []user.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id string, p user.Profile) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	u.FirstName, u.LastName, u.Email, u.Mobile = p.FirstName, p.LastName, p.Email, p.Mobile
	return u, nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUsers) SetBlocked(_ context.Context, id string, blocked bool) error {
	u, ok := m.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.Blocked = blocked
	return nil
}

func (m *memUsers) SetAddress(_ context.Context, id, address string) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	u.Address = address
	return u, nil
}

func (m *memUsers) ToggleWishlist(_ context.Context, id, productID string) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	for i, existing := range u.Wishlist {
		if existing == productID {
			u.Wishlist = append(u.Wishlist[:i], u.Wishlist[i+1:]...)
			return u, nil
		}
	}
	u.Wishlist = append(u.Wishlist, productID)
	return u, nil
}

func (m *memUsers) SetRefreshToken(_ context.Context, id, token string) error {
	u, ok := m.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.RefreshToken = token
	return nil
}

func (m *memUsers) SetPassword(_ context.Context, id, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *memUsers) SetResetToken(_ context.Context, id, hash string, expires time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.ResetTokenHash = hash
	u.ResetTokenExpires = &expires
	return nil
}

func (m *memUsers) ClearResetToken(_ context.Context, id, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = ""
	u.ResetTokenExpires = nil
	return nil
}

type memProducts struct {
	products map[string]*product.Product
}

func (m *memProducts) List(_ context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *memProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	seen := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := m.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProducts) Create(_ context.Context, p *product.Product) error {
	m.products[p.ID] = p
	return nil
}

func (m *memProducts) AdjustStock(_ context.Context, adjustments []product.StockAdjustment) error {
	for _, a := range adjustments {
		if p, ok := m.products[a.ProductID]; ok {
			p.Quantity -= a.Count
			p.Sold += a.Count
		}
	}
	return nil
}

type memCarts struct {
	byUser map[string]*cart.Cart
}

func (m *memCarts) Replace(_ context.Context, c *cart.Cart) error {
	m.byUser[c.UserID] = c
	return nil
}

func (m *memCarts) GetByUser(_ context.Context, userID string) (*cart.Cart, error) {
	c, ok := m.byUser[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return c, nil
}

func (m *memCarts) DeleteByUser(_ context.Context, userID string) (*cart.Cart, error) {
	c, ok := m.byUser[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	delete(m.byUser, userID)
	return c, nil
}

func (m *memCarts) SetDiscountedTotal(_ context.Context, userID string, total decimal.Decimal) error {
	c, ok := m.byUser[userID]
	if !ok {
		return cart.ErrNotFound
	}
	c.DiscountedTotal = &total
	return nil
}

type memCoupons struct {
	coupons map[string]*coupon.Coupon
}

func (m *memCoupons) FindByName(_ context.Context, name string) (*coupon.Coupon, error) {
	for _, c := range m.coupons {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, coupon.ErrInvalidCoupon
}

func (m *memCoupons) Create(_ context.Context, c *coupon.Coupon) error {
	m.coupons[c.ID] = c
	return nil
}

func (m *memCoupons) List(_ context.Context) ([]coupon.Coupon, error) {
	var out []coupon.Coupon
	for _, c := range m.coupons {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memCoupons) Delete(_ context.Context, id string) error {
	if _, ok := m.coupons[id]; !ok {
		return coupon.ErrNotFound
	}
	delete(m.coupons, id)
	return nil
}

func (m *memCoupons) Names(_ context.Context) ([]string, error) {
	var out []string
	for _, c := range m.coupons {
		out = append(out, c.Name)
	}
	return out, nil
}

type memOrders struct {
	orders []order.Order
}

func (m *memOrders) Create(_ context.Context, o *order.Order) error {
	m.orders = append(m.orders, *o)
	return nil
}

func (m *memOrders) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id string, status order.Status) (*order.Order, error) {
	for i := range m.orders {
		if m.orders[i].ID == id {
			m.orders[i].Status = status
			m.orders[i].Payment.Status = status
			return &m.orders[i], nil
		}
	}
	return nil, order.ErrNotFound
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*cart.Cart, error) { return nil, cart.ErrCacheMiss }
func (noopCache) Set(context.Context, string, *cart.Cart) error   { return nil }
func (noopCache) Delete(context.Context, string) error            { return nil }

// --- Fixture ---

type testEnv struct {
	router    http.Handler
	users     *memUsers
	products  *memProducts
	coupons   *memCoupons
	orders    *memOrders
	prefilter *coupon.Prefilter

	userToken  string
	adminToken string
	userID     string
	adminID    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := &memUsers{users: make(map[string]*user.User)}
	products := &memProducts{products: make(map[string]*product.Product)}
	carts := &memCarts{byUser: make(map[string]*cart.Cart)}
	coupons := &memCoupons{coupons: make(map[string]*coupon.Coupon)}
	orders := &memOrders{}
	cache := noopCache{}

	tokens := auth.NewTokenManager([]byte("test-secret"), 15*time.Minute, 24*time.Hour)
	authSvc := auth.NewService(users, tokens)
	cartSvc := cart.NewService(products, carts, cache)
	prefilter := coupon.NewPrefilter()
	evaluator := coupon.NewEvaluator(coupons, carts, cache, prefilter)
	orderSvc := order.NewService(carts, products, orders, cache)

	h := New(Config{}, authSvc, tokens, users, products, cartSvc, evaluator, coupons, prefilter, orderSvc)
	router := chi.NewRouter()
	router.Route("/api", h.Routes)

	env := &testEnv{
		router:    router,
		users:     users,
		products:  products,
		coupons:   coupons,
		orders:    orders,
		prefilter: prefilter,
	}

	// Seed one customer and one admin with known credentials.
	customer, err := authSvc.Register(context.Background(), auth.RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password:  "correct-horse",
	})
	require.NoError(t, err)
	env.userID = customer.ID

	admin, err := authSvc.Register(context.Background(), auth.RegisterInput{
		FirstName: "Root",
		Email:     "admin@example.com",
		Password:  "admin-pass",
	})
	require.NoError(t, err)
	admin.Role = user.RoleAdmin
	env.adminID = admin.ID

	env.userToken, err = tokens.NewAccessToken(customer.ID, user.RoleUser)
	require.NoError(t, err)
	env.adminToken, err = tokens.NewAccessToken(admin.ID, user.RoleAdmin)
	require.NoError(t, err)

	return env
}

func (env *testEnv) seedProduct(id, name, price string, quantity int) {
	env.products.products[id] = &product.Product{
		ID:       id,
		Name:     name,
		Slug:     id,
		Price:    decimal.RequireFromString(price),
		Quantity: quantity,
	}
}

func (env *testEnv) seedCoupon(name string, discount int64) {
	c := &coupon.Coupon{ID: "coupon-" + name, Name: name, Discount: decimal.NewFromInt(discount)}
	env.coupons.coupons[c.ID] = c
	env.prefilter.Add(name)
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

// --- Tests ---

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"firstname": "Grace",
		"email":     "grace@example.com",
		"password":  "secret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeMap(t, w)
	assert.Equal(t, "Grace", body["firstname"])
	assert.NotEmpty(t, body["_id"])
	assert.NotContains(t, body, "password")
}

func TestRegisterEndpoint_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"email":    "ada@example.com",
		"password": "whatever",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "User Already Exists", decodeMap(t, w)["message"])
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/user/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeMap(t, w)
	assert.Equal(t, "ada@example.com", body["email"])
	assert.NotEmpty(t, body["token"])

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "refreshToken", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoginEndpoint_WrongPassword(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/user/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "nope",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid Credentials", decodeMap(t, w)["message"])
}

func TestAdminLoginEndpoint_RegularUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/user/admin-login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Not Authorized", decodeMap(t, w)["message"])
}

func TestAuthenticate_MissingToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/user/cart", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_BlockedUser(t *testing.T) {
	env := newTestEnv(t)
	env.users.users[env.userID].Blocked = true

	w := env.do(t, http.MethodGet, "/api/user/cart", env.userToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAdmin_RegularUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/user/all-users", env.userToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestListProducts_Public(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct("p1", "Headphones", "129.99", 10)

	w := env.do(t, http.MethodGet, "/api/product/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var products []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&products))
	require.Len(t, products, 1)
	assert.Equal(t, "Headphones", products[0]["name"])
}

func TestCreateProduct_AdminOnly(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{"name": "Lamp", "slug": "lamp", "price": "19.99", "quantity": 5}

	w := env.do(t, http.MethodPost, "/api/product/", env.userToken, body)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/product/", env.adminToken, body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "lamp", decodeMap(t, w)["slug"])
}

func TestCartCheckoutFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct("p1", "Headphones", "10.00", 100)
	env.seedCoupon("SAVE10", 10)

	// Submit a cart: 2 x 10.00.
	w := env.do(t, http.MethodPost, "/api/user/cart", env.userToken, map[string]any{
		"cart": []map[string]any{{"_id": "p1", "count": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "20", decodeMap(t, w)["cartTotal"])

	// Apply the coupon: 10% off 20.00.
	w = env.do(t, http.MethodPost, "/api/user/cart/applycoupon", env.userToken, map[string]string{
		"coupon": "SAVE10",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "18.00", decodeMap(t, w)["totalAfterDiscount"])

	// Place the cash order with the coupon applied.
	w = env.do(t, http.MethodPost, "/api/user/cart/cash-order", env.userToken, map[string]bool{
		"cashOrder":     true,
		"couponApplied": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeMap(t, w)
	assert.Equal(t, "Success", body["message"])
	assert.NotEmpty(t, body["orderId"])

	// Stock was decremented and sold incremented.
	assert.Equal(t, 98, env.products.products["p1"].Quantity)
	assert.Equal(t, 2, env.products.products["p1"].Sold)

	// The order shows up in the listing with the discounted amount.
	w = env.do(t, http.MethodGet, "/api/user/orders", env.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeMap(t, w)
	orders := list["orders"].([]any)
	require.Len(t, orders, 1)
	payment := orders[0].(map[string]any)["paymentIntent"].(map[string]any)
	assert.Equal(t, "18", payment["amount"])
	assert.Equal(t, "COD", payment["method"])
}

func TestApplyCoupon_Invalid(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct("p1", "Headphones", "10.00", 100)

	w := env.do(t, http.MethodPost, "/api/user/cart", env.userToken, map[string]any{
		"cart": []map[string]any{{"_id": "p1", "count": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/user/cart/applycoupon", env.userToken, map[string]string{
		"coupon": "NOPE",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid coupon", decodeMap(t, w)["message"])
}

func TestSubmitCart_InvalidCount(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct("p1", "Headphones", "10.00", 100)

	w := env.do(t, http.MethodPost, "/api/user/cart", env.userToken, map[string]any{
		"cart": []map[string]any{{"_id": "p1", "count": 0}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitCart_UnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/user/cart", env.userToken, map[string]any{
		"cart": []map[string]any{{"_id": "ghost", "count": 1}},
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCashOrder_FlagMissing(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct("p1", "Headphones", "10.00", 100)

	w := env.do(t, http.MethodPost, "/api/user/cart", env.userToken, map[string]any{
		"cart": []map[string]any{{"_id": "p1", "count": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/user/cart/cash-order", env.userToken, map[string]bool{
		"cashOrder": false,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Create cash order failed", decodeMap(t, w)["message"])
}

func TestCashOrder_NoCart(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/user/cart/cash-order", env.userToken, map[string]bool{
		"cashOrder": true,
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEmptyCart_NullWhenMissing(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodDelete, "/api/user/empty-cart", env.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null\n", w.Body.String())
}

func TestUpdateOrderStatus_Admin(t *testing.T) {
	env := newTestEnv(t)
	env.orders.orders = append(env.orders.orders, order.Order{
		ID:     "o1",
		UserID: env.userID,
		Status: order.StatusCashOnDelivery,
	})

	w := env.do(t, http.MethodPut, "/api/user/order/o1", env.adminToken, map[string]string{
		"status": "Shipped",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Shipped", decodeMap(t, w)["orderStatus"])
}

func TestUpdateOrderStatus_UnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	env.orders.orders = append(env.orders.orders, order.Order{ID: "o1"})

	w := env.do(t, http.MethodPut, "/api/user/order/o1", env.adminToken, map[string]string{
		"status": "Teleported",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBlockUnblockUser_Admin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/user/block/"+env.userID, env.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.users.users[env.userID].Blocked)

	w = env.do(t, http.MethodPut, "/api/user/unblock/"+env.userID, env.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, env.users.users[env.userID].Blocked)
}

func TestCreateCoupon_Admin(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct("p1", "Headphones", "10.00", 100)

	w := env.do(t, http.MethodPost, "/api/coupon/", env.adminToken, map[string]any{
		"name":     "NEWDEAL",
		"discount": "25",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// A coupon created through the API is immediately applicable: the
	// handler registers the name with the prefilter.
	w = env.do(t, http.MethodPost, "/api/user/cart", env.userToken, map[string]any{
		"cart": []map[string]any{{"_id": "p1", "count": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/user/cart/applycoupon", env.userToken, map[string]string{
		"coupon": "NEWDEAL",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7.50", decodeMap(t, w)["totalAfterDiscount"])
}

func TestRefreshTokenEndpoint(t *testing.T) {
	env := newTestEnv(t)

	login := env.do(t, http.MethodPost, "/api/user/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, login.Code)
	cookies := login.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/user/refresh-token", nil)
	req.AddCookie(cookies[0])
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeMap(t, w)["accessToken"])
}

func TestRefreshTokenEndpoint_NoCookie(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/user/refresh-token", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestForgotResetPasswordEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/user/forgot-password", "", map[string]string{
		"email": "ada@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	token := decodeMap(t, w)["resetToken"].(string)
	require.NotEmpty(t, token)

	w = env.do(t, http.MethodPut, "/api/user/reset-password/"+token, "", map[string]string{
		"password": "brand-new",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// The new password works.
	w = env.do(t, http.MethodPost, "/api/user/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "brand-new",
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestResetPassword_BadToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/user/reset-password/bogus", "", map[string]string{
		"password": "whatever",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Token Expired. Please try again", decodeMap(t, w)["message"])
}

func TestSaveAddress(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/user/save-address", env.userToken, map[string]string{
		"address": "12 Analytical Engine Way",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12 Analytical Engine Way", env.users.users[env.userID].Address)
}

func TestSubmitCart_ReplacesPrevious(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct("p1", "Headphones", "10.00", 100)
	env.seedProduct("p2", "Cable", "4.50", 100)

	w := env.do(t, http.MethodPost, "/api/user/cart", env.userToken, map[string]any{
		"cart": []map[string]any{{"_id": "p1", "count": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "20", decodeMap(t, w)["cartTotal"])

	// Resubmitting replaces the cart wholesale: the old lines are gone.
	w = env.do(t, http.MethodPost, "/api/user/cart", env.userToken, map[string]any{
		"cart": []map[string]any{{"_id": "p2", "count": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeMap(t, w)
	assert.Equal(t, "4.5", body["cartTotal"])
	lines := body["products"].([]any)
	require.Len(t, lines, 1)
	assert.Equal(t, "p2", lines[0].(map[string]any)["product"])

	// A fresh read agrees.
	w = env.do(t, http.MethodGet, "/api/user/cart", env.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeMap(t, w)
	assert.Equal(t, "4.5", body["cartTotal"])
	lines = body["products"].([]any)
	require.Len(t, lines, 1)
	assert.Equal(t, "p2", lines[0].(map[string]any)["product"])
}

func TestDeleteCoupon_Admin(t *testing.T) {
	env := newTestEnv(t)
	env.seedCoupon("SAVE10", 10)

	w := env.do(t, http.MethodDelete, "/api/coupon/coupon-SAVE10", env.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Deleting an unknown id is a missing resource, not a bad coupon name.
	w = env.do(t, http.MethodDelete, "/api/coupon/ghost", env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWishlistToggle(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct("p1", "Headphones", "10.00", 100)

	w := env.do(t, http.MethodPut, "/api/user/wishlist/p1", env.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeMap(t, w)
	require.Len(t, body["wishlist"], 1)

	w = env.do(t, http.MethodGet, "/api/user/wishlist", env.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "p1", listed[0]["_id"])

	// Toggling again removes the entry.
	w = env.do(t, http.MethodPut, "/api/user/wishlist/p1", env.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, env.users.users[env.userID].Wishlist)

	w = env.do(t, http.MethodGet, "/api/user/wishlist", env.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listed))
	assert.Empty(t, listed)
}

func TestWishlistToggle_UnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/user/wishlist/ghost", env.userToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, env.users.users[env.userID].Wishlist)
}
