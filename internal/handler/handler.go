// Package handler exposes the HTTP API.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/averix/storefront/internal/auth"
	"github.com/averix/storefront/internal/domain/cart"
	"github.com/averix/storefront/internal/domain/coupon"
	"github.com/averix/storefront/internal/domain/order"
	"github.com/averix/storefront/internal/domain/product"
	"github.com/averix/storefront/internal/domain/user"
)

// Handler holds the services behind the HTTP surface.
type Handler struct {
	auth      *auth.Service
	tokens    *auth.TokenManager
	users     user.Repository
	products  product.Repository
	carts     *cart.Service
	evaluator *coupon.Evaluator
	coupons   coupon.Repository
	prefilter *coupon.Prefilter
	orders    *order.Service

	secureCookies bool
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// SecureCookies marks the refresh token cookie as Secure. Disabled in
	// local development over plain HTTP.
	SecureCookies bool
}

// New constructs a Handler with the required dependencies.
func New(
	cfg Config,
	authSvc *auth.Service,
	tokens *auth.TokenManager,
	users user.Repository,
	products product.Repository,
	carts *cart.Service,
	evaluator *coupon.Evaluator,
	coupons coupon.Repository,
	prefilter *coupon.Prefilter,
	orders *order.Service,
) *Handler {
	return &Handler{
		auth:          authSvc,
		tokens:        tokens,
		users:         users,
		products:      products,
		carts:         carts,
		evaluator:     evaluator,
		coupons:       coupons,
		prefilter:     prefilter,
		orders:        orders,
		secureCookies: cfg.SecureCookies,
	}
}

// Routes mounts every API route on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/admin-login", h.AdminLogin)
		r.Get("/refresh-token", h.RefreshToken)
		r.Get("/logout", h.Logout)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Put("/reset-password/{token}", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.Put("/password", h.UpdatePassword)
			r.Put("/edit", h.UpdateProfile)
			r.Put("/save-address", h.SaveAddress)
		r.Get("/wishlist", h.GetWishlist)
		r.Put("/wishlist/{id}", h.ToggleWishlist)

			r.Post("/cart", h.SubmitCart)
			r.Get("/cart", h.GetCart)
			r.Delete("/empty-cart", h.EmptyCart)
			r.Post("/cart/applycoupon", h.ApplyCoupon)
			r.Post("/cart/cash-order", h.PlaceCashOrder)
			r.Get("/orders", h.ListOrders)

			r.Group(func(r chi.Router) {
				r.Use(h.RequireAdmin)

				r.Get("/all-users", h.ListUsers)
				r.Get("/{id}", h.GetUser)
				r.Delete("/{id}", h.DeleteUser)
				r.Put("/block/{id}", h.BlockUser)
				r.Put("/unblock/{id}", h.UnblockUser)
				r.Put("/order/{id}", h.UpdateOrderStatus)
			})
		})
	})

	r.Route("/product", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate, h.RequireAdmin)
			r.Post("/", h.CreateProduct)
		})
	})

	r.Route("/coupon", func(r chi.Router) {
		r.Use(h.Authenticate, h.RequireAdmin)
		r.Post("/", h.CreateCoupon)
		r.Get("/", h.ListCoupons)
		r.Delete("/{id}", h.DeleteCoupon)
	})
}
