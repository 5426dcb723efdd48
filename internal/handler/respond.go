package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/averix/storefront/internal/auth"
	"github.com/averix/storefront/internal/domain/cart"
	"github.com/averix/storefront/internal/domain/coupon"
	"github.com/averix/storefront/internal/domain/order"
	"github.com/averix/storefront/internal/domain/product"
	"github.com/averix/storefront/internal/domain/user"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes a {code, message} error body. Encoded manually with jx
// since the shape is fixed and this path runs for every failed request.
func respondError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(message) })
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// respondDomainError maps a domain error to an HTTP status, preserving the
// error text as the client-facing message. Unexpected errors are logged and
// masked as 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if status, ok := statusFor(err); ok {
		respondError(w, status, err.Error())
		return
	}
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}

func statusFor(err error) (int, bool) {
	var (
		invalidCount  *cart.InvalidCountError
		notFound      *product.NotFoundError
		invalidStatus *order.InvalidStatusError
	)

	switch {
	case errors.Is(err, user.ErrEmailTaken):
		return http.StatusConflict, true

	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrNoRefreshToken),
		errors.Is(err, auth.ErrRefreshMismatch):
		return http.StatusUnauthorized, true

	case errors.Is(err, auth.ErrNotAuthorized),
		errors.Is(err, user.ErrBlocked):
		return http.StatusForbidden, true

	case errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, order.ErrCashOrderRequired),
		errors.Is(err, cart.ErrEmptySelection),
		errors.Is(err, auth.ErrResetTokenExpired),
		errors.As(err, &invalidCount),
		errors.As(err, &invalidStatus):
		return http.StatusBadRequest, true

	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.As(err, &notFound):
		return http.StatusNotFound, true
	}
	return 0, false
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
