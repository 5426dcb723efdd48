package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/averix/storefront/internal/domain/user"
)

// Identity is the authenticated caller, resolved once per request and
// passed explicitly into the domain services.
type Identity struct {
	UserID string
	Role   user.Role
}

type identityKey struct{}

// IdentityFromContext extracts the authenticated identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Authenticate verifies the bearer access token, loads the account, and
// rejects blocked users. The resolved identity is stored in the request
// context.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := h.tokens.Parse(token)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}

		u, err := h.users.GetByID(r.Context(), claims.Subject)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		if u.Blocked {
			respondDomainError(w, r, user.ErrBlocked)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, Identity{
			UserID: u.ID,
			Role:   u.Role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin allows only authenticated admins through.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok || id.Role != user.RoleAdmin {
			respondError(w, http.StatusForbidden, "Not Authorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// identity is a convenience for handlers below an Authenticate middleware.
func identity(r *http.Request) Identity {
	id, _ := IdentityFromContext(r.Context())
	return id
}
