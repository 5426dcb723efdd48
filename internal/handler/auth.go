package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/averix/storefront/internal/auth"
	"github.com/averix/storefront/internal/domain/user"
)

const refreshCookieName = "refreshToken"

type registerRequest struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
	Token     string `json:"token"`
}

// Register creates a new account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password required")
		return
	}

	u, err := h.auth.Register(r.Context(), auth.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Mobile:    req.Mobile,
		Password:  req.Password,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, userToView(u))
}

// Login authenticates a customer and sets the refresh token cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.auth.Login)
}

// AdminLogin authenticates an administrator.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.auth.AdminLogin)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, email, password string) (*auth.LoginResult, error)) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := fn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	h.setRefreshCookie(w, res.RefreshToken, 24*time.Hour)
	respondJSON(w, http.StatusOK, loginResponse{
		ID:        res.User.ID,
		FirstName: res.User.FirstName,
		LastName:  res.User.LastName,
		Email:     res.User.Email,
		Mobile:    res.User.Mobile,
		Token:     res.AccessToken,
	})
}

// RefreshToken exchanges the refresh cookie for a new access token.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := refreshCookie(r)
	access, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"accessToken": access})
}

// Logout revokes the refresh token and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := refreshCookie(r)
	if err := h.auth.Logout(r.Context(), token); err != nil {
		respondDomainError(w, r, err)
		return
	}
	h.setRefreshCookie(w, "", -time.Hour)
	w.WriteHeader(http.StatusNoContent)
}

type updatePasswordRequest struct {
	Password string `json:"password"`
}

// UpdatePassword sets a new password for the authenticated user.
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if err := decodeBody(r, &req); err != nil || req.Password == "" {
		respondError(w, http.StatusBadRequest, "password required")
		return
	}

	if err := h.auth.UpdatePassword(r.Context(), identity(r).UserID, req.Password); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a password reset token. Delivery is out of band;
// the token is returned directly.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeBody(r, &req); err != nil || req.Email == "" {
		respondError(w, http.StatusBadRequest, "email required")
		return
	}

	token, err := h.auth.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"resetToken": token})
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// ResetPassword redeems a reset token from the URL and sets a new password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeBody(r, &req); err != nil || req.Password == "" {
		respondError(w, http.StatusBadRequest, "password required")
		return
	}

	u, err := h.auth.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, userToView(u))
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func refreshCookie(r *http.Request) string {
	c, err := r.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func userToView(u *user.User) userView {
	return userView{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Mobile:    u.Mobile,
		Role:      string(u.Role),
		Blocked:   u.Blocked,
		Address:   u.Address,
		Wishlist:  u.Wishlist,
		CreatedAt: u.CreatedAt,
	}
}
