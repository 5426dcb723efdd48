package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/averix/storefront/internal/domain/user"
)

const resetTokenTTL = 10 * time.Minute

var (
	// ErrInvalidCredentials is returned when email/password verification
	// fails. The message text is part of the API contract.
	ErrInvalidCredentials = errors.New("Invalid Credentials")
	// ErrNotAuthorized is returned when a non-admin uses the admin login.
	ErrNotAuthorized = errors.New("Not Authorized")
	// ErrNoRefreshToken is returned when the refresh cookie is absent.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrRefreshMismatch is returned when a presented refresh token does not
	// match the one stored for the user, or fails verification.
	ErrRefreshMismatch = errors.New("refresh token mismatch")
	// ErrResetTokenExpired is returned for unknown or expired reset tokens.
	ErrResetTokenExpired = errors.New("Token Expired. Please try again")
)

// RegisterInput holds the fields accepted at registration.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Mobile    string
	Password  string
}

// LoginResult carries the authenticated user and the issued token pair.
type LoginResult struct {
	User         *user.User
	AccessToken  string
	RefreshToken string
}

// Service implements registration, login, and the token lifecycle.
type Service struct {
	users  user.Repository
	tokens *TokenManager

	newID func() string
	now   func() time.Time
}

// NewService creates an auth Service.
func NewService(users user.Repository, tokens *TokenManager) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		newID:  func() string { return uuid.New().String() },
		now:    time.Now,
	}
}

// Register creates a new user account with role "user".
func (s *Service) Register(ctx context.Context, in RegisterInput) (*user.User, error) {
	_, err := s.users.GetByEmail(ctx, in.Email)
	if err == nil {
		return nil, user.ErrEmailTaken
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, errors.Wrap(err, "check email")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		ID:           s.newID(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Mobile:       in.Mobile,
		PasswordHash: hash,
		Role:         user.RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

// Login verifies the credentials and issues an access/refresh token pair.
// The refresh token is persisted on the user row so it can be revoked.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	return s.login(ctx, email, password, false)
}

// AdminLogin is Login restricted to accounts with the admin role.
func (s *Service) AdminLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	return s.login(ctx, email, password, true)
}

func (s *Service) login(ctx context.Context, email, password string, adminOnly bool) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "find user")
	}

	if adminOnly && u.Role != user.RoleAdmin {
		return nil, ErrNotAuthorized
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	access, err := s.tokens.NewAccessToken(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.NewRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, u.ID, refresh); err != nil {
		return nil, errors.Wrap(err, "store refresh token")
	}

	return &LoginResult{User: u, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh redeems a refresh token for a new access token. The token must
// both verify cryptographically and match the one stored for the user.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	u, err := s.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", ErrRefreshMismatch
		}
		return "", errors.Wrap(err, "find user by refresh token")
	}

	claims, err := s.tokens.Parse(refreshToken)
	if err != nil || claims.Subject != u.ID {
		return "", ErrRefreshMismatch
	}

	return s.tokens.NewAccessToken(u.ID, u.Role)
}

// Logout revokes the refresh token. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrNoRefreshToken
	}

	u, err := s.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "find user by refresh token")
	}
	return s.users.SetRefreshToken(ctx, u.ID, "")
}

// UpdatePassword replaces the user's password hash.
func (s *Service) UpdatePassword(ctx context.Context, userID, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, userID, hash)
}

// ForgotPassword creates a password reset token valid for ten minutes.
// Only the SHA-256 hash is stored; the plaintext token is returned to be
// delivered out of band.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Wrap(err, "generate reset token")
	}
	token := hex.EncodeToString(raw)

	if err := s.users.SetResetToken(ctx, u.ID, hashToken(token), s.now().Add(resetTokenTTL)); err != nil {
		return "", errors.Wrap(err, "store reset token")
	}
	return token, nil
}

// ResetPassword redeems a reset token and sets a new password, clearing the
// token so it cannot be reused.
func (s *Service) ResetPassword(ctx context.Context, token, password string) (*user.User, error) {
	u, err := s.users.GetByResetTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrResetTokenExpired
		}
		return nil, errors.Wrap(err, "find user by reset token")
	}
	if u.ResetTokenExpires == nil || s.now().After(*u.ResetTokenExpires) {
		return nil, ErrResetTokenExpired
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	if err := s.users.ClearResetToken(ctx, u.ID, hash); err != nil {
		return nil, errors.Wrap(err, "reset password")
	}
	return u, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
