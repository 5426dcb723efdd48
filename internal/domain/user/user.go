package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Role distinguishes regular customers from administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned on registration with an already used email.
	// The message text is part of the API contract.
	ErrEmailTaken = errors.New("User Already Exists")
	// ErrBlocked is returned when a blocked user attempts an authenticated call.
	ErrBlocked = errors.New("user is blocked")
)

// User is a registered account. PasswordHash is a bcrypt hash, never the
// plaintext password. RefreshToken holds the currently issued refresh JWT
// (empty when logged out).
type User struct {
	ID                string
	FirstName         string
	LastName          string
	Email             string
	Mobile            string
	PasswordHash      string
	Role              Role
	Blocked           bool
	Address           string
	Wishlist          []string
	RefreshToken      string
	ResetTokenHash    string
	ResetTokenExpires *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Profile holds the user-editable subset of account fields.
type Profile struct {
	FirstName string
	LastName  string
	Email     string
	Mobile    string
}

// Repository defines persistence operations for user accounts.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByRefreshToken(ctx context.Context, token string) (*User, error)
	GetByResetTokenHash(ctx context.Context, hash string) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdateProfile(ctx context.Context, id string, p Profile) (*User, error)
	Delete(ctx context.Context, id string) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
	SetAddress(ctx context.Context, id, address string) (*User, error)
	// ToggleWishlist adds productID to the user's wishlist, or removes it
	// when already present, and returns the updated user.
	ToggleWishlist(ctx context.Context, id, productID string) (*User, error)
	SetRefreshToken(ctx context.Context, id, token string) error
	SetPassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, hash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id, passwordHash string) error
}
