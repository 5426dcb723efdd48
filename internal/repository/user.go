package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/averix/storefront/internal/domain/user"
)

const userColumns = `id, first_name, last_name, email, mobile, password_hash, role,
	blocked, address, wishlist, refresh_token, reset_token_hash, reset_token_expires,
	created_at, updated_at`

const (
	createUserSQL = `INSERT INTO users (id, first_name, last_name, email, mobile, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getUserByIDSQL        = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailSQL     = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	getUserByRefreshSQL   = `SELECT ` + userColumns + ` FROM users WHERE refresh_token = $1 AND refresh_token <> ''`
	getUserByResetHashSQL = `SELECT ` + userColumns + ` FROM users WHERE reset_token_hash = $1 AND reset_token_hash <> ''`
	listUsersSQL          = `SELECT ` + userColumns + ` FROM users ORDER BY created_at`

	updateUserProfileSQL = `UPDATE users SET first_name = $2, last_name = $3, email = $4, mobile = $5, updated_at = now()
		WHERE id = $1 RETURNING ` + userColumns

	deleteUserSQL = `DELETE FROM users WHERE id = $1`

	setUserBlockedSQL = `UPDATE users SET blocked = $2, updated_at = now() WHERE id = $1`

	setUserAddressSQL = `UPDATE users SET address = $2, updated_at = now()
		WHERE id = $1 RETURNING ` + userColumns

	toggleWishlistSQL = `UPDATE users SET wishlist = CASE
			WHEN $2 = ANY (wishlist) THEN array_remove(wishlist, $2)
			ELSE array_append(wishlist, $2)
		END, updated_at = now()
		WHERE id = $1 RETURNING ` + userColumns

	setUserRefreshSQL  = `UPDATE users SET refresh_token = $2, updated_at = now() WHERE id = $1`
	setUserPasswordSQL = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`

	setUserResetTokenSQL = `UPDATE users SET reset_token_hash = $2, reset_token_expires = $3, updated_at = now()
		WHERE id = $1`

	clearUserResetTokenSQL = `UPDATE users
		SET password_hash = $2, reset_token_hash = '', reset_token_expires = NULL, updated_at = now()
		WHERE id = $1`
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create persists a new user. A duplicate email surfaces as ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.pool.Exec(ctx, createUserSQL,
		u.ID, u.FirstName, u.LastName, u.Email, u.Mobile, u.PasswordHash, u.Role,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return nil
}

// GetByID returns a single user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, getUserByIDSQL, id)
}

// GetByEmail returns the user registered with the given email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, getUserByEmailSQL, email)
}

// GetByRefreshToken returns the user holding the given refresh token.
func (r *UserRepository) GetByRefreshToken(ctx context.Context, token string) (*user.User, error) {
	return r.getOne(ctx, getUserByRefreshSQL, token)
}

// GetByResetTokenHash returns the user with the given reset token hash.
func (r *UserRepository) GetByResetTokenHash(ctx context.Context, hash string) (*user.User, error) {
	return r.getOne(ctx, getUserByResetHashSQL, hash)
}

// List returns all users ordered by creation time.
func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.pool.Query(ctx, listUsersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return pgx.CollectRows(rows, scanUser)
}

// UpdateProfile updates the user-editable account fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, p user.Profile) (*user.User, error) {
	return r.getOne(ctx, updateUserProfileSQL, id, p.FirstName, p.LastName, p.Email, p.Mobile)
}

// Delete removes a user account.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteUserSQL, id)
	if err != nil {
		return fmt.Errorf("deleting user %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// SetBlocked toggles the blocked flag.
func (r *UserRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	return r.exec(ctx, setUserBlockedSQL, id, blocked)
}

// SetAddress updates the shipping address.
func (r *UserRepository) SetAddress(ctx context.Context, id, address string) (*user.User, error) {
	return r.getOne(ctx, setUserAddressSQL, id, address)
}

// ToggleWishlist flips the presence of productID in the user's wishlist.
func (r *UserRepository) ToggleWishlist(ctx context.Context, id, productID string) (*user.User, error) {
	return r.getOne(ctx, toggleWishlistSQL, id, productID)
}

// SetRefreshToken stores the current refresh token; empty revokes it.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	return r.exec(ctx, setUserRefreshSQL, id, token)
}

// SetPassword replaces the stored password hash.
func (r *UserRepository) SetPassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, setUserPasswordSQL, id, passwordHash)
}

// SetResetToken stores a password reset token hash with its expiry.
func (r *UserRepository) SetResetToken(ctx context.Context, id, hash string, expires time.Time) error {
	return r.exec(ctx, setUserResetTokenSQL, id, hash, expires)
}

// ClearResetToken sets the new password hash and removes the reset token.
func (r *UserRepository) ClearResetToken(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, clearUserResetTokenSQL, id, passwordHash)
}

func (r *UserRepository) getOne(ctx context.Context, sql string, args ...any) (*user.User, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) exec(ctx context.Context, sql string, id string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("updating user %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Mobile, &u.PasswordHash,
		&u.Role, &u.Blocked, &u.Address, &u.Wishlist, &u.RefreshToken, &u.ResetTokenHash,
		&u.ResetTokenExpires, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}
