package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/averix/storefront/internal/domain/cart"
)

const cartColumns = `id, user_id, lines, cart_total, discounted_total, created_at, updated_at`

const (
	deleteCartByUserSQL = `DELETE FROM carts WHERE user_id = $1 RETURNING ` + cartColumns

	insertCartSQL = `INSERT INTO carts (id, user_id, lines, cart_total)
		VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`

	getCartByUserSQL = `SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1`

	setDiscountedTotalSQL = `UPDATE carts SET discounted_total = $2, updated_at = now() WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
// Cart lines are stored as a JSONB document, preserving line order.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Replace deletes any existing cart for c.UserID and inserts c, in one
// transaction. The previous cart is never visible alongside the new one.
func (r *CartRepository) Replace(ctx context.Context, c *cart.Cart) error {
	linesJSON, err := json.Marshal(c.Lines)
	if err != nil {
		return fmt.Errorf("marshaling cart lines: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning cart replace: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, c.UserID); err != nil {
		return fmt.Errorf("deleting previous cart: %w", err)
	}

	err = tx.QueryRow(ctx, insertCartSQL, c.ID, c.UserID, linesJSON, c.CartTotal).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting cart %q: %w", c.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing cart replace: %w", err)
	}
	return nil
}

// GetByUser returns the user's live cart, or cart.ErrNotFound.
func (r *CartRepository) GetByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, getCartByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting cart for user %q: %w", userID, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart for user %q: %w", userID, err)
	}
	return &c, nil
}

// DeleteByUser removes the user's cart and returns the deleted row.
func (r *CartRepository) DeleteByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, deleteCartByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("deleting cart for user %q: %w", userID, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("deleting cart for user %q: %w", userID, err)
	}
	return &c, nil
}

// SetDiscountedTotal persists the coupon-discounted total onto the cart.
func (r *CartRepository) SetDiscountedTotal(ctx context.Context, userID string, total decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, setDiscountedTotalSQL, userID, total)
	if err != nil {
		return fmt.Errorf("setting discounted total for user %q: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

func scanCart(row pgx.CollectableRow) (cart.Cart, error) {
	var (
		c         cart.Cart
		linesJSON []byte
	)
	err := row.Scan(
		&c.ID, &c.UserID, &linesJSON, &c.CartTotal, &c.DiscountedTotal,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(linesJSON, &c.Lines); err != nil {
		return c, fmt.Errorf("unmarshaling cart lines: %w", err)
	}
	return c, nil
}
