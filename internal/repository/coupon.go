package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/averix/storefront/internal/domain/coupon"
)

const couponColumns = `id, name, discount, expires_at, created_at`

const (
	findCouponByNameSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE name = $1`

	createCouponSQL = `INSERT INTO coupons (id, name, discount, expires_at)
		VALUES ($1, $2, $3, $4)`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY name`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`

	couponNamesSQL = `SELECT name FROM coupons`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByName looks up a coupon by its exact name.
// Returns coupon.ErrInvalidCoupon when no such coupon exists.
func (r *CouponRepository) FindByName(ctx context.Context, name string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findCouponByNameSQL, name)
	if err != nil {
		return nil, fmt.Errorf("finding coupon %q: %w", name, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, fmt.Errorf("finding coupon %q: %w", name, err)
	}
	return &c, nil
}

// Create persists a new coupon.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, createCouponSQL, c.ID, c.Name, c.Discount, c.ExpiresAt)
	if err != nil {
		return fmt.Errorf("creating coupon %q: %w", c.Name, err)
	}
	return nil
}

// List returns all coupons ordered by name.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// Delete removes a coupon by identifier.
// Returns coupon.ErrNotFound when no row matches the id.
func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Names returns every coupon name.
func (r *CouponRepository) Names(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, couponNamesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupon names: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var name string
		err := row.Scan(&name)
		return name, err
	})
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(&c.ID, &c.Name, &c.Discount, &c.ExpiresAt, &c.CreatedAt)
	return c, err
}
