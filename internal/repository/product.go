package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/averix/storefront/internal/domain/product"
)

const productColumns = `id, name, slug, description, brand, category, color, price, quantity, sold, created_at`

const (
	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY name`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	createProductSQL = `INSERT INTO products (id, name, slug, description, brand, category, color, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	adjustStockSQL = `UPDATE products SET quantity = quantity - $2, sold = sold + $2 WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by name.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create persists a new catalog product.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, createProductSQL,
		p.ID, p.Name, p.Slug, p.Description, p.Brand, p.Category, p.Color, p.Price, p.Quantity,
	)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// AdjustStock applies every adjustment in a single pgx batch on one
// connection. Each UPDATE is individually atomic; the batch is not a
// transaction, matching the bulk-write semantics of the checkout flow.
func (r *ProductRepository) AdjustStock(ctx context.Context, adjustments []product.StockAdjustment) error {
	if len(adjustments) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, adj := range adjustments {
		batch.Queue(adjustStockSQL, adj.ProductID, adj.Count)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, adj := range adjustments {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("adjusting stock for product %q: %w", adj.ProductID, err)
		}
	}
	return results.Close()
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Brand, &p.Category,
		&p.Color, &p.Price, &p.Quantity, &p.Sold, &p.CreatedAt,
	)
	return p, err
}
