package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/feed-import/internal/domain/product"
)

const (
	findProductByGTINSQL = `SELECT id, parent_id, key, gtin, name, date, image_id, published, created_at, updated_at
		FROM products
		WHERE gtin = $1
		  AND ($2::bigint = 0 OR parent_id = $2)
		  AND ($3::boolean OR published)
		ORDER BY id
		LIMIT 1`

	upsertProductSQL = `INSERT INTO products (parent_id, key, gtin, name, date, image_id, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (gtin) DO UPDATE SET
			name       = EXCLUDED.name,
			date       = EXCLUDED.date,
			image_id   = EXCLUDED.image_id,
			updated_at = now()
		RETURNING id, created_at, updated_at`

	insertObjectVersionSQL = `INSERT INTO versions (cid, ctype, version_count)
		SELECT $1, 'object', COALESCE(MAX(version_count), 0) + 1
		FROM versions WHERE cid = $1 AND ctype = 'object'`
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

// FindByGTIN returns the product with the given GTIN, or product.ErrNotFound.
func (r *ProductRepository) FindByGTIN(ctx context.Context, gtin string, opts product.FindOptions) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, findProductByGTINSQL, gtin, opts.ParentID, opts.IncludeUnpublished)
	if err != nil {
		return nil, fmt.Errorf("finding product %q: %w", gtin, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("finding product %q: %w", gtin, err)
	}
	return &p, nil
}

// Save upserts p keyed by GTIN and appends an object version row. The
// generated id and timestamps are written back to p.
func (r *ProductRepository) Save(ctx context.Context, p *product.Product) error {
	var date *time.Time
	if !p.Date.IsZero() {
		date = &p.Date
	}

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, upsertProductSQL,
			p.ParentID, p.Key, p.GTIN, p.Name, date, p.ImageID, p.Published,
		).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return fmt.Errorf("upserting product %q: %w", p.GTIN, err)
		}

		if _, err := tx.Exec(ctx, insertObjectVersionSQL, p.ID); err != nil {
			return fmt.Errorf("recording version of product %q: %w", p.GTIN, err)
		}
		return nil
	})
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p    product.Product
		date *time.Time
	)
	err := row.Scan(
		&p.ID, &p.ParentID, &p.Key, &p.GTIN, &p.Name, &date,
		&p.ImageID, &p.Published, &p.CreatedAt, &p.UpdatedAt,
	)
	if date != nil {
		p.Date = date.UTC()
	}
	return p, err
}
