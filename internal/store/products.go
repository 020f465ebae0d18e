package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, title, slug, base_price, autoship_eligible, stock, active, created_at, updated_at`

func scanProduct(row interface{ Scan(dest ...any) error }) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.BasePrice, &p.AutoshipEligible, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetProduct returns a product by id.
func (q *Queries) GetProduct(ctx context.Context, id pgtype.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, mapRowErr(err)
	}
	return p, nil
}

// GetProductBySlug returns an active product by its slug.
func (q *Queries) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	row := q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1 AND active`, slug)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, mapRowErr(err)
	}
	return p, nil
}

// ListProductsParams bounds a product listing query.
type ListProductsParams struct {
	Limit  int32
	Offset int32
}

// ListProducts returns active products ordered by title.
func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE active ORDER BY title LIMIT $1 OFFSET $2`,
		arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountProducts returns the number of active products.
func (q *Queries) CountProducts(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM products WHERE active`).Scan(&total)
	return total, err
}

// CreateProductParams carries a new product row.
type CreateProductParams struct {
	Title            string
	Slug             string
	BasePrice        int64
	AutoshipEligible bool
	Stock            int64
}

// CreateProduct inserts a product and returns the stored row.
func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO products (title, slug, base_price, autoship_eligible, stock)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+productColumns,
		arg.Title, arg.Slug, arg.BasePrice, arg.AutoshipEligible, arg.Stock)
	p, err := scanProduct(row)
	if err != nil {
		if IsUniqueViolation(err) {
			return Product{}, ErrConflict
		}
		return Product{}, err
	}
	return p, nil
}
