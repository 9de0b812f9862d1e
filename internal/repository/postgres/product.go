package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

const productColumns = `id, name, slug, category, description, price_cents, stock_count, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Slug,
		p.Category,
		p.Description,
		domain.ToCents(p.Price),
		p.StockCount,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProduct(r.db.QueryRow(ctx, query, id))
}

// GetBySlug retrieves a product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`
	return scanProduct(r.db.QueryRow(ctx, query, slug))
}

// Lock retrieves a product with SELECT ... FOR UPDATE. It must run inside a
// transaction; the lock is held until commit or rollback.
func (r *ProductRepository) Lock(ctx context.Context, id string) (p *domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	ctx, end := database.TraceQuery(ctx, "LockProduct", query)
	defer func() { end(err) }()

	return scanProduct(r.db.QueryRow(ctx, query, id))
}

// Update persists every mutable field of the product.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, slug = $2, category = $3, description = $4, price_cents = $5,
		    stock_count = $6, updated_at = $7
		WHERE id = $8`

	ct, err := r.db.Exec(ctx, query,
		p.Name,
		p.Slug,
		p.Category,
		p.Description,
		domain.ToCents(p.Price),
		p.StockCount,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		if database.IsCheckViolation(err) || database.IsOutOfRange(err) {
			return apperrors.InvalidInput("price or stock_count is out of range")
		}
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// UpdateStock sets the stock count of a product.
func (r *ProductRepository) UpdateStock(ctx context.Context, id string, stock int) (err error) {
	query := `UPDATE products SET stock_count = $1, updated_at = $2 WHERE id = $3`

	ctx, end := database.TraceQuery(ctx, "UpdateStock", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, stock, time.Now().UTC(), id)
	if err != nil {
		if database.IsCheckViolation(err) || database.IsOutOfRange(err) {
			return apperrors.InvalidQuantity(fmt.Sprintf("stock_count %d is out of range", stock))
		}
		return fmt.Errorf("update stock: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM products WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// List returns a page of products ordered by name, optionally restricted to
// one category, together with the total number of matches.
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	params := pagination.New(filter.Page, filter.PerPage)

	query := `
		SELECT ` + productColumns + `,
			   count(*) OVER() AS total_count
		FROM products
		WHERE ($1 = '' OR category = $1)
		ORDER BY name ASC, id ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, filter.Category, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)

	for rows.Next() {
		var (
			p          domain.Product
			priceCents int64
		)
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Slug,
			&p.Category,
			&p.Description,
			&priceCents,
			&p.StockCount,
			&p.CreatedAt,
			&p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		p.Price = domain.FromCents(priceCents)
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, totalCount, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p          domain.Product
		priceCents int64
	)

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Category,
		&p.Description,
		&priceCents,
		&p.StockCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	p.Price = domain.FromCents(priceCents)
	return &p, nil
}
