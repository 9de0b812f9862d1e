package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

const saleColumns = `id, customer_id, customer_username, product_id, product_name, quantity, unit_price_cents, total_price_cents, created_at`

// SaleRepository implements repository.SaleRepository using PostgreSQL.
type SaleRepository struct {
	db database.DBTX
}

// NewSaleRepository creates a new PostgreSQL-backed sale repository.
func NewSaleRepository(db database.DBTX) *SaleRepository {
	return &SaleRepository{db: db}
}

// Create inserts a new sale record.
func (r *SaleRepository) Create(ctx context.Context, s *domain.Sale) (err error) {
	query := `
		INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	ctx, end := database.TraceQuery(ctx, "InsertSale", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		s.ID,
		s.CustomerID,
		s.CustomerUsername,
		s.ProductID,
		s.ProductName,
		s.Quantity,
		domain.ToCents(s.UnitPrice),
		domain.ToCents(s.TotalPrice),
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	return nil
}

// GetByID retrieves a sale by its ID.
func (r *SaleRepository) GetByID(ctx context.Context, id string) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	var (
		s          domain.Sale
		unitCents  int64
		totalCents int64
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.CustomerID,
		&s.CustomerUsername,
		&s.ProductID,
		&s.ProductName,
		&s.Quantity,
		&unitCents,
		&totalCents,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	s.UnitPrice = domain.FromCents(unitCents)
	s.TotalPrice = domain.FromCents(totalCents)
	return &s, nil
}

// ListByCustomer returns a page of the customer's sales, newest first.
func (r *SaleRepository) ListByCustomer(ctx context.Context, customerID string, page, perPage int) ([]domain.Sale, int, error) {
	params := pagination.New(page, perPage)

	query := `
		SELECT ` + saleColumns + `,
			   count(*) OVER() AS total_count
		FROM sales
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, customerID, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var (
		sales      []domain.Sale
		totalCount int
	)

	for rows.Next() {
		var (
			s          domain.Sale
			unitCents  int64
			totalCents int64
		)
		if err := rows.Scan(
			&s.ID,
			&s.CustomerID,
			&s.CustomerUsername,
			&s.ProductID,
			&s.ProductName,
			&s.Quantity,
			&unitCents,
			&totalCents,
			&s.CreatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan sale row: %w", err)
		}
		s.UnitPrice = domain.FromCents(unitCents)
		s.TotalPrice = domain.FromCents(totalCents)
		sales = append(sales, s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate sale rows: %w", err)
	}

	if sales == nil {
		sales = []domain.Sale{}
	}

	return sales, totalCount, nil
}
