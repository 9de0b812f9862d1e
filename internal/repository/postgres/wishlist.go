package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// WishlistRepository implements repository.WishlistRepository using PostgreSQL.
type WishlistRepository struct {
	db database.DBTX
}

// NewWishlistRepository creates a new PostgreSQL-backed wishlist repository.
func NewWishlistRepository(db database.DBTX) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// Add inserts a product into the customer's wishlist.
// Uses ON CONFLICT DO NOTHING; the boolean reports whether a row was added.
func (r *WishlistRepository) Add(ctx context.Context, customerID, productID string) (bool, error) {
	query := `
		INSERT INTO wishlists (customer_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (customer_id, product_id) DO NOTHING`

	ct, err := r.db.Exec(ctx, query, customerID, productID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return false, apperrors.NotFound("product", productID)
		}
		return false, fmt.Errorf("add to wishlist: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

// Remove deletes a product from the customer's wishlist.
func (r *WishlistRepository) Remove(ctx context.Context, customerID, productID string) error {
	query := `DELETE FROM wishlists WHERE customer_id = $1 AND product_id = $2`

	ct, err := r.db.Exec(ctx, query, customerID, productID)
	if err != nil {
		return fmt.Errorf("remove from wishlist: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("wishlist item", productID)
	}

	return nil
}

// List returns a paginated list of wishlist items for the customer and the total count.
func (r *WishlistRepository) List(ctx context.Context, customerID string, page, perPage int) ([]domain.WishlistItem, int, error) {
	countQuery := `SELECT COUNT(*) FROM wishlists WHERE customer_id = $1`

	var total int
	if err := r.db.QueryRow(ctx, countQuery, customerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count wishlist items: %w", err)
	}

	params := pagination.New(page, perPage)
	query := `
		SELECT customer_id, product_id, created_at
		FROM wishlists
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, customerID, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list wishlist items: %w", err)
	}
	defer rows.Close()

	items := []domain.WishlistItem{}
	for rows.Next() {
		var item domain.WishlistItem
		if err := rows.Scan(&item.CustomerID, &item.ProductID, &item.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan wishlist item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate wishlist rows: %w", err)
	}

	return items, total, nil
}
