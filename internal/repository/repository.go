package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
)

// CustomerRepository defines the interface for customer persistence operations.
type CustomerRepository interface {
	// Create inserts a new customer into the store.
	Create(ctx context.Context, customer *domain.Customer) error

	// GetByID retrieves a customer by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Customer, error)

	// GetByUsername retrieves a customer by their username.
	GetByUsername(ctx context.Context, username string) (*domain.Customer, error)

	// LockByUsername retrieves a customer and locks the row until the
	// surrounding transaction ends.
	LockByUsername(ctx context.Context, username string) (*domain.Customer, error)

	// UpdateBalance sets the wallet balance of a customer.
	UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error

	// UpdateProfile persists the profile fields and password hash of a customer.
	UpdateProfile(ctx context.Context, customer *domain.Customer) error

	// SetRole changes the stored role of a customer.
	SetRole(ctx context.Context, id, role string) error

	// Delete removes a customer from the store by their identifier.
	Delete(ctx context.Context, id string) error
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product into the store.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetBySlug retrieves a product by its URL slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// Lock retrieves a product and locks the row until the surrounding
	// transaction ends.
	Lock(ctx context.Context, id string) (*domain.Product, error)

	// Update persists every mutable field of the product.
	Update(ctx context.Context, product *domain.Product) error

	// UpdateStock sets the stock count of a product.
	UpdateStock(ctx context.Context, id string, stock int) error

	// Delete removes a product from the store by its identifier.
	Delete(ctx context.Context, id string) error

	// List returns a page of products matching the filter and the total count.
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)
}

// SaleRepository defines the interface for sale persistence. Sales are
// append-only; there is no update or delete.
type SaleRepository interface {
	// Create inserts a new sale record.
	Create(ctx context.Context, sale *domain.Sale) error

	// GetByID retrieves a sale by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Sale, error)

	// ListByCustomer returns a page of the customer's sales, newest first, and the total count.
	ListByCustomer(ctx context.Context, customerID string, page, perPage int) ([]domain.Sale, int, error)
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Create inserts a new review.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// Update persists rating, comment and status of a review.
	Update(ctx context.Context, review *domain.Review) error

	// Delete removes a review by its identifier.
	Delete(ctx context.Context, id string) error

	// ListByProduct returns the reviews of a product that are not flagged, newest first.
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)

	// ListByCustomer returns every review written by the customer, newest first.
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Review, error)
}

// WishlistRepository defines the interface for wishlist persistence operations.
type WishlistRepository interface {
	// Add inserts a product into the customer's wishlist. It reports false
	// when the pair was already present.
	Add(ctx context.Context, customerID, productID string) (bool, error)

	// Remove deletes a product from the customer's wishlist.
	Remove(ctx context.Context, customerID, productID string) error

	// List returns a paginated list of wishlist items for the customer and the total count.
	List(ctx context.Context, customerID string, page, perPage int) ([]domain.WishlistItem, int, error)
}

// Ledger groups the repositories that share one database handle. Inside
// Transactor.WithinTx every repository of the Ledger runs on the same
// transaction.
type Ledger interface {
	Customers() CustomerRepository
	Products() ProductRepository
	Sales() SaleRepository
	Reviews() ReviewRepository
	Wishlists() WishlistRepository
}

// Transactor runs a unit of work. fn receives a Ledger bound to a single
// transaction that is committed when fn returns nil and rolled back
// otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, ledger Ledger) error) error
}

// Store is a Ledger outside any transaction that can also open units of work.
type Store interface {
	Ledger
	Transactor
}
