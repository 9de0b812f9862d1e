package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const customerColumns = `id, username, password_hash, full_name, age, address, gender, marital_status, role, wallet_balance_cents, created_at, updated_at`

// CustomerRepository implements repository.CustomerRepository using PostgreSQL.
type CustomerRepository struct {
	db database.DBTX
}

// NewCustomerRepository creates a new PostgreSQL-backed customer repository.
func NewCustomerRepository(db database.DBTX) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Create inserts a new customer into the database.
func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	query := `
		INSERT INTO customers (` + customerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		c.ID,
		c.Username,
		c.PasswordHash,
		c.FullName,
		c.Age,
		c.Address,
		c.Gender,
		c.MaritalStatus,
		c.Role,
		domain.ToCents(c.WalletBalance),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("customer", "username", c.Username)
		}
		return fmt.Errorf("insert customer: %w", err)
	}

	return nil
}

// GetByID retrieves a customer by their ID.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	return r.scanCustomer(ctx, query, id)
}

// GetByUsername retrieves a customer by their username.
func (r *CustomerRepository) GetByUsername(ctx context.Context, username string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE username = $1`
	return r.scanCustomer(ctx, query, username)
}

// LockByUsername retrieves a customer with SELECT ... FOR UPDATE. It must run
// inside a transaction; the lock is held until commit or rollback.
func (r *CustomerRepository) LockByUsername(ctx context.Context, username string) (c *domain.Customer, err error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE username = $1 FOR UPDATE`

	ctx, end := database.TraceQuery(ctx, "LockCustomer", query)
	defer func() { end(err) }()

	return r.scanCustomer(ctx, query, username)
}

// UpdateBalance sets the wallet balance of a customer.
func (r *CustomerRepository) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) (err error) {
	query := `
		UPDATE customers
		SET wallet_balance_cents = $1, updated_at = $2
		WHERE id = $3`

	ctx, end := database.TraceQuery(ctx, "UpdateBalance", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, domain.ToCents(balance), time.Now().UTC(), id)
	if err != nil {
		if database.IsCheckViolation(err) || database.IsOutOfRange(err) {
			return apperrors.InvalidAmount(fmt.Sprintf("wallet balance %s is out of range", balance.StringFixed(domain.MoneyPlaces)))
		}
		return fmt.Errorf("update wallet balance: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("customer", id)
	}

	return nil
}

// UpdateProfile persists the profile fields and password hash of a customer.
func (r *CustomerRepository) UpdateProfile(ctx context.Context, c *domain.Customer) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE customers
		SET password_hash = $1, full_name = $2, age = $3, address = $4, gender = $5,
		    marital_status = $6, updated_at = $7
		WHERE id = $8`

	ct, err := r.db.Exec(ctx, query,
		c.PasswordHash,
		c.FullName,
		c.Age,
		c.Address,
		c.Gender,
		c.MaritalStatus,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("customer", c.ID)
	}

	return nil
}

// SetRole changes the stored role of a customer.
func (r *CustomerRepository) SetRole(ctx context.Context, id, role string) error {
	query := `UPDATE customers SET role = $1, updated_at = $2 WHERE id = $3`

	ct, err := r.db.Exec(ctx, query, role, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set customer role: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("customer", id)
	}

	return nil
}

// Delete removes a customer from the database by their ID. Reviews and
// wishlist entries cascade; sales are kept.
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM customers WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("customer", id)
	}

	return nil
}

// scanCustomer is a helper that executes a query expected to return a single customer row.
func (r *CustomerRepository) scanCustomer(ctx context.Context, query string, args ...any) (*domain.Customer, error) {
	var (
		c            domain.Customer
		balanceCents int64
	)

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&c.ID,
		&c.Username,
		&c.PasswordHash,
		&c.FullName,
		&c.Age,
		&c.Address,
		&c.Gender,
		&c.MaritalStatus,
		&c.Role,
		&balanceCents,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}

	c.WalletBalance = domain.FromCents(balanceCents)
	return &c, nil
}
