package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// txOptions is used for every unit of work. Row locks taken with
// SELECT ... FOR UPDATE give per-row serializability at READ COMMITTED.
var txOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// ledger binds every repository to one database handle.
type ledger struct {
	customers *CustomerRepository
	products  *ProductRepository
	sales     *SaleRepository
	reviews   *ReviewRepository
	wishlists *WishlistRepository
}

func newLedger(db database.DBTX) ledger {
	return ledger{
		customers: NewCustomerRepository(db),
		products:  NewProductRepository(db),
		sales:     NewSaleRepository(db),
		reviews:   NewReviewRepository(db),
		wishlists: NewWishlistRepository(db),
	}
}

func (l *ledger) Customers() repository.CustomerRepository { return l.customers }
func (l *ledger) Products() repository.ProductRepository   { return l.products }
func (l *ledger) Sales() repository.SaleRepository         { return l.sales }
func (l *ledger) Reviews() repository.ReviewRepository     { return l.reviews }
func (l *ledger) Wishlists() repository.WishlistRepository { return l.wishlists }

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLockTimeout bounds how long a unit of work waits for a row lock.
// Zero leaves the server default in place.
func WithLockTimeout(d time.Duration) StoreOption {
	return func(s *Store) { s.lockTimeout = d }
}

// Store implements repository.Store on PostgreSQL.
type Store struct {
	ledger
	db          database.TxBeginner
	lockTimeout time.Duration
}

// NewStore creates a Store on db, usually a *pgxpool.Pool.
func NewStore(db database.TxBeginner, opts ...StoreOption) *Store {
	s := &Store{ledger: newLedger(db), db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithinTx runs fn in a READ COMMITTED transaction. Serialization failures,
// deadlocks and lock timeouts are returned as Conflict errors so callers can
// retry the whole operation against fresh state.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, l repository.Ledger) error) error {
	err := database.WithTx(ctx, s.db, txOptions, func(tx pgx.Tx) error {
		if s.lockTimeout > 0 {
			ms := fmt.Sprintf("%dms", s.lockTimeout.Milliseconds())
			if _, err := tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", ms); err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
		}
		l := newLedger(tx)
		return fn(ctx, &l)
	})
	if err != nil && database.IsConcurrencyFailure(err) && !errors.Is(err, apperrors.ErrConflict) {
		return apperrors.Conflict("the resource was modified concurrently, retry the request", err)
	}
	return err
}
