package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/authz"
	"github.com/utafrali/storefront/internal/cache"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// MaxIdempotencyKeyLength bounds the Idempotency-Key header value.
const MaxIdempotencyKeyLength = 255

// MakeSaleInput holds the parameters of a purchase. Username names the
// buying customer; it defaults to the caller.
type MakeSaleInput struct {
	Username       string
	ProductID      string
	Quantity       int
	IdempotencyKey string
}

// SaleService coordinates purchases: one unit of work debits the wallet,
// decrements the stock and records the sale.
type SaleService struct {
	store     repository.Store
	wallet    *WalletManager
	inventory *InventoryManager
	idem      SaleIdempotency
	cache     ProductCache
	producer  EventPublisher
	observer  Observer
	logger    *slog.Logger
}

// NewSaleService creates a new sale service.
func NewSaleService(
	store repository.Store,
	wallet *WalletManager,
	inventory *InventoryManager,
	idem SaleIdempotency,
	cache ProductCache,
	producer EventPublisher,
	observer Observer,
	logger *slog.Logger,
) *SaleService {
	return &SaleService{
		store:     store,
		wallet:    wallet,
		inventory: inventory,
		idem:      idem,
		cache:     cache,
		producer:  producer,
		observer:  observer,
		logger:    logger,
	}
}

// MakeSale sells quantity units of a product to the customer. The boolean is
// true when an earlier sale was replayed for the same idempotency key.
func (s *SaleService) MakeSale(ctx context.Context, p *authz.Principal, in MakeSaleInput) (*domain.Sale, bool, error) {
	if p != nil && in.Username == "" {
		in.Username = p.Username
	}
	if err := authz.Authorize(p, authz.SaleCreate, in.Username); err != nil {
		return nil, false, err
	}
	if len(in.IdempotencyKey) > MaxIdempotencyKeyLength {
		return nil, false, apperrors.InvalidInput("idempotency key must be at most 255 characters")
	}

	if in.IdempotencyKey != "" {
		replay, err := s.reserveKey(ctx, p, in.IdempotencyKey)
		if err != nil || replay != nil {
			return replay, replay != nil, err
		}
	}

	sale, err := s.makeSale(ctx, in)
	if err != nil {
		if in.IdempotencyKey != "" {
			if relErr := s.idem.Release(ctx, p.CustomerID, in.IdempotencyKey); relErr != nil {
				logSideEffect(ctx, s.logger, "failed to release idempotency key", relErr,
					slog.String("customer_id", p.CustomerID),
				)
			}
		}
		return nil, false, err
	}

	if in.IdempotencyKey != "" {
		if err := s.idem.Complete(ctx, p.CustomerID, in.IdempotencyKey, sale.ID); err != nil {
			logSideEffect(ctx, s.logger, "failed to record idempotency key", err,
				slog.String("sale_id", sale.ID),
			)
		}
	}

	if err := s.cache.Invalidate(ctx, sale.ProductID); err != nil {
		logSideEffect(ctx, s.logger, "failed to invalidate product cache", err,
			slog.String("product_id", sale.ProductID),
		)
	}
	if err := s.producer.PublishSaleCompleted(ctx, sale); err != nil {
		logSideEffect(ctx, s.logger, "failed to publish sale.completed event", err,
			slog.String("sale_id", sale.ID),
		)
	}

	s.logger.InfoContext(ctx, "sale completed",
		slog.String("sale_id", sale.ID),
		slog.String("customer_id", sale.CustomerID),
		slog.String("product_id", sale.ProductID),
		slog.Int("quantity", sale.Quantity),
		slog.String("total_price", sale.TotalPrice.StringFixed(domain.MoneyPlaces)),
	)

	return sale, false, nil
}

// makeSale runs the purchase in a single unit of work. The customer row is
// always locked before the product row.
func (s *SaleService) makeSale(ctx context.Context, in MakeSaleInput) (*domain.Sale, error) {
	var sale *domain.Sale

	err := s.observer.Observe(ctx, opMakeSale, func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(ctx context.Context, ledger repository.Ledger) error {
			customer, err := s.wallet.lock(ctx, ledger, in.Username)
			if err != nil {
				return err
			}

			product, err := s.inventory.lock(ctx, ledger, in.ProductID)
			if err != nil {
				return err
			}

			if in.Quantity <= 0 {
				return apperrors.InvalidQuantity("quantity must be greater than zero")
			}
			if !product.InStock(in.Quantity) {
				return apperrors.InsufficientStock(product.ID, product.StockCount, in.Quantity)
			}

			total := domain.SaleTotal(product.Price, in.Quantity)
			if customer.WalletBalance.LessThan(total) {
				return apperrors.InsufficientBalance(customer.WalletBalance, total)
			}

			newSale := domain.NewSale(customer, product, in.Quantity)

			if err := s.wallet.debit(ctx, ledger, customer, total); err != nil {
				return err
			}
			if err := s.inventory.take(ctx, ledger, product, in.Quantity); err != nil {
				return err
			}
			if err := ledger.Sales().Create(ctx, newSale); err != nil {
				return fmt.Errorf("record sale: %w", err)
			}

			sale = newSale
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// reserveKey claims an idempotency key. It returns the earlier sale when the
// key has already completed.
func (s *SaleService) reserveKey(ctx context.Context, p *authz.Principal, key string) (*domain.Sale, error) {
	res, err := s.idem.Reserve(ctx, p.CustomerID, key)
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w: %w", apperrors.ErrServiceUnavail, err)
	}

	switch res.State {
	case cache.InFlight:
		return nil, apperrors.Conflict("a request with this idempotency key is still in progress", nil)
	case cache.Completed:
		sale, err := s.store.Sales().GetByID(ctx, res.SaleID)
		if err != nil {
			return nil, fmt.Errorf("load replayed sale: %w", notFound(err, "sale", res.SaleID))
		}
		s.logger.InfoContext(ctx, "sale replayed for idempotency key",
			slog.String("sale_id", sale.ID),
			slog.String("customer_id", p.CustomerID),
		)
		return sale, nil
	default:
		return nil, nil
	}
}

// GetSale returns a sale visible to its buyer or an admin.
func (s *SaleService) GetSale(ctx context.Context, p *authz.Principal, id string) (*domain.Sale, error) {
	if p == nil {
		return nil, apperrors.Unauthorized("authentication required")
	}

	sale, err := s.store.Sales().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", notFound(err, "sale", id))
	}

	// Ownership is decided by customer id; a username freed by a deleted
	// account may be registered again.
	var owner string
	if sale.CustomerID == p.CustomerID {
		owner = p.Username
	}
	if err := authz.Authorize(p, authz.SaleRead, owner); err != nil {
		return nil, err
	}
	return sale, nil
}

// PurchaseHistory returns the caller's sales, newest first.
func (s *SaleService) PurchaseHistory(ctx context.Context, p *authz.Principal, params pagination.Params) (pagination.Result[domain.Sale], error) {
	var owner string
	if p != nil {
		owner = p.Username
	}
	if err := authz.Authorize(p, authz.SaleRead, owner); err != nil {
		return pagination.Result[domain.Sale]{}, err
	}

	sales, total, err := s.store.Sales().ListByCustomer(ctx, p.CustomerID, params.Page, params.PerPage)
	if err != nil {
		return pagination.Result[domain.Sale]{}, fmt.Errorf("purchase history: %w", err)
	}

	return pagination.NewResult(sales, total, params), nil
}
