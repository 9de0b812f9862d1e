// Package service holds the storefront's business logic. The wallet and
// inventory managers apply every balance and stock change inside a unit of
// work; the services around them authorize the caller, open the unit of
// work and run post-commit side effects.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/cache"
	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// EventPublisher publishes domain events after a unit of work commits.
type EventPublisher interface {
	PublishSaleCompleted(ctx context.Context, sale *domain.Sale) error
	PublishWalletUpdated(ctx context.Context, customer *domain.Customer, operation string, amount decimal.Decimal) error
	PublishInventoryUpdated(ctx context.Context, product *domain.Product) error
	PublishProductDeleted(ctx context.Context, productID string) error
	PublishReviewSubmitted(ctx context.Context, review *domain.Review) error
}

// ProductCache is a read-through cache of single products.
type ProductCache interface {
	Get(ctx context.Context, id string) (*domain.Product, bool, error)
	Set(ctx context.Context, product *domain.Product) error
	Invalidate(ctx context.Context, id string) error
}

// SaleIdempotency tracks client-supplied idempotency keys for sales.
type SaleIdempotency interface {
	Reserve(ctx context.Context, customerID, key string) (cache.Reservation, error)
	Complete(ctx context.Context, customerID, key, saleID string) error
	Release(ctx context.Context, customerID, key string) error
}

// Observer wraps an atomic ledger step with tracing and metrics.
type Observer interface {
	Observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error
}

// Observed operation names.
const (
	opMakeSale      = "make_sale"
	opWalletCharge  = "wallet_charge"
	opWalletDeduct  = "wallet_deduct"
	opStockAdd      = "stock_add"
	opStockDeduct   = "stock_deduct"
	opProductUpdate = "product_update"
)

// notFound turns the bare ErrNotFound returned by repository lookups into a
// NotFound error naming the resource. Other errors pass through.
func notFound(err error, resource, id string) error {
	var appErr *apperrors.AppError
	if errors.Is(err, apperrors.ErrNotFound) && !errors.As(err, &appErr) {
		return apperrors.NotFound(resource, id)
	}
	return err
}

// logSideEffect logs a failed post-commit action. The request still succeeds.
func logSideEffect(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)+1)
	for _, a := range attrs {
		args = append(args, a)
	}
	args = append(args, slog.String("error", err.Error()))
	logger.ErrorContext(ctx, msg, args...)
}
