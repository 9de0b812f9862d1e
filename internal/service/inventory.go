package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/authz"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/slug"
)

// maxSlugAttempts bounds the retries made when a generated slug is taken.
const maxSlugAttempts = 3

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name        string
	Category    string
	Description string
	Price       decimal.Decimal
	StockCount  int
}

// InventoryService implements the product catalogue and stock operations.
type InventoryService struct {
	store     repository.Store
	inventory *InventoryManager
	cache     ProductCache
	producer  EventPublisher
	observer  Observer
	logger    *slog.Logger
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(
	store repository.Store,
	inventory *InventoryManager,
	cache ProductCache,
	producer EventPublisher,
	observer Observer,
	logger *slog.Logger,
) *InventoryService {
	return &InventoryService{
		store:     store,
		inventory: inventory,
		cache:     cache,
		producer:  producer,
		observer:  observer,
		logger:    logger,
	}
}

// CreateProduct adds a product to the catalogue. The slug is derived from
// the name and gets a short suffix when another product already uses it.
func (s *InventoryService) CreateProduct(ctx context.Context, p *authz.Principal, in CreateProductInput) (*domain.Product, error) {
	if err := authz.Authorize(p, authz.ProductCreate, ""); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if in.Category == "" {
		return nil, apperrors.InvalidInput("category is required")
	}
	if err := domain.ValidatePrice(in.Price); err != nil {
		return nil, err
	}
	if err := domain.ValidateStock(in.StockCount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Slug:        slug.Generate(in.Name),
		Category:    in.Category,
		Description: in.Description,
		Price:       in.Price,
		StockCount:  in.StockCount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if product.Slug == "" {
		product.Slug = product.ID[:8]
	}

	base := product.Slug
	var err error
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		if attempt > 0 {
			product.Slug = slug.WithSuffix(base, uuid.New().String()[:6])
		}
		err = s.store.Products().Create(ctx, product)
		if !errors.Is(err, apperrors.ErrAlreadyExists) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.publishInventoryUpdated(ctx, product)

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
		slog.Int("stock_count", product.StockCount),
	)

	return product, nil
}

// GetProduct returns a product, served from the cache when possible.
func (s *InventoryService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	cached, ok, err := s.cache.Get(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "product cache read failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}
	if ok {
		return cached, nil
	}

	product, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", notFound(err, "product", id))
	}

	if err := s.cache.Set(ctx, product); err != nil {
		s.logger.WarnContext(ctx, "product cache write failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
		return product, nil
	}

	return s.verifyCached(ctx, product)
}

// verifyCached re-reads a product just written to the cache. A write that
// committed and invalidated between the first read and the cache write would
// otherwise leave the old row cached until the TTL expires.
func (s *InventoryService) verifyCached(ctx context.Context, cached *domain.Product) (*domain.Product, error) {
	fresh, err := s.store.Products().GetByID(ctx, cached.ID)
	if err == nil && fresh.UpdatedAt.Equal(cached.UpdatedAt) {
		return cached, nil
	}

	if invErr := s.cache.Invalidate(ctx, cached.ID); invErr != nil {
		logSideEffect(ctx, s.logger, "failed to invalidate stale product cache entry", invErr,
			slog.String("product_id", cached.ID),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", notFound(err, "product", cached.ID))
	}
	s.logger.DebugContext(ctx, "dropped stale product cache entry", slog.String("product_id", cached.ID))
	return fresh, nil
}

// GetProductBySlug returns the product with the given slug.
func (s *InventoryService) GetProductBySlug(ctx context.Context, productSlug string) (*domain.Product, error) {
	product, err := s.store.Products().GetBySlug(ctx, productSlug)
	if err != nil {
		return nil, fmt.Errorf("get product by slug: %w", notFound(err, "product", productSlug))
	}
	return product, nil
}

// ListProducts returns a page of products, optionally narrowed to a category.
func (s *InventoryService) ListProducts(ctx context.Context, category string, params pagination.Params) (pagination.Result[domain.Product], error) {
	products, total, err := s.store.Products().List(ctx, domain.ProductFilter{
		Category: strings.TrimSpace(category),
		Page:     params.Page,
		PerPage:  params.PerPage,
	})
	if err != nil {
		return pagination.Result[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	return pagination.NewResult(products, total, params), nil
}

// UpdateProduct applies a partial update to a product.
func (s *InventoryService) UpdateProduct(ctx context.Context, p *authz.Principal, id string, patch domain.ProductPatch) (*domain.Product, error) {
	if err := authz.Authorize(p, authz.ProductUpdate, ""); err != nil {
		return nil, err
	}

	product, err := s.mutate(ctx, opProductUpdate, func(ctx context.Context, ledger repository.Ledger) (*domain.Product, error) {
		return s.inventory.Update(ctx, ledger, id, patch)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
	)
	return product, nil
}

// DeleteProduct removes a product. Recorded sales keep their snapshot.
func (s *InventoryService) DeleteProduct(ctx context.Context, p *authz.Principal, id string) error {
	if err := authz.Authorize(p, authz.ProductDelete, ""); err != nil {
		return err
	}

	if err := s.store.Products().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if err := s.cache.Invalidate(ctx, id); err != nil {
		logSideEffect(ctx, s.logger, "failed to invalidate product cache", err,
			slog.String("product_id", id),
		)
	}
	if err := s.producer.PublishProductDeleted(ctx, id); err != nil {
		logSideEffect(ctx, s.logger, "failed to publish product.deleted event", err,
			slog.String("product_id", id),
		)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
	)
	return nil
}

// AddStock increases a product's stock by delta.
func (s *InventoryService) AddStock(ctx context.Context, p *authz.Principal, id string, delta int) (*domain.Product, error) {
	if err := authz.Authorize(p, authz.StockAdd, ""); err != nil {
		return nil, err
	}

	product, err := s.mutate(ctx, opStockAdd, func(ctx context.Context, ledger repository.Ledger) (*domain.Product, error) {
		return s.inventory.AddStock(ctx, ledger, id, delta)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "stock added",
		slog.String("product_id", product.ID),
		slog.Int("delta", delta),
		slog.Int("stock_count", product.StockCount),
	)
	return product, nil
}

// DeductStock removes quantity units from a product's stock.
func (s *InventoryService) DeductStock(ctx context.Context, p *authz.Principal, id string, quantity int) (*domain.Product, error) {
	if err := authz.Authorize(p, authz.StockDeduct, ""); err != nil {
		return nil, err
	}

	product, err := s.mutate(ctx, opStockDeduct, func(ctx context.Context, ledger repository.Ledger) (*domain.Product, error) {
		return s.inventory.DeductStock(ctx, ledger, id, quantity)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "stock deducted",
		slog.String("product_id", product.ID),
		slog.Int("quantity", quantity),
		slog.Int("stock_count", product.StockCount),
	)
	return product, nil
}

// mutate runs step in an observed unit of work, then evicts the cached
// product and announces the change.
func (s *InventoryService) mutate(
	ctx context.Context,
	operation string,
	step func(ctx context.Context, ledger repository.Ledger) (*domain.Product, error),
) (*domain.Product, error) {
	var product *domain.Product
	err := s.observer.Observe(ctx, operation, func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(ctx context.Context, ledger repository.Ledger) error {
			p, err := step(ctx, ledger)
			if err != nil {
				return err
			}
			product = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, product.ID); err != nil {
		logSideEffect(ctx, s.logger, "failed to invalidate product cache", err,
			slog.String("product_id", product.ID),
		)
	}
	s.publishInventoryUpdated(ctx, product)

	return product, nil
}

func (s *InventoryService) publishInventoryUpdated(ctx context.Context, product *domain.Product) {
	if err := s.producer.PublishInventoryUpdated(ctx, product); err != nil {
		logSideEffect(ctx, s.logger, "failed to publish inventory.updated event", err,
			slog.String("product_id", product.ID),
		)
	}
}
