package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/slug"
)

// InventoryManager is the only code that changes a product's stock. Every
// method runs against a Ledger bound to the caller's unit of work and locks
// the product row before reading it.
type InventoryManager struct{}

// NewInventoryManager creates an inventory manager.
func NewInventoryManager() *InventoryManager {
	return &InventoryManager{}
}

// AddStock increases the stock of productID by delta. A zero delta is
// accepted and leaves the stock unchanged. The result never exceeds
// domain.MaxStock.
func (m *InventoryManager) AddStock(ctx context.Context, ledger repository.Ledger, productID string, delta int) (*domain.Product, error) {
	if delta < 0 {
		return nil, apperrors.InvalidQuantity("quantity must not be negative")
	}
	if delta > domain.MaxStock {
		return nil, apperrors.InvalidQuantity(fmt.Sprintf("quantity must not exceed %d", domain.MaxStock))
	}

	product, err := m.lock(ctx, ledger, productID)
	if err != nil {
		return nil, err
	}

	if delta == 0 {
		return product, nil
	}
	if delta > domain.MaxStock-product.StockCount {
		return nil, apperrors.InvalidQuantity(fmt.Sprintf(
			"stock of %d plus %d would exceed the maximum of %d", product.StockCount, delta, domain.MaxStock))
	}
	if err := m.setStock(ctx, ledger, product, product.StockCount+delta); err != nil {
		return nil, err
	}
	return product, nil
}

// DeductStock removes quantity units from productID.
func (m *InventoryManager) DeductStock(ctx context.Context, ledger repository.Ledger, productID string, quantity int) (*domain.Product, error) {
	if quantity <= 0 {
		return nil, apperrors.InvalidQuantity("quantity must be greater than zero")
	}
	if quantity > domain.MaxStock {
		return nil, apperrors.InvalidQuantity(fmt.Sprintf("quantity must not exceed %d", domain.MaxStock))
	}

	product, err := m.lock(ctx, ledger, productID)
	if err != nil {
		return nil, err
	}

	if err := m.take(ctx, ledger, product, quantity); err != nil {
		return nil, err
	}
	return product, nil
}

// Update applies a partial patch to productID. Nil patch fields are left
// unchanged.
func (m *InventoryManager) Update(ctx context.Context, ledger repository.Ledger, productID string, patch domain.ProductPatch) (*domain.Product, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	product, err := m.lock(ctx, ledger, productID)
	if err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		return product, nil
	}

	previousSlug := product.Slug
	patch.Apply(product)
	product.UpdatedAt = time.Now().UTC()

	if product.Slug != previousSlug {
		if err := m.claimSlug(ctx, ledger, product); err != nil {
			return nil, err
		}
	}

	if err := ledger.Products().Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return product, nil
}

func (m *InventoryManager) lock(ctx context.Context, ledger repository.Ledger, productID string) (*domain.Product, error) {
	product, err := ledger.Products().Lock(ctx, productID)
	if err != nil {
		return nil, notFound(err, "product", productID)
	}
	return product, nil
}

// claimSlug suffixes the regenerated slug of a renamed product when another
// product already uses it.
func (m *InventoryManager) claimSlug(ctx context.Context, ledger repository.Ledger, product *domain.Product) error {
	other, err := ledger.Products().GetBySlug(ctx, product.Slug)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check product slug: %w", err)
	case other.ID != product.ID:
		product.Slug = slug.WithSuffix(product.Slug, uuid.New().String()[:6])
	}
	return nil
}

// take removes quantity units from a product row the caller has locked.
func (m *InventoryManager) take(ctx context.Context, ledger repository.Ledger, product *domain.Product, quantity int) error {
	if !product.InStock(quantity) {
		return apperrors.InsufficientStock(product.ID, product.StockCount, quantity)
	}
	return m.setStock(ctx, ledger, product, product.StockCount-quantity)
}

func (m *InventoryManager) setStock(ctx context.Context, ledger repository.Ledger, product *domain.Product, stock int) error {
	if err := ledger.Products().UpdateStock(ctx, product.ID, stock); err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	product.StockCount = stock
	product.UpdatedAt = time.Now().UTC()
	return nil
}
