package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/authz"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/pagination"
)

// WishlistService manages a customer's wishlist.
type WishlistService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewWishlistService creates a new wishlist service.
func NewWishlistService(store repository.Store, logger *slog.Logger) *WishlistService {
	return &WishlistService{
		store:  store,
		logger: logger,
	}
}

func authorizeWishlist(p *authz.Principal) error {
	var owner string
	if p != nil {
		owner = p.Username
	}
	return authz.Authorize(p, authz.WishlistManage, owner)
}

// List returns a page of the caller's wishlist.
func (s *WishlistService) List(ctx context.Context, p *authz.Principal, params pagination.Params) (pagination.Result[domain.WishlistItem], error) {
	if err := authorizeWishlist(p); err != nil {
		return pagination.Result[domain.WishlistItem]{}, err
	}

	items, total, err := s.store.Wishlists().List(ctx, p.CustomerID, params.Page, params.PerPage)
	if err != nil {
		return pagination.Result[domain.WishlistItem]{}, fmt.Errorf("list wishlist: %w", err)
	}
	return pagination.NewResult(items, total, params), nil
}

// Add puts a product on the caller's wishlist. It reports false when the
// product was already there.
func (s *WishlistService) Add(ctx context.Context, p *authz.Principal, productID string) (bool, error) {
	if err := authorizeWishlist(p); err != nil {
		return false, err
	}

	added, err := s.store.Wishlists().Add(ctx, p.CustomerID, productID)
	if err != nil {
		return false, fmt.Errorf("add to wishlist: %w", err)
	}

	if added {
		s.logger.InfoContext(ctx, "product added to wishlist",
			slog.String("customer_id", p.CustomerID),
			slog.String("product_id", productID),
		)
	}
	return added, nil
}

// Remove takes a product off the caller's wishlist.
func (s *WishlistService) Remove(ctx context.Context, p *authz.Principal, productID string) error {
	if err := authorizeWishlist(p); err != nil {
		return err
	}

	if err := s.store.Wishlists().Remove(ctx, p.CustomerID, productID); err != nil {
		return fmt.Errorf("remove from wishlist: %w", err)
	}

	s.logger.InfoContext(ctx, "product removed from wishlist",
		slog.String("customer_id", p.CustomerID),
		slog.String("product_id", productID),
	)
	return nil
}
