package http

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/utafrali/storefront/internal/authz"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ============================================================================
// Mock Services
// ============================================================================

type mockCustomerService struct {
	mock.Mock
}

func (m *mockCustomerService) ResolvePrincipal(ctx context.Context, claims *middleware.Claims) (*authz.Principal, error) {
	args := m.Called(ctx, claims)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authz.Principal), args.Error(1)
}

func (m *mockCustomerService) Register(ctx context.Context, in service.RegisterInput) (*domain.Customer, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *mockCustomerService) Login(ctx context.Context, username, password string) (*service.LoginResult, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

func (m *mockCustomerService) GetMe(ctx context.Context, p *authz.Principal) (*domain.Customer, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *mockCustomerService) GetByUsername(ctx context.Context, p *authz.Principal, username string) (*domain.Customer, error) {
	args := m.Called(ctx, p, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *mockCustomerService) UpdateProfile(ctx context.Context, p *authz.Principal, in service.UpdateProfileInput) (*domain.Customer, error) {
	args := m.Called(ctx, p, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *mockCustomerService) DeleteSelf(ctx context.Context, p *authz.Principal) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

type mockWalletService struct {
	mock.Mock
}

func (m *mockWalletService) Charge(ctx context.Context, p *authz.Principal, username string, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, p, username, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockWalletService) Deduct(ctx context.Context, p *authz.Principal, username string, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, p, username, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockWalletService) Balance(ctx context.Context, p *authz.Principal, username string) (decimal.Decimal, error) {
	args := m.Called(ctx, p, username)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type mockSaleService struct {
	mock.Mock
}

func (m *mockSaleService) MakeSale(ctx context.Context, p *authz.Principal, in service.MakeSaleInput) (*domain.Sale, bool, error) {
	args := m.Called(ctx, p, in)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Sale), args.Bool(1), args.Error(2)
}

func (m *mockSaleService) GetSale(ctx context.Context, p *authz.Principal, id string) (*domain.Sale, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Sale), args.Error(1)
}

func (m *mockSaleService) PurchaseHistory(ctx context.Context, p *authz.Principal, params pagination.Params) (pagination.Result[domain.Sale], error) {
	args := m.Called(ctx, p, params)
	return args.Get(0).(pagination.Result[domain.Sale]), args.Error(1)
}

type mockInventoryService struct {
	mock.Mock
}

func (m *mockInventoryService) CreateProduct(ctx context.Context, p *authz.Principal, in service.CreateProductInput) (*domain.Product, error) {
	args := m.Called(ctx, p, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockInventoryService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockInventoryService) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockInventoryService) ListProducts(ctx context.Context, category string, params pagination.Params) (pagination.Result[domain.Product], error) {
	args := m.Called(ctx, category, params)
	return args.Get(0).(pagination.Result[domain.Product]), args.Error(1)
}

func (m *mockInventoryService) UpdateProduct(ctx context.Context, p *authz.Principal, id string, patch domain.ProductPatch) (*domain.Product, error) {
	args := m.Called(ctx, p, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockInventoryService) DeleteProduct(ctx context.Context, p *authz.Principal, id string) error {
	args := m.Called(ctx, p, id)
	return args.Error(0)
}

func (m *mockInventoryService) AddStock(ctx context.Context, p *authz.Principal, id string, delta int) (*domain.Product, error) {
	args := m.Called(ctx, p, id, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockInventoryService) DeductStock(ctx context.Context, p *authz.Principal, id string, quantity int) (*domain.Product, error) {
	args := m.Called(ctx, p, id, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

type mockReviewService struct {
	mock.Mock
}

func (m *mockReviewService) Submit(ctx context.Context, p *authz.Principal, in service.SubmitReviewInput) (*domain.Review, error) {
	args := m.Called(ctx, p, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewService) Update(ctx context.Context, p *authz.Principal, id string, patch domain.ReviewPatch) (*domain.Review, error) {
	args := m.Called(ctx, p, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewService) Delete(ctx context.Context, p *authz.Principal, id string) error {
	args := m.Called(ctx, p, id)
	return args.Error(0)
}

func (m *mockReviewService) ListByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	args := m.Called(ctx, productID)
	reviews, _ := args.Get(0).([]domain.Review)
	return reviews, args.Error(1)
}

func (m *mockReviewService) ListMine(ctx context.Context, p *authz.Principal) ([]domain.Review, error) {
	args := m.Called(ctx, p)
	reviews, _ := args.Get(0).([]domain.Review)
	return reviews, args.Error(1)
}

func (m *mockReviewService) Flag(ctx context.Context, p *authz.Principal, id string) (*domain.Review, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewService) Approve(ctx context.Context, p *authz.Principal, id string) (*domain.Review, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

type mockWishlistService struct {
	mock.Mock
}

func (m *mockWishlistService) List(ctx context.Context, p *authz.Principal, params pagination.Params) (pagination.Result[domain.WishlistItem], error) {
	args := m.Called(ctx, p, params)
	return args.Get(0).(pagination.Result[domain.WishlistItem]), args.Error(1)
}

func (m *mockWishlistService) Add(ctx context.Context, p *authz.Principal, productID string) (bool, error) {
	args := m.Called(ctx, p, productID)
	return args.Bool(0), args.Error(1)
}

func (m *mockWishlistService) Remove(ctx context.Context, p *authz.Principal, productID string) error {
	args := m.Called(ctx, p, productID)
	return args.Error(0)
}
