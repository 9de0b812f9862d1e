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

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/authz"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/middleware"
)

// MaxAge is the largest age accepted on a profile.
const MaxAge = 150

// RegisterInput holds the parameters for registering a new customer.
type RegisterInput struct {
	FullName      string
	Username      string
	Password      string
	Age           int
	Address       string
	Gender        string
	MaritalStatus string
}

// UpdateProfileInput holds a partial profile update. Nil fields are left unchanged.
type UpdateProfileInput struct {
	FullName      *string
	Age           *int
	Address       *string
	Gender        *string
	MaritalStatus *string
	Password      *string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int              `json:"expires_in"`
	Customer    *domain.Customer `json:"customer"`
}

// CustomerService implements registration, login and profile operations.
type CustomerService struct {
	store      repository.Store
	hasher     *auth.PasswordHasher
	jwtManager *auth.JWTManager
	logger     *slog.Logger
}

// NewCustomerService creates a new customer service.
func NewCustomerService(
	store repository.Store,
	hasher *auth.PasswordHasher,
	jwtManager *auth.JWTManager,
	logger *slog.Logger,
) *CustomerService {
	return &CustomerService{
		store:      store,
		hasher:     hasher,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// Register creates a customer account with an empty wallet.
func (s *CustomerService) Register(ctx context.Context, in RegisterInput) (*domain.Customer, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Username == "" {
		return nil, apperrors.InvalidInput("username is required")
	}
	if in.FullName == "" {
		return nil, apperrors.InvalidInput("full name is required")
	}
	if err := validateProfile(&in.Age, &in.Gender, &in.MaritalStatus); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	customer, err := s.newCustomer(in, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}

	if err := s.store.Customers().Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("register customer: %w", err)
	}

	s.logger.InfoContext(ctx, "customer registered",
		slog.String("customer_id", customer.ID),
		slog.String("username", customer.Username),
	)

	return customer, nil
}

func (s *CustomerService) newCustomer(in RegisterInput, role string) (*domain.Customer, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &domain.Customer{
		ID:            uuid.New().String(),
		Username:      in.Username,
		PasswordHash:  hash,
		FullName:      in.FullName,
		Age:           in.Age,
		Address:       in.Address,
		Gender:        in.Gender,
		MaritalStatus: in.MaritalStatus,
		Role:          role,
		WalletBalance: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Login verifies the credentials and issues an access token.
func (s *CustomerService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	customer, err := s.store.Customers().GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid username or password")
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := s.hasher.Compare(customer.PasswordHash, password); err != nil {
		return nil, err
	}

	token, err := s.jwtManager.GenerateAccessToken(customer.ID, customer.Username, customer.Role)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.logger.InfoContext(ctx, "customer logged in",
		slog.String("customer_id", customer.ID),
	)

	return &LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.jwtManager.AccessExpiry().Seconds()),
		Customer:    customer,
	}, nil
}

// ResolvePrincipal loads the customer named by verified token claims. The
// stored role wins over the role in the token, and a deleted account is
// rejected.
func (s *CustomerService) ResolvePrincipal(ctx context.Context, claims *middleware.Claims) (*authz.Principal, error) {
	if claims == nil || claims.UserID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}

	customer, err := s.store.Customers().GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("resolve principal: %w", err)
	}

	return &authz.Principal{
		CustomerID: customer.ID,
		Username:   customer.Username,
		Role:       customer.Role,
	}, nil
}

// GetMe returns the caller's own account.
func (s *CustomerService) GetMe(ctx context.Context, p *authz.Principal) (*domain.Customer, error) {
	if p == nil {
		return nil, apperrors.Unauthorized("authentication required")
	}

	customer, err := s.store.Customers().GetByID(ctx, p.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", notFound(err, "customer", p.Username))
	}
	return customer, nil
}

// GetByUsername returns an account visible to its owner or an admin.
func (s *CustomerService) GetByUsername(ctx context.Context, p *authz.Principal, username string) (*domain.Customer, error) {
	if err := authz.Authorize(p, authz.CustomerRead, username); err != nil {
		return nil, err
	}

	customer, err := s.store.Customers().GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", notFound(err, "customer", username))
	}
	return customer, nil
}

// UpdateProfile applies a partial profile update to the caller's account.
// The wallet balance is never touched here.
func (s *CustomerService) UpdateProfile(ctx context.Context, p *authz.Principal, in UpdateProfileInput) (*domain.Customer, error) {
	var owner string
	if p != nil {
		owner = p.Username
	}
	if err := authz.Authorize(p, authz.CustomerUpdate, owner); err != nil {
		return nil, err
	}

	if in.FullName != nil {
		trimmed := strings.TrimSpace(*in.FullName)
		if trimmed == "" {
			return nil, apperrors.InvalidInput("full name must not be empty")
		}
		in.FullName = &trimmed
	}
	if err := validateProfile(in.Age, in.Gender, in.MaritalStatus); err != nil {
		return nil, err
	}

	patch := domain.CustomerPatch{
		FullName:      in.FullName,
		Age:           in.Age,
		Address:       in.Address,
		Gender:        in.Gender,
		MaritalStatus: in.MaritalStatus,
	}
	if in.Password != nil {
		if err := auth.ValidatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}

	customer, err := s.store.Customers().GetByID(ctx, p.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", notFound(err, "customer", p.Username))
	}

	patch.Apply(customer)
	customer.UpdatedAt = time.Now().UTC()

	if err := s.store.Customers().UpdateProfile(ctx, customer); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.logger.InfoContext(ctx, "customer profile updated",
		slog.String("customer_id", customer.ID),
	)

	return customer, nil
}

// DeleteSelf removes the caller's account. Admin accounts cannot delete
// themselves. Recorded sales are kept.
func (s *CustomerService) DeleteSelf(ctx context.Context, p *authz.Principal) error {
	var owner string
	if p != nil {
		owner = p.Username
	}
	if err := authz.Authorize(p, authz.CustomerDelete, owner); err != nil {
		return err
	}

	if err := s.store.Customers().Delete(ctx, p.CustomerID); err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}

	s.logger.InfoContext(ctx, "customer deleted",
		slog.String("customer_id", p.CustomerID),
	)
	return nil
}

// EnsureBootstrapAdmin makes sure the configured admin account exists and
// holds the admin role. An empty username disables the bootstrap.
func (s *CustomerService) EnsureBootstrapAdmin(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil
	}

	existing, err := s.store.Customers().GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			return nil
		}
		if err := s.store.Customers().SetRole(ctx, existing.ID, domain.RoleAdmin); err != nil {
			return fmt.Errorf("promote bootstrap admin: %w", err)
		}
		s.logger.InfoContext(ctx, "bootstrap admin promoted",
			slog.String("customer_id", existing.ID),
		)
		return nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}

	if err := auth.ValidatePassword(password); err != nil {
		return fmt.Errorf("bootstrap admin password: %w", err)
	}

	admin, err := s.newCustomer(RegisterInput{
		FullName:      "Administrator",
		Username:      username,
		Password:      password,
		Gender:        domain.GenderOther,
		MaritalStatus: domain.MaritalStatusSingle,
	}, domain.RoleAdmin)
	if err != nil {
		return err
	}

	if err := s.store.Customers().Create(ctx, admin); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	s.logger.InfoContext(ctx, "bootstrap admin created",
		slog.String("customer_id", admin.ID),
		slog.String("username", admin.Username),
	)
	return nil
}

// validateProfile checks the optional profile fields that have a fixed domain.
func validateProfile(age *int, gender, maritalStatus *string) error {
	if age != nil && (*age < 0 || *age > MaxAge) {
		return apperrors.InvalidInput(fmt.Sprintf("age must be between 0 and %d", MaxAge))
	}
	if gender != nil && !domain.IsValidGender(*gender) {
		return apperrors.InvalidInput(fmt.Sprintf("gender must be one of %s", strings.Join(domain.ValidGenders(), ", ")))
	}
	if maritalStatus != nil && !domain.IsValidMaritalStatus(*maritalStatus) {
		return apperrors.InvalidInput(fmt.Sprintf("marital_status must be one of %s", strings.Join(domain.ValidMaritalStatuses(), ", ")))
	}
	return nil
}
