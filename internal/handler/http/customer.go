package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/authz"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
)

// CustomerService is the account API the customer and auth handlers need.
type CustomerService interface {
	PrincipalResolver
	Register(ctx context.Context, in service.RegisterInput) (*domain.Customer, error)
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
	GetMe(ctx context.Context, p *authz.Principal) (*domain.Customer, error)
	GetByUsername(ctx context.Context, p *authz.Principal, username string) (*domain.Customer, error)
	UpdateProfile(ctx context.Context, p *authz.Principal, in service.UpdateProfileInput) (*domain.Customer, error)
	DeleteSelf(ctx context.Context, p *authz.Principal) error
}

// CustomerHandler handles account endpoints.
type CustomerHandler struct {
	service CustomerService
	logger  *slog.Logger
}

// NewCustomerHandler creates a new customer HTTP handler.
func NewCustomerHandler(svc CustomerService, logger *slog.Logger) *CustomerHandler {
	return &CustomerHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for registration.
type RegisterRequest struct {
	FullName      string `json:"full_name" validate:"required,min=1,max=100"`
	Username      string `json:"username" validate:"required,min=3,max=50,username"`
	Password      string `json:"password" validate:"required,min=8,max=72"`
	Age           int    `json:"age" validate:"gte=0,lte=150"`
	Address       string `json:"address" validate:"max=255"`
	Gender        string `json:"gender" validate:"required"`
	MaritalStatus string `json:"marital_status" validate:"required"`
}

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest is the JSON request body for a partial profile update.
// The wallet balance cannot be changed here.
type UpdateProfileRequest struct {
	FullName      *string `json:"full_name" validate:"omitempty,min=1,max=100"`
	Age           *int    `json:"age" validate:"omitempty,gte=0,lte=150"`
	Address       *string `json:"address" validate:"omitempty,max=255"`
	Gender        *string `json:"gender"`
	MaritalStatus *string `json:"marital_status"`
	Password      *string `json:"password" validate:"omitempty,min=8,max=72"`
}

// --- Handlers ---

// Register handles POST /api/v1/auth/register
func (h *CustomerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	customer, err := h.service.Register(r.Context(), service.RegisterInput{
		FullName:      req.FullName,
		Username:      req.Username,
		Password:      req.Password,
		Age:           req.Age,
		Address:       req.Address,
		Gender:        req.Gender,
		MaritalStatus: req.MaritalStatus,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: customer})
}

// Login handles POST /api/v1/auth/login
func (h *CustomerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// GetMe handles GET /api/v1/customers/me
func (h *CustomerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	customer, err := h.service.GetMe(r.Context(), principal(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: customer})
}

// GetByUsername handles GET /api/v1/customers/{username}
func (h *CustomerHandler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	customer, err := h.service.GetByUsername(r.Context(), principal(r), chi.URLParam(r, "username"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: customer})
}

// UpdateMe handles PATCH /api/v1/customers/me
func (h *CustomerHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	customer, err := h.service.UpdateProfile(r.Context(), principal(r), service.UpdateProfileInput{
		FullName:      req.FullName,
		Age:           req.Age,
		Address:       req.Address,
		Gender:        req.Gender,
		MaritalStatus: req.MaritalStatus,
		Password:      req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: customer})
}

// DeleteMe handles DELETE /api/v1/customers/me
func (h *CustomerHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSelf(r.Context(), principal(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Message: "account deleted"})
}
