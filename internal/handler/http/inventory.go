package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/authz"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
)

// InventoryService is the catalog and stock API the handler needs.
type InventoryService interface {
	CreateProduct(ctx context.Context, p *authz.Principal, in service.CreateProductInput) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ListProducts(ctx context.Context, category string, params pagination.Params) (pagination.Result[domain.Product], error)
	UpdateProduct(ctx context.Context, p *authz.Principal, id string, patch domain.ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, p *authz.Principal, id string) error
	AddStock(ctx context.Context, p *authz.Principal, id string, delta int) (*domain.Product, error)
	DeductStock(ctx context.Context, p *authz.Principal, id string, quantity int) (*domain.Product, error)
}

// InventoryHandler handles product and stock endpoints.
type InventoryHandler struct {
	service InventoryService
	logger  *slog.Logger
}

// NewInventoryHandler creates a new inventory HTTP handler.
func NewInventoryHandler(svc InventoryService, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateProductRequest is the JSON request body for adding a product.
type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,min=1,max=200"`
	Category    string          `json:"category" validate:"required,min=1,max=100"`
	Description string          `json:"description" validate:"max=2000"`
	Price       decimal.Decimal `json:"price"`
	StockCount  int             `json:"stock_count"`
}

// UpdateProductRequest is the JSON request body for a partial product update.
type UpdateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Category    *string          `json:"category" validate:"omitempty,min=1,max=100"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price"`
	StockCount  *int             `json:"stock_count"`
}

// QuantityRequest carries a stock quantity.
type QuantityRequest struct {
	Quantity json.RawMessage `json:"quantity"`
}

// RemainingStockResponse reports the stock left after a deduction.
type RemainingStockResponse struct {
	ProductID      string `json:"product_id"`
	RemainingStock int    `json:"remaining_stock"`
}

// --- Handlers ---

// List handles GET /api/v1/inventory
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	result, err := h.service.ListProducts(r.Context(), category, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Get handles GET /api/v1/inventory/{id}
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// GetBySlug handles GET /api/v1/inventory/slug/{slug}
func (h *InventoryHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// Create handles POST /api/v1/inventory
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	product, err := h.service.CreateProduct(r.Context(), principal(r), service.CreateProductInput{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Price:       req.Price,
		StockCount:  req.StockCount,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// Update handles PATCH /api/v1/inventory/{id}
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), principal(r), id, domain.ProductPatch{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Price:       req.Price,
		StockCount:  req.StockCount,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// Delete handles DELETE /api/v1/inventory/{id}
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), principal(r), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Message: "product deleted"})
}

// AddStock handles POST /api/v1/inventory/{id}/add
func (h *InventoryHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	id, quantity, ok := h.stockRequest(w, r)
	if !ok {
		return
	}

	product, err := h.service.AddStock(r.Context(), principal(r), id, quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeductStock handles POST /api/v1/inventory/{id}/deduct
func (h *InventoryHandler) DeductStock(w http.ResponseWriter, r *http.Request) {
	id, quantity, ok := h.stockRequest(w, r)
	if !ok {
		return
	}

	product, err := h.service.DeductStock(r.Context(), principal(r), id, quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: RemainingStockResponse{ProductID: product.ID, RemainingStock: product.StockCount},
	})
}

func (h *InventoryHandler) stockRequest(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return "", 0, false
	}

	var req QuantityRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return "", 0, false
	}

	quantity, err := parseQuantity(req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return "", 0, false
	}
	return id, quantity, true
}
