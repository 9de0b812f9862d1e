package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/authz"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
)

const (
	// IdempotencyKeyHeader lets a client retry a purchase without buying twice.
	IdempotencyKeyHeader = "Idempotency-Key"
	// ReplayedHeader is set when the response replays an earlier sale.
	ReplayedHeader = "Idempotent-Replayed"
)

// SaleService is the purchase API the handler needs.
type SaleService interface {
	MakeSale(ctx context.Context, p *authz.Principal, in service.MakeSaleInput) (*domain.Sale, bool, error)
	GetSale(ctx context.Context, p *authz.Principal, id string) (*domain.Sale, error)
	PurchaseHistory(ctx context.Context, p *authz.Principal, params pagination.Params) (pagination.Result[domain.Sale], error)
}

// SaleHandler handles purchase endpoints.
type SaleHandler struct {
	service SaleService
	logger  *slog.Logger
}

// NewSaleHandler creates a new sale HTTP handler.
func NewSaleHandler(svc SaleService, logger *slog.Logger) *SaleHandler {
	return &SaleHandler{service: svc, logger: logger}
}

// MakeSaleRequest is the JSON request body for a purchase.
type MakeSaleRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  json.RawMessage `json:"quantity"`
}

// Create handles POST /api/v1/sales
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req MakeSaleRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	quantity, err := parseQuantity(req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sale, replayed, err := h.service.MakeSale(r.Context(), principal(r), service.MakeSaleInput{
		ProductID:      req.ProductID,
		Quantity:       quantity,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := http.StatusCreated
	if replayed {
		w.Header().Set(ReplayedHeader, "true")
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, httputil.Response{Data: sale})
}

// Get handles GET /api/v1/sales/{id}
func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	sale, err := h.service.GetSale(r.Context(), principal(r), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sale})
}

// History handles GET /api/v1/sales/history
func (h *SaleHandler) History(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.PurchaseHistory(r.Context(), principal(r), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
