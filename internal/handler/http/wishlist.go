package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/authz"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
)

// WishlistService is the wishlist API the handler needs.
type WishlistService interface {
	List(ctx context.Context, p *authz.Principal, params pagination.Params) (pagination.Result[domain.WishlistItem], error)
	Add(ctx context.Context, p *authz.Principal, productID string) (bool, error)
	Remove(ctx context.Context, p *authz.Principal, productID string) error
}

// WishlistHandler handles wishlist endpoints.
type WishlistHandler struct {
	service WishlistService
	logger  *slog.Logger
}

// NewWishlistHandler creates a new wishlist HTTP handler.
func NewWishlistHandler(svc WishlistService, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{service: svc, logger: logger}
}

// WishlistChangeResponse reports the outcome of an add or remove.
type WishlistChangeResponse struct {
	ProductID string `json:"product_id"`
	Status    string `json:"status"`
}

// List handles GET /api/v1/wishlist
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context(), principal(r), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Add handles POST /api/v1/wishlist/{productId}
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "productId")
	if !ok {
		return
	}

	added, err := h.service.Add(r.Context(), principal(r), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if !added {
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{
			Data: WishlistChangeResponse{ProductID: productID, Status: "already_present"},
		})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{
		Data: WishlistChangeResponse{ProductID: productID, Status: "added"},
	})
}

// Remove handles DELETE /api/v1/wishlist/{productId}
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "productId")
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), principal(r), productID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: WishlistChangeResponse{ProductID: productID, Status: "removed"},
	})
}
