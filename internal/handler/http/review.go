package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/authz"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
)

// ReviewService is the review API the handler needs.
type ReviewService interface {
	Submit(ctx context.Context, p *authz.Principal, in service.SubmitReviewInput) (*domain.Review, error)
	Update(ctx context.Context, p *authz.Principal, id string, patch domain.ReviewPatch) (*domain.Review, error)
	Delete(ctx context.Context, p *authz.Principal, id string) error
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)
	ListMine(ctx context.Context, p *authz.Principal) ([]domain.Review, error)
	Flag(ctx context.Context, p *authz.Principal, id string) (*domain.Review, error)
	Approve(ctx context.Context, p *authz.Principal, id string) (*domain.Review, error)
}

// ReviewHandler handles product review endpoints.
type ReviewHandler struct {
	service ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{service: svc, logger: logger}
}

// SubmitReviewRequest is the JSON request body for a new review.
type SubmitReviewRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Rating    int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment   string `json:"comment" validate:"required,max=500"`
}

// UpdateReviewRequest is the JSON request body for editing a review.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Comment *string `json:"comment" validate:"omitempty,max=500"`
}

// Submit handles POST /api/v1/reviews
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitReviewRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	review, err := h.service.Submit(r.Context(), principal(r), service.SubmitReviewInput{
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// Update handles PATCH /api/v1/reviews/{id}
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateReviewRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	review, err := h.service.Update(r.Context(), principal(r), id, domain.ReviewPatch{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// Delete handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), principal(r), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Message: "review deleted"})
}

// ListByProduct handles GET /api/v1/reviews/product/{productId}
func (h *ReviewHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "productId")
	if !ok {
		return
	}

	reviews, err := h.service.ListByProduct(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: nonNil(reviews)})
}

// ListMine handles GET /api/v1/reviews/me
func (h *ReviewHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListMine(r.Context(), principal(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: nonNil(reviews)})
}

// Flag handles POST /api/v1/reviews/{id}/flag
func (h *ReviewHandler) Flag(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.service.Flag)
}

// Approve handles POST /api/v1/reviews/{id}/approve
func (h *ReviewHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.service.Approve)
}

func (h *ReviewHandler) moderate(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, *authz.Principal, string) (*domain.Review, error),
) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	review, err := op(r.Context(), principal(r), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
