package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/authz"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// SubmitReviewInput holds the parameters for submitting a review.
type SubmitReviewInput struct {
	ProductID string
	Rating    int
	Comment   string
}

// ReviewService implements product reviews and their moderation.
type ReviewService struct {
	store    repository.Store
	producer EventPublisher
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(store repository.Store, producer EventPublisher, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		store:    store,
		producer: producer,
		logger:   logger,
	}
}

// Submit records a pending review of a product by the caller.
func (s *ReviewService) Submit(ctx context.Context, p *authz.Principal, in SubmitReviewInput) (*domain.Review, error) {
	if err := authz.Authorize(p, authz.ReviewWrite, ""); err != nil {
		return nil, err
	}
	if err := domain.ValidateRating(in.Rating); err != nil {
		return nil, err
	}
	if err := domain.ValidateComment(in.Comment); err != nil {
		return nil, err
	}

	if _, err := s.store.Products().GetByID(ctx, in.ProductID); err != nil {
		return nil, fmt.Errorf("submit review: %w", notFound(err, "product", in.ProductID))
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:               uuid.New().String(),
		ProductID:        in.ProductID,
		CustomerID:       p.CustomerID,
		CustomerUsername: p.Username,
		Rating:           in.Rating,
		Comment:          in.Comment,
		Status:           domain.ReviewStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.Reviews().Create(ctx, review); err != nil {
		return nil, fmt.Errorf("submit review: %w", err)
	}

	if err := s.producer.PublishReviewSubmitted(ctx, review); err != nil {
		logSideEffect(ctx, s.logger, "failed to publish review.submitted event", err,
			slog.String("review_id", review.ID),
		)
	}

	s.logger.InfoContext(ctx, "review submitted",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
		slog.Int("rating", review.Rating),
	)

	return review, nil
}

// Update edits the caller's own review. A review owned by someone else is
// reported as not found.
func (s *ReviewService) Update(ctx context.Context, p *authz.Principal, id string, patch domain.ReviewPatch) (*domain.Review, error) {
	review, err := s.ownReview(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	patch.Apply(review)

	if err := s.store.Reviews().Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
	)
	return review, nil
}

// Delete removes the caller's own review.
func (s *ReviewService) Delete(ctx context.Context, p *authz.Principal, id string) error {
	if _, err := s.ownReview(ctx, p, id); err != nil {
		return err
	}

	if err := s.store.Reviews().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", id),
	)
	return nil
}

func (s *ReviewService) ownReview(ctx context.Context, p *authz.Principal, id string) (*domain.Review, error) {
	if err := authz.Authorize(p, authz.ReviewWrite, ""); err != nil {
		return nil, err
	}

	review, err := s.store.Reviews().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", notFound(err, "review", id))
	}
	if review.CustomerID != p.CustomerID {
		return nil, apperrors.NotFound("review", id)
	}
	return review, nil
}

// ListByProduct returns the visible reviews of a product.
func (s *ReviewService) ListByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	reviews, err := s.store.Reviews().ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list product reviews: %w", err)
	}
	return reviews, nil
}

// ListMine returns every review the caller has written, including flagged ones.
func (s *ReviewService) ListMine(ctx context.Context, p *authz.Principal) ([]domain.Review, error) {
	if err := authz.Authorize(p, authz.ReviewWrite, ""); err != nil {
		return nil, err
	}

	reviews, err := s.store.Reviews().ListByCustomer(ctx, p.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("list customer reviews: %w", err)
	}
	return reviews, nil
}

// Flag hides a review from the product listing until an admin approves it.
func (s *ReviewService) Flag(ctx context.Context, p *authz.Principal, id string) (*domain.Review, error) {
	return s.moderate(ctx, p, id, func(r *domain.Review) error {
		r.Flag()
		return nil
	})
}

// Approve restores a flagged review.
func (s *ReviewService) Approve(ctx context.Context, p *authz.Principal, id string) (*domain.Review, error) {
	return s.moderate(ctx, p, id, (*domain.Review).Approve)
}

func (s *ReviewService) moderate(ctx context.Context, p *authz.Principal, id string, transition func(*domain.Review) error) (*domain.Review, error) {
	if err := authz.Authorize(p, authz.ReviewModerate, ""); err != nil {
		return nil, err
	}

	review, err := s.store.Reviews().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", notFound(err, "review", id))
	}

	if err := transition(review); err != nil {
		return nil, err
	}

	if err := s.store.Reviews().Update(ctx, review); err != nil {
		return nil, fmt.Errorf("moderate review: %w", err)
	}

	s.logger.InfoContext(ctx, "review moderated",
		slog.String("review_id", review.ID),
		slog.String("status", review.Status),
	)
	return review, nil
}
