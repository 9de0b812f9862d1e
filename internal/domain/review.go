package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Review status constants.
const (
	ReviewStatusPending  = "pending"
	ReviewStatusFlagged  = "flagged"
	ReviewStatusApproved = "approved"
)

// Review bounds.
const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 500
)

// Review is a customer's rating of a product.
type Review struct {
	ID               string    `json:"id"`
	ProductID        string    `json:"product_id"`
	CustomerID       string    `json:"customer_id"`
	CustomerUsername string    `json:"customer_username"`
	Rating           int       `json:"rating"`
	Comment          string    `json:"comment"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ValidReviewStatuses returns the set of valid review statuses.
func ValidReviewStatuses() []string {
	return []string{ReviewStatusPending, ReviewStatusFlagged, ReviewStatusApproved}
}

// IsValidReviewStatus checks whether the given string is a valid review status.
func IsValidReviewStatus(status string) bool {
	for _, s := range ValidReviewStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// ValidateRating checks that rating lies within [MinRating, MaxRating].
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return apperrors.InvalidInput("rating must be between 1 and 5")
	}
	return nil
}

// ValidateComment checks that comment is non-blank and at most MaxCommentLength characters.
func ValidateComment(comment string) error {
	if strings.TrimSpace(comment) == "" {
		return apperrors.InvalidInput("comment must not be empty")
	}
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return apperrors.InvalidInput("comment must be at most 500 characters")
	}
	return nil
}

// Flag marks the review for moderation.
func (r *Review) Flag() {
	r.Status = ReviewStatusFlagged
	r.UpdatedAt = time.Now().UTC()
}

// Approve clears a flagged review. Only flagged reviews can be approved.
func (r *Review) Approve() error {
	if r.Status != ReviewStatusFlagged {
		return apperrors.InvalidInput("only flagged reviews can be approved")
	}
	r.Status = ReviewStatusApproved
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// ReviewPatch holds an owner's edit. Nil fields are left unchanged.
type ReviewPatch struct {
	Rating  *int
	Comment *string
}

// Validate checks the fields present in the patch.
func (p ReviewPatch) Validate() error {
	if p.Rating != nil {
		if err := ValidateRating(*p.Rating); err != nil {
			return err
		}
	}
	if p.Comment != nil {
		if err := ValidateComment(*p.Comment); err != nil {
			return err
		}
	}
	return nil
}

// Apply copies the non-nil fields of p onto r.
func (p ReviewPatch) Apply(r *Review) {
	if p.Rating != nil {
		r.Rating = *p.Rating
	}
	if p.Comment != nil {
		r.Comment = *p.Comment
	}
	r.UpdatedAt = time.Now().UTC()
}
