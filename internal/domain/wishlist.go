package domain

import (
	"time"
)

// WishlistItem represents a product saved in a customer's wishlist.
type WishlistItem struct {
	CustomerID string    `json:"customer_id"`
	ProductID  string    `json:"product_id"`
	CreatedAt  time.Time `json:"created_at"`
}
