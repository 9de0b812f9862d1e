package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is the immutable record of a completed purchase. ProductName and
// UnitPrice are copied from the product at sale time.
type Sale struct {
	ID               string          `json:"id"`
	CustomerID       string          `json:"customer_id"`
	CustomerUsername string          `json:"customer_username"`
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	CreatedAt        time.Time       `json:"created_at"`
}

// SaleTotal returns unitPrice multiplied by quantity.
func SaleTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// NewSale snapshots the customer and product into a new Sale.
func NewSale(c *Customer, p *Product, quantity int) *Sale {
	return &Sale{
		ID:               uuid.New().String(),
		CustomerID:       c.ID,
		CustomerUsername: c.Username,
		ProductID:        p.ID,
		ProductName:      p.Name,
		Quantity:         quantity,
		UnitPrice:        p.Price,
		TotalPrice:       SaleTotal(p.Price, quantity),
		CreatedAt:        time.Now().UTC(),
	}
}
