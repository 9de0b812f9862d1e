package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/slug"
)

// Product is a catalogue item. StockCount is only changed by the inventory
// manager and never drops below zero.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	StockCount  int             `json:"stock_count"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// InStock reports whether the product can cover quantity units.
func (p *Product) InStock(quantity int) bool {
	return p.StockCount >= quantity
}

// ProductPatch holds a partial product update. Nil fields are left unchanged.
type ProductPatch struct {
	Name        *string
	Category    *string
	Description *string
	Price       *decimal.Decimal
	StockCount  *int
}

// IsEmpty reports whether the patch changes nothing.
func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Category == nil && p.Description == nil && p.Price == nil && p.StockCount == nil
}

// Validate checks the fields present in the patch.
func (p ProductPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return apperrors.InvalidInput("name must not be empty")
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return apperrors.InvalidInput("category must not be empty")
	}
	if p.Price != nil {
		if err := ValidatePrice(*p.Price); err != nil {
			return err
		}
	}
	if p.StockCount != nil {
		if err := ValidateStock(*p.StockCount); err != nil {
			return err
		}
	}
	return nil
}

// Apply copies the non-nil fields of p onto prod. A rename regenerates the
// slug; the caller resolves collisions with other products.
func (p ProductPatch) Apply(prod *Product) {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name != prod.Name {
			prod.Name = name
			if s := slug.Generate(name); s != "" {
				prod.Slug = s
			}
		}
	}
	if p.Category != nil {
		prod.Category = strings.TrimSpace(*p.Category)
	}
	if p.Description != nil {
		prod.Description = *p.Description
	}
	if p.Price != nil {
		prod.Price = *p.Price
	}
	if p.StockCount != nil {
		prod.StockCount = *p.StockCount
	}
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	Category string
	Page     int
	PerPage  int
}
