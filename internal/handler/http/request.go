package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
)

// parseAmount decodes a money amount given as a JSON number or string.
// A missing or malformed value is an invalid amount, not a malformed body.
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, apperrors.InvalidAmount("amount is required")
	}
	var amount decimal.Decimal
	if err := amount.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, apperrors.InvalidAmount("amount must be a number")
	}
	return amount, nil
}

// parseQuantity decodes a whole-unit quantity no larger than domain.MaxStock.
func parseQuantity(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, apperrors.InvalidQuantity("quantity is required")
	}
	var quantity int
	if err := json.Unmarshal(raw, &quantity); err != nil {
		return 0, apperrors.InvalidQuantity("quantity must be a whole number")
	}
	if quantity > domain.MaxStock {
		return 0, apperrors.InvalidQuantity(fmt.Sprintf("quantity must not exceed %d", domain.MaxStock))
	}
	return quantity, nil
}

// uuidParam validates the named URL parameter as a UUID.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	return httputil.ParseUUID(w, chi.URLParam(r, name))
}
