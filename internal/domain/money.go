package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// MoneyPlaces is the number of fractional digits money amounts carry.
const MoneyPlaces = 2

// MaxStock is the largest stock count or quantity the INTEGER stock column holds.
const MaxStock = math.MaxInt32

// MaxAmount is the largest money amount whose minor units fit the BIGINT
// money columns. Amounts, prices and balances never exceed it.
var MaxAmount = FromCents(math.MaxInt64)

// ToCents converts a money amount to integer minor units. Callers validate
// the amount first; extra fractional digits are truncated and amounts above
// MaxAmount do not round-trip.
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(MoneyPlaces).IntPart()
}

// FromCents converts integer minor units to a money amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -MoneyPlaces)
}

// hasValidScale reports whether d has at most MoneyPlaces fractional digits.
func hasValidScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyPlaces))
}

// ValidateAmount checks a wallet amount: strictly positive, at most two
// fractional digits, no larger than MaxAmount.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.InvalidAmount("amount must be greater than zero")
	}
	if !hasValidScale(amount) {
		return apperrors.InvalidAmount("amount must have at most 2 decimal places")
	}
	if amount.GreaterThan(MaxAmount) {
		return apperrors.InvalidAmount(fmt.Sprintf("amount must not exceed %s", MaxAmount.StringFixed(MoneyPlaces)))
	}
	return nil
}

// ValidatePrice checks a product price: zero or positive, at most two
// fractional digits, no larger than MaxAmount.
func ValidatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return apperrors.InvalidAmount("price must not be negative")
	}
	if !hasValidScale(price) {
		return apperrors.InvalidAmount("price must have at most 2 decimal places")
	}
	if price.GreaterThan(MaxAmount) {
		return apperrors.InvalidAmount(fmt.Sprintf("price must not exceed %s", MaxAmount.StringFixed(MoneyPlaces)))
	}
	return nil
}

// ValidateBalance checks that a wallet balance can be stored.
func ValidateBalance(balance decimal.Decimal) error {
	if balance.GreaterThan(MaxAmount) {
		return apperrors.InvalidAmount(fmt.Sprintf("wallet balance must not exceed %s", MaxAmount.StringFixed(MoneyPlaces)))
	}
	return nil
}

// ValidateStock checks a stock count: zero or positive and no larger than MaxStock.
func ValidateStock(stock int) error {
	if stock < 0 {
		return apperrors.InvalidQuantity("stock_count must not be negative")
	}
	if stock > MaxStock {
		return apperrors.InvalidQuantity(fmt.Sprintf("stock_count must not exceed %d", MaxStock))
	}
	return nil
}
