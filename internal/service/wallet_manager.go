package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// WalletManager is the only code that changes a wallet balance. Every method
// runs against a Ledger bound to the caller's unit of work and locks the
// customer row before reading the balance.
type WalletManager struct{}

// NewWalletManager creates a wallet manager.
func NewWalletManager() *WalletManager {
	return &WalletManager{}
}

// Charge adds amount to the wallet of username and returns the updated customer.
func (m *WalletManager) Charge(ctx context.Context, ledger repository.Ledger, username string, amount decimal.Decimal) (*domain.Customer, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	customer, err := m.lock(ctx, ledger, username)
	if err != nil {
		return nil, err
	}

	if err := m.credit(ctx, ledger, customer, amount); err != nil {
		return nil, err
	}
	return customer, nil
}

// Deduct subtracts amount from the wallet of username and returns the
// updated customer. The balance never drops below zero.
func (m *WalletManager) Deduct(ctx context.Context, ledger repository.Ledger, username string, amount decimal.Decimal) (*domain.Customer, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	customer, err := m.lock(ctx, ledger, username)
	if err != nil {
		return nil, err
	}

	if customer.WalletBalance.LessThan(amount) {
		return nil, apperrors.InsufficientFunds(customer.WalletBalance, amount)
	}

	if err := m.debit(ctx, ledger, customer, amount); err != nil {
		return nil, err
	}
	return customer, nil
}

func (m *WalletManager) lock(ctx context.Context, ledger repository.Ledger, username string) (*domain.Customer, error) {
	customer, err := ledger.Customers().LockByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err, "customer", username)
	}
	return customer, nil
}

// credit adds amount to a customer row the caller has locked. The resulting
// balance must still be storable.
func (m *WalletManager) credit(ctx context.Context, ledger repository.Ledger, customer *domain.Customer, amount decimal.Decimal) error {
	balance := customer.WalletBalance.Add(amount)
	if err := domain.ValidateBalance(balance); err != nil {
		return err
	}
	if err := ledger.Customers().UpdateBalance(ctx, customer.ID, balance); err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}
	customer.WalletBalance = balance
	return nil
}

// debit subtracts amount from a customer row the caller has locked and whose
// balance it has checked.
func (m *WalletManager) debit(ctx context.Context, ledger repository.Ledger, customer *domain.Customer, amount decimal.Decimal) error {
	balance := customer.WalletBalance.Sub(amount)
	if balance.IsNegative() {
		return apperrors.InsufficientFunds(customer.WalletBalance, amount)
	}
	if err := ledger.Customers().UpdateBalance(ctx, customer.ID, balance); err != nil {
		return fmt.Errorf("debit wallet: %w", err)
	}
	customer.WalletBalance = balance
	return nil
}
