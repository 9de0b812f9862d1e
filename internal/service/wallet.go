package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/authz"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
)

// WalletService exposes wallet operations to authenticated customers.
type WalletService struct {
	store    repository.Store
	wallet   *WalletManager
	producer EventPublisher
	observer Observer
	logger   *slog.Logger
}

// NewWalletService creates a new wallet service.
func NewWalletService(
	store repository.Store,
	wallet *WalletManager,
	producer EventPublisher,
	observer Observer,
	logger *slog.Logger,
) *WalletService {
	return &WalletService{
		store:    store,
		wallet:   wallet,
		producer: producer,
		observer: observer,
		logger:   logger,
	}
}

// Charge adds amount to the wallet of username and returns the new balance.
func (s *WalletService) Charge(ctx context.Context, p *authz.Principal, username string, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.apply(ctx, p, authz.WalletCharge, opWalletCharge, event.WalletOperationCharge, username, amount, s.wallet.Charge)
}

// Deduct subtracts amount from the wallet of username and returns the new balance.
func (s *WalletService) Deduct(ctx context.Context, p *authz.Principal, username string, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.apply(ctx, p, authz.WalletDeduct, opWalletDeduct, event.WalletOperationDeduct, username, amount, s.wallet.Deduct)
}

type walletStep func(ctx context.Context, ledger repository.Ledger, username string, amount decimal.Decimal) (*domain.Customer, error)

func (s *WalletService) apply(
	ctx context.Context,
	p *authz.Principal,
	action authz.Action,
	operation, eventOperation, username string,
	amount decimal.Decimal,
	step walletStep,
) (decimal.Decimal, error) {
	if err := authz.Authorize(p, action, username); err != nil {
		return decimal.Zero, err
	}

	var customer *domain.Customer
	err := s.observer.Observe(ctx, operation, func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(ctx context.Context, ledger repository.Ledger) error {
			c, err := step(ctx, ledger, username, amount)
			if err != nil {
				return err
			}
			customer = c
			return nil
		})
	})
	if err != nil {
		return decimal.Zero, err
	}

	if err := s.producer.PublishWalletUpdated(ctx, customer, eventOperation, amount); err != nil {
		logSideEffect(ctx, s.logger, "failed to publish wallet.updated event", err,
			slog.String("customer_id", customer.ID),
		)
	}

	s.logger.InfoContext(ctx, "wallet updated",
		slog.String("customer_id", customer.ID),
		slog.String("operation", eventOperation),
		slog.String("amount", amount.StringFixed(domain.MoneyPlaces)),
		slog.String("balance", customer.WalletBalance.StringFixed(domain.MoneyPlaces)),
	)

	return customer.WalletBalance, nil
}

// Balance returns the wallet balance of username.
func (s *WalletService) Balance(ctx context.Context, p *authz.Principal, username string) (decimal.Decimal, error) {
	if err := authz.Authorize(p, authz.WalletRead, username); err != nil {
		return decimal.Zero, err
	}

	customer, err := s.store.Customers().GetByUsername(ctx, username)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get wallet balance: %w", notFound(err, "customer", username))
	}
	return customer.WalletBalance, nil
}
