package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/authz"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httputil"
)

// WalletService is the wallet API the handler needs.
type WalletService interface {
	Charge(ctx context.Context, p *authz.Principal, username string, amount decimal.Decimal) (decimal.Decimal, error)
	Deduct(ctx context.Context, p *authz.Principal, username string, amount decimal.Decimal) (decimal.Decimal, error)
	Balance(ctx context.Context, p *authz.Principal, username string) (decimal.Decimal, error)
}

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	service WalletService
	logger  *slog.Logger
}

// NewWalletHandler creates a new wallet HTTP handler.
func NewWalletHandler(svc WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{service: svc, logger: logger}
}

// AmountRequest carries a money amount as a JSON number or decimal string.
type AmountRequest struct {
	Amount json.RawMessage `json:"amount"`
}

// BalanceResponse reports a wallet balance with two decimal places.
type BalanceResponse struct {
	Username string `json:"username"`
	Balance  string `json:"balance"`
}

// Balance handles GET /api/v1/wallet
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	username := h.target(r)
	balance, err := h.service.Balance(r.Context(), principal(r), username)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeBalance(w, username, balance)
}

// Charge handles POST /api/v1/wallet/charge and
// POST /api/v1/customers/{username}/wallet/charge
func (h *WalletHandler) Charge(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.service.Charge)
}

// Deduct handles POST /api/v1/wallet/deduct and
// POST /api/v1/customers/{username}/wallet/deduct
func (h *WalletHandler) Deduct(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.service.Deduct)
}

func (h *WalletHandler) apply(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, *authz.Principal, string, decimal.Decimal) (decimal.Decimal, error),
) {
	var req AmountRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	username := h.target(r)
	balance, err := op(r.Context(), principal(r), username, amount)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeBalance(w, username, balance)
}

// target is the wallet owner named in the path, or the caller's own wallet.
func (h *WalletHandler) target(r *http.Request) string {
	if username := chi.URLParam(r, "username"); username != "" {
		return username
	}
	if p := principal(r); p != nil {
		return p.Username
	}
	return ""
}

func (h *WalletHandler) writeBalance(w http.ResponseWriter, username string, balance decimal.Decimal) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: BalanceResponse{Username: username, Balance: balance.StringFixed(domain.MoneyPlaces)},
	})
}
