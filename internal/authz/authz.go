// Package authz is the single place where request principals are checked
// against the action they attempt and the owner of the resource involved.
package authz

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Principal is the authenticated caller. Role is the stored role at the time
// the request was resolved, not the one embedded in the token.
type Principal struct {
	CustomerID string
	Username   string
	Role       string
}

// Action names an operation subject to authorization.
type Action string

// Actions checked by the services.
const (
	ProductCreate  Action = "product.create"
	ProductUpdate  Action = "product.update"
	ProductDelete  Action = "product.delete"
	StockAdd       Action = "stock.add"
	StockDeduct    Action = "stock.deduct"
	WalletCharge   Action = "wallet.charge"
	WalletDeduct   Action = "wallet.deduct"
	WalletRead     Action = "wallet.read"
	SaleCreate     Action = "sale.create"
	SaleRead       Action = "sale.read"
	CustomerRead   Action = "customer.read"
	CustomerUpdate Action = "customer.update"
	CustomerDelete Action = "customer.delete"
	ReviewWrite    Action = "review.write"
	ReviewModerate Action = "review.moderate"
	WishlistManage Action = "wishlist.manage"
)

type rule int

const (
	adminOnly rule = iota
	customerSelf
	ownerOrAdmin
	ownerOnly
	customerRole
)

var rules = map[Action]rule{
	ProductCreate:  adminOnly,
	ProductUpdate:  adminOnly,
	ProductDelete:  adminOnly,
	StockAdd:       adminOnly,
	StockDeduct:    adminOnly,
	ReviewModerate: adminOnly,
	WalletCharge:   customerSelf,
	WalletDeduct:   customerSelf,
	WalletRead:     customerSelf,
	SaleCreate:     customerSelf,
	CustomerDelete: customerSelf,
	WishlistManage: customerSelf,
	SaleRead:       ownerOrAdmin,
	CustomerRead:   ownerOrAdmin,
	CustomerUpdate: ownerOnly,
	ReviewWrite:    customerRole,
}

// HasRole reports whether p is authenticated and holds role.
func HasRole(p *Principal, role string) bool {
	return p != nil && p.Role == role
}

// Authorize permits or denies p performing action on a resource owned by
// resourceOwner (a username; empty when the resource has no owner).
// A nil principal yields an Unauthorized error, any denial a Forbidden one.
func Authorize(p *Principal, action Action, resourceOwner string) error {
	if p == nil {
		return apperrors.Unauthorized("authentication required")
	}

	r, ok := rules[action]
	if !ok {
		return apperrors.Forbidden("unknown action " + string(action))
	}

	isOwner := resourceOwner != "" && resourceOwner == p.Username

	switch r {
	case adminOnly:
		if !HasRole(p, domain.RoleAdmin) {
			return apperrors.Forbidden("admin role required")
		}
	case customerSelf:
		if !HasRole(p, domain.RoleCustomer) {
			return apperrors.Forbidden("customer role required")
		}
		if !isOwner {
			return apperrors.Forbidden("customers may only act on their own account")
		}
	case ownerOrAdmin:
		if !isOwner && !HasRole(p, domain.RoleAdmin) {
			return apperrors.Forbidden("resource belongs to another customer")
		}
	case ownerOnly:
		if !isOwner {
			return apperrors.Forbidden("resource belongs to another customer")
		}
	case customerRole:
		if !HasRole(p, domain.RoleCustomer) {
			return apperrors.Forbidden("customer role required")
		}
		if resourceOwner != "" && !isOwner {
			return apperrors.Forbidden("resource belongs to another customer")
		}
	}
	return nil
}

type contextKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(contextKey{}).(*Principal)
	return p
}
