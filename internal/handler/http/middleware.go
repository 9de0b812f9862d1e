package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/utafrali/storefront/internal/authz"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/middleware"
)

// PrincipalResolver turns verified token claims into the current principal.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, claims *middleware.Claims) (*authz.Principal, error)
}

// ContentTypeJSON enforces that requests with a body have Content-Type:
// application/json. Bodiless POSTs such as moderation actions pass through.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Authenticate resolves the claims stored by middleware.Auth into an
// authz.Principal. Mount it after middleware.Auth.
func Authenticate(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := resolver.ResolvePrincipal(r.Context(), middleware.ClaimsFromContext(r.Context()))
			if err != nil {
				httputil.WriteError(w, r, err, nil)
				return
			}
			ctx := authz.WithPrincipal(r.Context(), p)
			ctx = logger.WithUserID(ctx, p.CustomerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func principal(r *http.Request) *authz.Principal {
	return authz.PrincipalFromContext(r.Context())
}
