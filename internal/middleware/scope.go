package middleware

import (
	"net/http"
	"strings"

	"github.com/spector-app/bulkedit/internal/auth"
)

// ShopScopeHeader carries the authenticated shop for a request. In
// production a session token verification layer fills it in.
const ShopScopeHeader = "X-Shop-Id"

// ShopScopeMiddleware attaches the authenticated shop scope to the
// request context. Requests without the header pass through unscoped;
// handlers enforce the scope only when one is present.
func ShopScopeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		shopID := strings.TrimSpace(r.Header.Get(ShopScopeHeader))
		if shopID != "" {
			r = r.WithContext(auth.ContextWithShopID(r.Context(), shopID))
		}
		next.ServeHTTP(w, r)
	})
}
