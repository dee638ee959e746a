package authn

import (
	"context"
	"net/http"
)

type contextKey string

const principalContextKey contextKey = "principal"

// WithPrincipal middleware resolves the request's bearer token into a
// Principal and stores it on the context. It does not itself reject
// unauthenticated requests — handlers do that (httpapi's
// requirePrincipal), and the service layer checks principal kind —
// since some routes (like health checks) never require auth, and the
// few that accept more than one principal kind need to branch on which
// one actually showed up.
func WithPrincipal(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearerToken(r.Header.Get("Authorization"))
			principal, err := resolver.Resolve(r.Context(), token)
			if err == nil {
				ctx := context.WithValue(r.Context(), principalContextKey, principal)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// FromContext returns the Principal resolved for this request, if any.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok
}
