package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/egegvner/minibank/pkg/models"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenParser resolves a bearer token to an identity.
type TokenParser interface {
	ParseToken(token string) (models.Identity, error)
}

// Authenticator extracts the bearer token, resolves it to an identity and
// stores the identity in the request context. Requests without a valid token
// are rejected.
func Authenticator(parser TokenParser) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			identity, err := parser.ParseToken(token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}

// IdentityFrom returns the identity stored by Authenticator.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(models.Identity)
	return identity, ok
}
