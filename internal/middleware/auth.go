package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tasknest/tasknest-go/internal/crypto"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenVerifier resolves a bearer token to the identity it was issued for.
type TokenVerifier interface {
	Verify(token string) (crypto.Identity, error)
}

// ResolveIdentity extracts and verifies the Bearer token on r. A missing
// header, a wrong scheme and a bad token all fail with crypto.ErrInvalidToken.
func ResolveIdentity(r *http.Request, v TokenVerifier) (crypto.Identity, error) {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || token == "" {
		return crypto.Identity{}, crypto.ErrInvalidToken
	}
	return v.Verify(token)
}

// JWTAuth returns middleware that rejects requests without a valid Bearer
// token. Every rejection carries the same response body.
func JWTAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := ResolveIdentity(r, v)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the identity attached by JWTAuth.
func IdentityFromContext(ctx context.Context) (crypto.Identity, bool) {
	id, ok := ctx.Value(identityKey).(crypto.Identity)
	return id, ok
}

// UserIDFromContext extracts the authenticated user ID from the request context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := IdentityFromContext(ctx)
	return id.UserID, ok && id.UserID != ""
}

// WithIdentity attaches id to ctx as JWTAuth would.
func WithIdentity(ctx context.Context, id crypto.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
