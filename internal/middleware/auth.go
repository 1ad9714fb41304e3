package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const accountIDKey contextKey = "account_id"

// TokenVerifier resolves a bearer token to the account id it was issued for.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// It returns "" when the header is missing or uses another scheme.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// RequireAuth rejects requests without a valid bearer token and stores the
// verified account id in the request context.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "No token provided")
				return
			}

			accountID, err := verifier.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
		})
	}
}

// WithAccountID returns a copy of ctx carrying accountID.
func WithAccountID(ctx context.Context, accountID int64) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// AccountIDFromContext returns the account id set by RequireAuth.
func AccountIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(accountIDKey).(int64)
	return id, ok
}
