package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/humon/server/internal/model"
)

type contextKey string

const userKey contextKey = "user"

// AuthTokenHeader carries the auth token issued by POST /v1/users.
const AuthTokenHeader = "auth-token"

// Authenticator resolves an auth token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, authToken string) (model.User, error)
}

// Authorize rejects requests without a valid auth token and attaches the
// resolved user to the request context. The token is read from the
// auth-token header, falling back to "Authorization: Bearer <token>".
func Authorize(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := AuthToken(r)
			if token == "" {
				respondWithError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			user, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, &user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthToken extracts the caller's auth token from the request headers.
func AuthToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(AuthTokenHeader)); token != "" {
		return token
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetUser returns the user attached to the request context (set by Authorize)
func GetUser(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok
}

// WithUser returns a copy of ctx carrying user, as Authorize would.
func WithUser(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, userKey, &user)
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]string{"error": message}
	_ = json.NewEncoder(w).Encode(response)
}
