package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// contextKey is unexported so only this package can set or read the caller ID.
type contextKey string

const userIDKey contextKey = "userID"

var errNoToken = errors.New("auth: no authorization token")

// RequireAuth enforces authentication on protected routes.
//
// It reads the JWT from the Authorization header, validates it and stores
// the userID in the request context. A missing, malformed, expired or
// forged token ends the chain with 401 and a JSON error body.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				writeUnauthorized(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuth attaches the caller identity when a valid token is present
// and otherwise lets the request through anonymously. Invalid tokens are
// treated the same as no token.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUserID returns a copy of ctx carrying the authenticated user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
// Returns ("", false) if the request is anonymous.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// TokenFromHeader extracts the raw token from an Authorization header value.
// Both "Token <jwt>" and "Bearer <jwt>" schemes are accepted.
func TokenFromHeader(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return "", false
	}
	if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	raw, ok := TokenFromHeader(r.Header.Get("Authorization"))
	if !ok {
		return "", errNoToken
	}
	return tokens.Validate(raw)
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	msg := "invalid token"
	if errors.Is(err, errNoToken) {
		msg = "authorization token required"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]map[string]string{
		"errors": {"message": msg},
	})
}
