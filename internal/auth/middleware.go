package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"visamate/backend/internal/middleware"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserID returns the authenticated user id set by RequireAuth.
func UserID(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved user id on the request context.
func RequireAuth(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

			userID, err := verifier.Verify(r.Context(), token)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]string{
						"code":    "UNAUTHORIZED",
						"message": "missing or invalid token",
					},
					"correlationId": middleware.GetCorrelationID(r.Context()),
				})
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
