// backend/src/handlers/middleware.go
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/username/tradevisor/backend/src/logger"
	"github.com/username/tradevisor/backend/src/security"
	"github.com/username/tradevisor/backend/src/utils"
)

type contextKey string

const (
	requestIDContextKey contextKey = "requestID"
	sessionIDContextKey contextKey = "sessionID"
)

// ContextualLoggerMiddleware attaches a request-scoped logger carrying a
// fresh request ID to the context of every request.
func ContextualLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		ctxLogger := logger.L.With(slog.String("requestID", requestID))

		ctx := logger.ToContext(r.Context(), ctxLogger)
		ctx = context.WithValue(ctx, requestIDContextKey, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionMiddleware resolves the analysis session from the bearer token and
// stores its ID in the request context. Requests without a valid token never
// reach the analytics handlers.
func SessionMiddleware(tokenManager *security.SessionTokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxLogger := logger.FromContext(r.Context())

			tokenString := bearerToken(r)
			if tokenString == "" {
				ctxLogger.Debug("SessionMiddleware: session token missing", "path", r.URL.Path)
				utils.SendJSONError(w, "Session token required", http.StatusUnauthorized)
				return
			}

			sessionID, err := tokenManager.Validate(tokenString)
			if err != nil {
				ctxLogger.Warn("SessionMiddleware: token validation failed", "path", r.URL.Path, "error", err)
				utils.SendJSONError(w, "Invalid or expired session token", http.StatusUnauthorized)
				return
			}

			enrichedLogger := ctxLogger.With(slog.String("sessionID", sessionID))
			ctx := logger.ToContext(r.Context(), enrichedLogger)
			ctx = context.WithValue(ctx, sessionIDContextKey, sessionID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the session token from the Authorization header or,
// as a fallback for download links, the X-Session-Token header.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimPrefix(authHeader, "Bearer ")
		}
		return authHeader
	}
	return r.Header.Get("X-Session-Token")
}

// GetSessionIDFromContext returns the session ID placed by SessionMiddleware.
func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionIDContextKey).(string)
	return sessionID, ok
}
