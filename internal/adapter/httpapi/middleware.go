package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tallyup/tally-backend/internal/auth"
	"github.com/tallyup/tally-backend/internal/domain"
)

type contextKey string

const personIDKey contextKey = "person_id"

// PersonFromContext extracts the authenticated person id from the request
// context. The second return is false when the request was not authenticated.
func PersonFromContext(ctx context.Context) (domain.PersonID, bool) {
	id, ok := ctx.Value(personIDKey).(domain.PersonID)
	return id, ok
}

// authenticate validates the Bearer token and stores the caller's person id
// in the request context
func authenticate(manager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "Authorization header required")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w, "Invalid authorization header format")
				return
			}

			personID, err := manager.Validate(parts[1])
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), personIDKey, personID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestLogger logs every request with method, path, status and duration
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if ww.Status() >= 500 {
				logger.Error("request failed", attrs...)
			} else {
				logger.Info("request", attrs...)
			}
		})
	}
}
