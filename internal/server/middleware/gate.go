package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mapgame/mapgame/internal/model"
	"github.com/mapgame/mapgame/internal/service"
)

type contextKeyAdmin struct{}

// Resolver maps a session token to an admin. *service.AuthService
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*model.Admin, error)
}

// Gate returns the middleware that authenticates admin sessions according to
// table. On a valid session the admin is attached to the request context.
// Invalid, expired and revoked sessions are treated as anonymous: requests
// under PolicyAdmin are redirected to the login page, all others are
// forwarded. A storage failure while resolving ends the request with 500.
func Gate(table *AccessTable, resolver Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy := table.Lookup(r.URL.Path)
			if policy == PolicyBypass {
				next.ServeHTTP(w, r)
				return
			}

			var admin *model.Admin
			if token := TokenFromRequest(r); token != "" {
				a, err := resolver.Resolve(r.Context(), token)
				switch {
				case err == nil:
					admin = a
				case errors.Is(err, service.ErrInvalidSession):
					logger.Debug("session rejected",
						"path", r.URL.Path,
						"expired", errors.Is(err, service.ErrSessionExpired),
						"request_id", GetRequestID(r.Context()),
					)
				default:
					logger.Error("session resolution failed",
						"path", r.URL.Path,
						"error", err,
						"request_id", GetRequestID(r.Context()),
					)
					writeAuthError(w, http.StatusInternalServerError, "Internal server error")
					return
				}
			}

			if admin == nil {
				if policy == PolicyAdmin {
					http.Redirect(w, r, LoginPath, http.StatusFound)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			noteAdmin(r.Context(), admin.ID)
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), admin)))
		})
	}
}

// TokenFromRequest returns the session token carried by r: the session
// cookie if set, otherwise an Authorization bearer token.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// WithAdmin returns a copy of ctx carrying admin.
func WithAdmin(ctx context.Context, admin *model.Admin) context.Context {
	return context.WithValue(ctx, contextKeyAdmin{}, admin)
}

// AdminFromContext returns the admin attached by Gate, or nil.
func AdminFromContext(ctx context.Context) *model.Admin {
	if a, ok := ctx.Value(contextKeyAdmin{}).(*model.Admin); ok {
		return a
	}
	return nil
}

// AdminHandlerFunc is a handler that receives the authenticated admin.
type AdminHandlerFunc func(w http.ResponseWriter, r *http.Request, admin *model.Admin)

// Admin adapts fn to http.HandlerFunc. Requests without an authenticated
// admin get a 401 JSON error and never reach fn.
func Admin(fn AdminHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin := AdminFromContext(r.Context())
		if admin == nil {
			writeAuthError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		fn(w, r, admin)
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{ //nolint:errcheck
		Error: model.ErrorDetail{Code: status, Message: message},
	})
}
