package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tripora/tripora/internal/platform/httpx"
	"github.com/tripora/tripora/internal/shared"
)

// Middleware wires authorization checks for HTTP handlers. A failed check
// always yields the generic access-denied response.
type Middleware struct {
	Gate   *Gate
	Logger *slog.Logger
}

// RequireAny ensures the current account holds at least one of the required
// permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require(Requirement{Permissions: perms, Mode: ModeAny})
}

// RequireAll ensures the current account holds all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require(Requirement{Permissions: perms, Mode: ModeAll})
}

// RequireRole ensures the current account holds one of the named roles. The
// check never touches the permission cache.
func (m Middleware) RequireRole(names ...string) func(http.Handler) http.Handler {
	return m.require(Requirement{Roles: names})
}

func (m Middleware) require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, ok := shared.AccountIDFromContext(r.Context())
			if !ok {
				httpx.AccessDenied(w)
				return
			}
			allowed, err := m.Gate.Authorize(r.Context(), accountID, req)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					httpx.AccessDenied(w)
					return
				}
				if m.Logger != nil {
					m.Logger.Error("authorize request", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !allowed {
				httpx.AccessDenied(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
