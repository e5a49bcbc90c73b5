package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/tripora/tripora/internal/shared"
)

func newGuardedRouter(t *testing.T, guard func(http.Handler) http.Handler) chi.Router {
	t.Helper()
	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(guard)
		r.Get("/protected", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return router
}

func requestAs(accountID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	sess := &shared.Session{}
	sess.SetUser(accountID)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestMiddlewareAllowsPermittedAccount(t *testing.T) {
	repo := newMemoryAuthzRepo()
	accountID := repo.addAccount(RoleKindPreset, "shop-manager", []string{PermShopsView}, nil)
	mw := Middleware{Gate: newTestGate(repo, nil)}
	router := newGuardedRouter(t, mw.RequireAll(PermShopsView))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(accountID.String()))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareDeniesMissingPermission(t *testing.T) {
	repo := newMemoryAuthzRepo()
	accountID := repo.addAccount(RoleKindPreset, "shop-manager", []string{PermShopsView}, nil)
	mw := Middleware{Gate: newTestGate(repo, nil)}
	router := newGuardedRouter(t, mw.RequireAll(PermRolesEdit))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(accountID.String()))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddlewareDeniesAnonymousRequest(t *testing.T) {
	repo := newMemoryAuthzRepo()
	mw := Middleware{Gate: newTestGate(repo, nil)}
	router := newGuardedRouter(t, mw.RequireAll(PermShopsView))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddlewareDeniesUnknownAccount(t *testing.T) {
	repo := newMemoryAuthzRepo()
	mw := Middleware{Gate: newTestGate(repo, nil)}
	router := newGuardedRouter(t, mw.RequireAll(PermShopsView))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs("b7f1cfa2-14a7-4f4e-9c8f-1f2d3c4b5a69"))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleMatchesCaseInsensitively(t *testing.T) {
	repo := newMemoryAuthzRepo()
	accountID := repo.addAccount(RoleKindSystem, "platform-admin", nil, nil)
	mw := Middleware{Gate: newTestGate(repo, nil)}
	router := newGuardedRouter(t, mw.RequireRole("Platform-Admin"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(accountID.String()))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAnyPassesOnOneHeldPermission(t *testing.T) {
	repo := newMemoryAuthzRepo()
	accountID := repo.addAccount(RoleKindBusiness, "front-desk", nil, []string{PermBookingsView})
	cache := NewCache(NewResolver(repo), time.Minute, nil)
	mw := Middleware{Gate: NewGate(repo, cache, nil)}
	router := newGuardedRouter(t, mw.RequireAny(PermBookingsView, PermBookingsManage))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(accountID.String()))
	require.Equal(t, http.StatusOK, rec.Code)
}
