package authz

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tripora/tripora/internal/shared"
)

func newAuthzRouter(repo *memoryAuthzRepo) http.Handler {
	cache := NewCache(NewResolver(repo), time.Minute, nil)
	gate := NewGate(repo, cache, nil)
	service := NewService(repo, cache, nil, nil)
	handler := NewHandler(nil, service, gate, Middleware{Gate: gate})

	router := chi.NewRouter()
	router.Route("/authz", handler.MountRoutes)
	router.Route("/permissions", handler.MountCatalogRoutes)
	router.Route("/accounts", handler.MountGrantRoutes)
	return router
}

func doJSON(router http.Handler, method, path, accountID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if accountID != "" {
		sess := &shared.Session{}
		sess.SetUser(accountID)
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestOwnPermissionsEndpoint(t *testing.T) {
	repo := newMemoryAuthzRepo()
	accountID := repo.addAccount(RoleKindPreset, "shop-manager", []string{PermShopsView, PermBookingsView}, nil)
	router := newAuthzRouter(repo)

	rec := doJSON(router, http.MethodGet, "/authz/permissions", accountID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		AccountID   string   `json:"account_id"`
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, accountID.String(), payload.AccountID)
	require.Equal(t, []string{PermBookingsView, PermShopsView}, payload.Permissions)
}

func TestOwnPermissionsRequiresSession(t *testing.T) {
	router := newAuthzRouter(newMemoryAuthzRepo())

	rec := doJSON(router, http.MethodGet, "/authz/permissions", "", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheckEndpoint(t *testing.T) {
	repo := newMemoryAuthzRepo()
	accountID := repo.addAccount(RoleKindPreset, "shop-manager", []string{PermShopsView}, nil)
	router := newAuthzRouter(repo)

	rec := doJSON(router, http.MethodPost, "/authz/check", accountID.String(),
		`{"permissions":["shops.view","shops.manage"],"mode":"any"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"allowed":true}`, rec.Body.String())

	rec = doJSON(router, http.MethodPost, "/authz/check", accountID.String(),
		`{"permissions":["shops.view","shops.manage"],"mode":"all"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"allowed":false}`, rec.Body.String())
}

func TestCheckRejectsUnknownMode(t *testing.T) {
	repo := newMemoryAuthzRepo()
	accountID := repo.addAccount(RoleKindPreset, "shop-manager", nil, nil)
	router := newAuthzRouter(repo)

	rec := doJSON(router, http.MethodPost, "/authz/check", accountID.String(),
		`{"permissions":["shops.view"],"mode":"most"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGrantEndpointGuardedByPermission(t *testing.T) {
	repo := newMemoryAuthzRepo()
	admin := repo.addAccount(RoleKindSystem, "platform-admin", []string{PermGrantsEdit}, nil)
	staff := repo.addAccount(RoleKindBusiness, "front-desk", nil, nil)
	router := newAuthzRouter(repo)

	rec := doJSON(router, http.MethodPost, "/accounts/"+staff.String()+"/grants", admin.String(),
		`{"permission":"bookings.view"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []string{PermBookingsView}, repo.userGrants[staff])

	// The staff account itself lacks grants.edit.
	rec = doJSON(router, http.MethodPost, "/accounts/"+staff.String()+"/grants", staff.String(),
		`{"permission":"bookings.manage"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRevokeEndpoint(t *testing.T) {
	repo := newMemoryAuthzRepo()
	admin := repo.addAccount(RoleKindSystem, "platform-admin", []string{PermGrantsEdit}, nil)
	staff := repo.addAccount(RoleKindBusiness, "front-desk", nil, []string{PermBookingsView})
	router := newAuthzRouter(repo)

	rec := doJSON(router, http.MethodDelete, "/accounts/"+staff.String()+"/grants/bookings.view", admin.String(), "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, repo.userGrants[staff])
}

func TestInvalidateEndpointsRequireAccountsEdit(t *testing.T) {
	repo := newMemoryAuthzRepo()
	admin := repo.addAccount(RoleKindSystem, "platform-admin", []string{PermAccountsEdit}, nil)
	staff := repo.addAccount(RoleKindBusiness, "front-desk", nil, nil)
	router := newAuthzRouter(repo)

	rec := doJSON(router, http.MethodPost, "/authz/invalidate", admin.String(), "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(router, http.MethodPost, "/authz/invalidate/"+uuid.New().String(), admin.String(), "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(router, http.MethodPost, "/authz/invalidate", staff.String(), "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCatalogEndpoint(t *testing.T) {
	repo := newMemoryAuthzRepo()
	admin := repo.addAccount(RoleKindSystem, "platform-admin", []string{PermPermissionsView}, nil)
	router := newAuthzRouter(repo)

	rec := doJSON(router, http.MethodGet, "/permissions/", admin.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Version    int                         `json:"version"`
		Categories map[string][]CatalogEntry `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, CatalogVersion, payload.Version)
	require.NotEmpty(t, payload.Categories)
}
