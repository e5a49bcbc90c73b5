package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tripora/tripora/internal/auth"
	"github.com/tripora/tripora/internal/shared"
)

func newAuthRouter(t *testing.T, repo auth.Repository) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(nil, auth.NewService(repo), sessionManager, csrfManager)

	router := chi.NewRouter()
	router.Route("/auth", handler.MountRoutes)
	return router, sessionManager
}

func postJSON(t *testing.T, router http.Handler, sessionManager *shared.SessionManager, path, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec, sess
}

func TestLoginSuccess(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correctpass")}
	router, sessionManager := newAuthRouter(t, repo)

	rec, sess := postJSON(t, router, sessionManager, "/auth/login", `{"email":"user@tripora.local","password":"correctpass"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		AccountID          string `json:"account_id"`
		MustChangePassword bool   `json:"must_change_password"`
		CSRFToken          string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, repo.user.ID.String(), payload.AccountID)
	require.NotEmpty(t, payload.CSRFToken)
	require.Equal(t, repo.user.ID.String(), sess.User())
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correctpass")}
	router, sessionManager := newAuthRouter(t, repo)

	rec, sess := postJSON(t, router, sessionManager, "/auth/login", `{"email":"user@tripora.local","password":"wrongpass"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, sess.User())
}

func TestLoginMalformedBody(t *testing.T) {
	router, sessionManager := newAuthRouter(t, &stubRepo{})

	rec, _ := postJSON(t, router, sessionManager, "/auth/login", `{"email":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	router, sessionManager := newAuthRouter(t, &stubRepo{})

	rec, _ := postJSON(t, router, sessionManager, "/auth/login", `{"email":"not-an-email","password":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangePasswordRequiresSession(t *testing.T) {
	router, sessionManager := newAuthRouter(t, &stubRepo{})

	rec, _ := postJSON(t, router, sessionManager, "/auth/password", `{"email":"user@tripora.local","current_password":"a","new_password":"newpassword1"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestChangePasswordHappyPath(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correctpass")}
	router, sessionManager := newAuthRouter(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/password", strings.NewReader(
		`{"email":"user@tripora.local","current_password":"correctpass","new_password":"newpassword1"}`))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser(repo.user.ID.String())
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotEmpty(t, repo.updatedHash)
}
