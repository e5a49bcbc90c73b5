package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tripora/tripora/internal/platform/httpx"
	"github.com/tripora/tripora/internal/shared"
)

// Handler exposes permission resolution, authorization checks, grant
// administration and cache controls.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	gate     *Gate
	validate *validator.Validate
	mw       Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate *Gate, mw Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		gate:     gate,
		validate: validator.New(),
		mw:       mw,
	}
}

// MountRoutes registers authorization routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/permissions", h.ownPermissions)
	r.Post("/check", h.check)
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAll(PermAccountsEdit))
		r.Post("/invalidate", h.invalidateAll)
		r.Post("/invalidate/{accountID}", h.invalidate)
	})
}

// MountGrantRoutes registers user-grant administration under an accounts
// subtree.
func (h *Handler) MountGrantRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAll(PermGrantsEdit))
		r.Post("/{accountID}/grants", h.grant)
		r.Delete("/{accountID}/grants/{permission}", h.revoke)
	})
}

// MountCatalogRoutes registers the read-only permission catalog.
func (h *Handler) MountCatalogRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(PermPermissionsView))
		r.Get("/", h.listCatalog)
	})
}

func (h *Handler) ownPermissions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := shared.AccountIDFromContext(r.Context())
	if !ok {
		httpx.AccessDenied(w)
		return
	}
	set, err := h.service.ResolvePermissions(r.Context(), accountID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"account_id":  accountID,
		"permissions": set.Names(),
	})
}

type checkRequest struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	Mode        string   `json:"mode" validate:"omitempty,oneof=any all"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	accountID, ok := shared.AccountIDFromContext(r.Context())
	if !ok {
		httpx.AccessDenied(w)
		return
	}
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "mode must be any or all")
		return
	}
	allowed, err := h.gate.Authorize(r.Context(), accountID, Requirement{
		Roles:       req.Roles,
		Permissions: req.Permissions,
		Mode:        Mode(req.Mode),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"allowed": allowed})
}

type grantRequest struct {
	Permission string `json:"permission" validate:"required"`
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	actorID, _ := shared.AccountIDFromContext(r.Context())
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "permission is required")
		return
	}
	if err := h.service.Grant(r.Context(), actorID, accountID, req.Permission); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	actorID, _ := shared.AccountIDFromContext(r.Context())
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	permission := chi.URLParam(r, "permission")
	if err := h.service.Revoke(r.Context(), actorID, accountID, permission); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	h.service.Invalidate(accountID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invalidateAll(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateAll()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listCatalog(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"version":    CatalogVersion,
		"categories": CatalogByCategory(),
	})
}
