package staff

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tripora/tripora/internal/authz"
	"github.com/tripora/tripora/internal/platform/httpx"
	"github.com/tripora/tripora/internal/shared"
)

// Handler manages staff onboarding endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	mw       authz.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), mw: mw}
}

// MountRoutes registers staff routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAll(authz.PermStaffOnboard))
		r.Post("/", h.onboard)
	})
}

type onboardRequest struct {
	AccountID  uuid.UUID `json:"account_id"`
	StaffID    uuid.UUID `json:"staff_id"`
	Email      string    `json:"email" validate:"required,email"`
	Phone      string    `json:"phone" validate:"required"`
	Password   string    `json:"password" validate:"required,min=8"`
	FirstName  string    `json:"first_name" validate:"required"`
	LastName   string    `json:"last_name"`
	BusinessID uuid.UUID `json:"business_id" validate:"required"`
	RoleID     uuid.UUID `json:"role_id" validate:"required"`
	Title      string    `json:"title"`
}

func (h *Handler) onboard(w http.ResponseWriter, r *http.Request) {
	var req onboardRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email, phone, password, first_name, business_id and role_id are required")
		return
	}

	// Clients may supply both IDs up front to make retries idempotent;
	// ones that do not get fresh IDs here.
	if req.AccountID == uuid.Nil {
		req.AccountID = uuid.New()
	}
	if req.StaffID == uuid.Nil {
		req.StaffID = uuid.New()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash staff password", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	actorID, _ := shared.AccountIDFromContext(r.Context())
	view, err := h.service.Onboard(r.Context(), actorID, OnboardParams{
		AccountID:    req.AccountID,
		StaffID:      req.StaffID,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		BusinessID:   req.BusinessID,
		RoleID:       req.RoleID,
		Title:        req.Title,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, view)
}
