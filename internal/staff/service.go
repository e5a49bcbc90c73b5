package staff

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripora/tripora/internal/authz"
	"github.com/tripora/tripora/internal/roles"
	"github.com/tripora/tripora/internal/shared"
)

// RoleRegistry validates the target role of an onboarding request.
type RoleRegistry interface {
	Get(ctx context.Context, id uuid.UUID) (roles.Role, error)
}

// CacheInvalidator drops one account from the permission cache.
type CacheInvalidator interface {
	Invalidate(accountID uuid.UUID)
}

// InviteNotifier queues the invitation email for a freshly onboarded
// account. Delivery is best-effort; onboarding never fails on it.
type InviteNotifier interface {
	EnqueueStaffInvite(ctx context.Context, email, firstName, token string) error
}

// Service provisions staff accounts. Each onboarding is a single unit of
// work: the account and its profile commit together or not at all.
type Service struct {
	repo     Repository
	registry RoleRegistry
	cache    CacheInvalidator
	notifier InviteNotifier
	audit    *shared.AuditLogger
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(repo Repository, registry RoleRegistry, cache CacheInvalidator, notifier InviteNotifier, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		registry: registry,
		cache:    cache,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// Onboard provisions one staff member: an active, verified account that
// must rotate its password on first login, plus its business profile.
// Retried calls with the same identifiers either succeed once or fail with
// a conflict; no partial state survives.
func (s *Service) Onboard(ctx context.Context, actorID uuid.UUID, params OnboardParams) (View, error) {
	if err := s.validate(params); err != nil {
		return View{}, err
	}

	role, err := s.registry.Get(ctx, params.RoleID)
	if err != nil {
		return View{}, err
	}
	if role.Kind != authz.RoleKindBusiness {
		return View{}, fmt.Errorf("%w: role %s is not a business role", shared.ErrValidation, params.RoleID)
	}
	if role.BusinessID == nil || *role.BusinessID != params.BusinessID {
		return View{}, fmt.Errorf("%w: role %s is not owned by business %s", shared.ErrValidation, params.RoleID, params.BusinessID)
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		title = DefaultTitle
	}

	token := newInvitationToken()
	expiry := s.now().Add(InvitationTTL)

	account := Account{
		ID:                 params.AccountID,
		Email:              strings.ToLower(strings.TrimSpace(params.Email)),
		Phone:              strings.TrimSpace(params.Phone),
		PasswordHash:       params.PasswordHash,
		RoleID:             params.RoleID,
		MustChangePassword: true,
		ProfileCompleted:   false,
		// Provisioned by a trusted operator, so the self-service
		// verification flow is skipped.
		IsVerified:       true,
		IsActive:         true,
		InvitationToken:  &token,
		InvitationExpiry: &expiry,
	}
	profile := Profile{
		ID:         params.StaffID,
		AccountID:  params.AccountID,
		BusinessID: params.BusinessID,
		Title:      title,
		FirstName:  strings.TrimSpace(params.FirstName),
		LastName:   strings.TrimSpace(params.LastName),
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.InsertAccount(ctx, account); err != nil {
			return err
		}
		return repo.InsertProfile(ctx, profile)
	})
	if err != nil {
		return View{}, err
	}

	view, err := s.repo.View(ctx, params.AccountID)
	if err != nil {
		return View{}, err
	}

	// A fresh account has no cache entry, but a prior failed onboarding
	// attempt for the same ID may have left one.
	if s.cache != nil {
		s.cache.Invalidate(params.AccountID)
	}

	if s.notifier != nil {
		if err := s.notifier.EnqueueStaffInvite(ctx, account.Email, profile.FirstName, token); err != nil && s.logger != nil {
			s.logger.Warn("enqueue staff invite", slog.Any("error", err))
		}
	}
	s.recordAudit(ctx, actorID, params)

	return view, nil
}

func (s *Service) validate(params OnboardParams) error {
	switch {
	case params.AccountID == uuid.Nil || params.StaffID == uuid.Nil:
		return fmt.Errorf("%w: account and staff ids required", shared.ErrValidation)
	case strings.TrimSpace(params.Email) == "":
		return fmt.Errorf("%w: email required", shared.ErrValidation)
	case strings.TrimSpace(params.Phone) == "":
		return fmt.Errorf("%w: phone required", shared.ErrValidation)
	case params.PasswordHash == "":
		return fmt.Errorf("%w: password hash required", shared.ErrValidation)
	case strings.TrimSpace(params.FirstName) == "":
		return fmt.Errorf("%w: first name required", shared.ErrValidation)
	case params.BusinessID == uuid.Nil:
		return fmt.Errorf("%w: business id required", shared.ErrValidation)
	case params.RoleID == uuid.Nil:
		return fmt.Errorf("%w: role id required", shared.ErrValidation)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID uuid.UUID, params OnboardParams) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "onboard",
		Entity:   "staff_account",
		EntityID: params.AccountID.String(),
		Meta: map[string]any{
			"business_id": params.BusinessID.String(),
			"role_id":     params.RoleID.String(),
		},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit staff onboarding", slog.Any("error", err))
	}
}

func newInvitationToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
