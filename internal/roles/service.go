package roles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tripora/tripora/internal/authz"
	"github.com/tripora/tripora/internal/shared"
)

// CacheInvalidator flushes resolved permission sets after role-level grant
// changes.
type CacheInvalidator interface {
	InvalidateAll()
}

// Service handles role lifecycle: creation of system and preset roles,
// cloning presets into business-owned roles, and guarded mutation.
type Service struct {
	repo   Repository
	cache  CacheInvalidator
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo Repository, cache CacheInvalidator, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, audit: audit, logger: logger}
}

// Get fetches a role by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Role, error) {
	return s.repo.Get(ctx, id)
}

// List returns all roles.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Grants returns the role-level grants of a role.
func (s *Service) Grants(ctx context.Context, id uuid.UUID) ([]string, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Grants(ctx, id)
}

// CreateSystemRole creates a fixed platform role. System roles are immutable
// from the moment they exist.
func (s *Service) CreateSystemRole(ctx context.Context, name, description string, permissions []string) (Role, error) {
	return s.create(ctx, name, description, permissions, authz.RoleKindSystem, true)
}

// CreatePresetRole creates a template role. Presets are mutable but never
// directly assignable to an account.
func (s *Service) CreatePresetRole(ctx context.Context, name, description string, permissions []string) (Role, error) {
	return s.create(ctx, name, description, permissions, authz.RoleKindPreset, false)
}

func (s *Service) create(ctx context.Context, name, description string, permissions []string, kind authz.RoleKind, immutable bool) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	for _, p := range permissions {
		if !authz.InCatalog(p) {
			return Role{}, fmt.Errorf("%w: permission %q", shared.ErrNotFound, p)
		}
	}

	role := Role{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Kind:        kind,
		IsImmutable: immutable,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.Create(ctx, role); err != nil {
			return err
		}
		return repo.SetGrants(ctx, role.ID, permissions)
	})
	if err != nil {
		return Role{}, err
	}
	return s.repo.Get(ctx, role.ID)
}

// CloneForBusiness creates a business-owned copy of a preset role. The
// source must be a preset; anything else, including another business role,
// fails with not-found. The preset's grants are copied onto the clone as
// recorded defaults, but business staff resolve through user-level grants
// only.
func (s *Service) CloneForBusiness(ctx context.Context, actorID, presetID, businessID uuid.UUID) (Role, error) {
	source, err := s.repo.Get(ctx, presetID)
	if err != nil {
		return Role{}, err
	}
	if source.Kind != authz.RoleKindPreset {
		return Role{}, fmt.Errorf("%w: preset role %s", shared.ErrNotFound, presetID)
	}
	if businessID == uuid.Nil {
		return Role{}, fmt.Errorf("%w: business id required", shared.ErrValidation)
	}

	defaults, err := s.repo.Grants(ctx, presetID)
	if err != nil {
		return Role{}, err
	}

	clone := Role{
		ID:            uuid.New(),
		Name:          source.Name,
		Description:   source.Description,
		Kind:          authz.RoleKindBusiness,
		IsCustom:      false,
		IsImmutable:   false,
		BasedOnRoleID: &source.ID,
		BusinessID:    &businessID,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.Create(ctx, clone); err != nil {
			return err
		}
		return repo.SetGrants(ctx, clone.ID, defaults)
	})
	if err != nil {
		return Role{}, err
	}

	s.recordAudit(ctx, actorID, "clone", clone.ID, map[string]any{
		"preset_id":   presetID.String(),
		"business_id": businessID.String(),
	})
	return s.repo.Get(ctx, clone.ID)
}

// Update applies a patch to a mutable role. Immutable roles fail fast
// before any storage write.
func (s *Service) Update(ctx context.Context, actorID, id uuid.UUID, patch Patch) (Role, error) {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if role.IsImmutable {
		return Role{}, fmt.Errorf("%w: role %s", shared.ErrImmutableRole, role.Name)
	}

	name := role.Name
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
		if name == "" {
			return Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
		}
	}
	description := role.Description
	if patch.Description != nil {
		description = strings.TrimSpace(*patch.Description)
	}
	if patch.Permissions != nil {
		for _, p := range *patch.Permissions {
			if !authz.InCatalog(p) {
				return Role{}, fmt.Errorf("%w: permission %q", shared.ErrNotFound, p)
			}
		}
	}

	var updated Role
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		updated, err = repo.UpdateMeta(ctx, id, name, description)
		if err != nil {
			return err
		}
		if patch.Permissions != nil {
			return repo.SetGrants(ctx, id, *patch.Permissions)
		}
		return nil
	})
	if err != nil {
		return Role{}, err
	}

	// Role-level grants feed every holder of a system/preset role, so a
	// grant change has to flush the whole cache.
	if patch.Permissions != nil && s.cache != nil {
		s.cache.InvalidateAll()
	}
	s.recordAudit(ctx, actorID, "update", id, nil)
	return updated, nil
}

// Delete removes a mutable role. Immutable roles fail fast before any
// storage write.
func (s *Service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if role.IsImmutable {
		return fmt.Errorf("%w: role %s", shared.ErrImmutableRole, role.Name)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.InvalidateAll()
	}
	s.recordAudit(ctx, actorID, "delete", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID uuid.UUID, action string, roleID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: roleID.String(),
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit role", slog.Any("error", err))
	}
}
