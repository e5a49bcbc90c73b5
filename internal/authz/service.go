package authz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tripora/tripora/internal/shared"
)

// Service exposes permission resolution and user-grant administration.
// Every grant mutation invalidates the affected cache entry before
// returning, bounding staleness to the cache TTL within a process.
type Service struct {
	repo   Repository
	cache  *Cache
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo Repository, cache *Cache, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, audit: audit, logger: logger}
}

// ResolvePermissions returns the account's effective permission set through
// the cache.
func (s *Service) ResolvePermissions(ctx context.Context, accountID uuid.UUID) (PermissionSet, error) {
	return s.cache.Get(ctx, accountID)
}

// Grant adds a user-level permission to a business staff account.
func (s *Service) Grant(ctx context.Context, actorID, accountID uuid.UUID, permission string) error {
	permission = NormalizePermission(permission)
	if !InCatalog(permission) {
		return fmt.Errorf("%w: permission %q", shared.ErrNotFound, permission)
	}
	ref, err := s.repo.AccountRef(ctx, accountID)
	if err != nil {
		return err
	}
	if ref.RoleKind != RoleKindBusiness {
		return fmt.Errorf("%w: user grants only apply to business staff accounts", shared.ErrValidation)
	}
	if err := s.repo.GrantToAccount(ctx, accountID, permission); err != nil {
		return err
	}
	s.cache.Invalidate(accountID)
	s.recordAudit(ctx, actorID, "grant", accountID, permission)
	return nil
}

// Revoke removes a user-level permission from a business staff account.
func (s *Service) Revoke(ctx context.Context, actorID, accountID uuid.UUID, permission string) error {
	permission = NormalizePermission(permission)
	ref, err := s.repo.AccountRef(ctx, accountID)
	if err != nil {
		return err
	}
	if ref.RoleKind != RoleKindBusiness {
		return fmt.Errorf("%w: user grants only apply to business staff accounts", shared.ErrValidation)
	}
	if err := s.repo.RevokeFromAccount(ctx, accountID, permission); err != nil {
		return err
	}
	s.cache.Invalidate(accountID)
	s.recordAudit(ctx, actorID, "revoke", accountID, permission)
	return nil
}

// Invalidate drops one account from the permission cache.
func (s *Service) Invalidate(accountID uuid.UUID) {
	s.cache.Invalidate(accountID)
}

// InvalidateAll flushes the permission cache.
func (s *Service) InvalidateAll() {
	s.cache.InvalidateAll()
}

func (s *Service) recordAudit(ctx context.Context, actorID uuid.UUID, action string, accountID uuid.UUID, permission string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user_grant",
		EntityID: accountID.String(),
		Meta:     map[string]any{"permission": permission},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit user grant", slog.Any("error", err))
	}
}
