package authz

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// grantSource loads the authoritative permission names for an account.
// System and preset roles share their grants through the role; business
// staff carry individual grants. The role kind selects the source in
// exactly one place.
type grantSource interface {
	permissions(ctx context.Context, ref AccountRef) ([]string, error)
}

type roleGrantSource struct {
	repo Repository
}

func (s roleGrantSource) permissions(ctx context.Context, ref AccountRef) ([]string, error) {
	return s.repo.RolePermissions(ctx, ref.RoleID)
}

type userGrantSource struct {
	repo Repository
}

func (s userGrantSource) permissions(ctx context.Context, ref AccountRef) ([]string, error) {
	return s.repo.AccountPermissions(ctx, ref.ID)
}

// Resolver computes the effective permission set for an account. It holds no
// mutable state; staleness handling belongs to Cache.
type Resolver struct {
	repo    Repository
	sources map[RoleKind]grantSource
}

// NewResolver constructs a Resolver over the given repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{
		repo: repo,
		sources: map[RoleKind]grantSource{
			RoleKindSystem:   roleGrantSource{repo: repo},
			RoleKindPreset:   roleGrantSource{repo: repo},
			RoleKindBusiness: userGrantSource{repo: repo},
		},
	}
}

// Resolve returns the effective permission set for the account. A missing
// account or role yields ErrNotFound; an account that legitimately holds no
// permissions yields an empty set. A deactivated account also resolves to
// the empty set so that its grants stop applying the moment its cache entry
// is dropped.
func (r *Resolver) Resolve(ctx context.Context, accountID uuid.UUID) (PermissionSet, error) {
	ref, err := r.repo.AccountRef(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !ref.IsActive {
		return NewPermissionSet(), nil
	}
	source, ok := r.sources[ref.RoleKind]
	if !ok {
		return nil, fmt.Errorf("authz: account %s has unknown role kind %q", ref.ID, ref.RoleKind)
	}
	names, err := source.permissions(ctx, ref)
	if err != nil {
		return nil, err
	}
	return NewPermissionSet(names...), nil
}
