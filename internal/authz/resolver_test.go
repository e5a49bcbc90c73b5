package authz

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tripora/tripora/internal/shared"
)

type memoryAuthzRepo struct {
	refs       map[uuid.UUID]AccountRef
	roleGrants map[uuid.UUID][]string
	userGrants map[uuid.UUID][]string

	refCalls  int
	roleCalls int
	userCalls int
}

func newMemoryAuthzRepo() *memoryAuthzRepo {
	return &memoryAuthzRepo{
		refs:       make(map[uuid.UUID]AccountRef),
		roleGrants: make(map[uuid.UUID][]string),
		userGrants: make(map[uuid.UUID][]string),
	}
}

func (r *memoryAuthzRepo) addAccount(kind RoleKind, roleName string, rolePerms, userPerms []string) uuid.UUID {
	accountID := uuid.New()
	roleID := uuid.New()
	r.refs[accountID] = AccountRef{ID: accountID, RoleID: roleID, RoleName: roleName, RoleKind: kind, IsActive: true}
	r.roleGrants[roleID] = rolePerms
	r.userGrants[accountID] = userPerms
	return accountID
}

func (r *memoryAuthzRepo) setActive(accountID uuid.UUID, active bool) {
	ref := r.refs[accountID]
	ref.IsActive = active
	r.refs[accountID] = ref
}

func (r *memoryAuthzRepo) AccountRef(ctx context.Context, accountID uuid.UUID) (AccountRef, error) {
	r.refCalls++
	ref, ok := r.refs[accountID]
	if !ok {
		return AccountRef{}, shared.ErrNotFound
	}
	return ref, nil
}

func (r *memoryAuthzRepo) RolePermissions(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	r.roleCalls++
	return append([]string(nil), r.roleGrants[roleID]...), nil
}

func (r *memoryAuthzRepo) AccountPermissions(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	r.userCalls++
	return append([]string(nil), r.userGrants[accountID]...), nil
}

func (r *memoryAuthzRepo) GrantToAccount(ctx context.Context, accountID uuid.UUID, permission string) error {
	for _, held := range r.userGrants[accountID] {
		if held == permission {
			return nil
		}
	}
	r.userGrants[accountID] = append(r.userGrants[accountID], permission)
	return nil
}

func (r *memoryAuthzRepo) RevokeFromAccount(ctx context.Context, accountID uuid.UUID, permission string) error {
	held := r.userGrants[accountID]
	for i, name := range held {
		if name == permission {
			r.userGrants[accountID] = append(held[:i], held[i+1:]...)
			return nil
		}
	}
	return nil
}

func TestResolveSystemRoleReadsRoleGrants(t *testing.T) {
	repo := newMemoryAuthzRepo()
	accountID := repo.addAccount(RoleKindSystem, "platform-admin",
		[]string{PermRolesEdit, PermAccountsEdit}, nil)

	set, err := NewResolver(repo).Resolve(context.Background(), accountID)
	require.NoError(t, err)
	require.True(t, set.Has(PermRolesEdit))
	require.True(t, set.Has(PermAccountsEdit))
	require.Equal(t, 1, repo.roleCalls)
	require.Equal(t, 0, repo.userCalls)
}

func TestResolvePresetRoleReadsRoleGrants(t *testing.T) {
	repo := newMemoryAuthzRepo()
	accountID := repo.addAccount(RoleKindPreset, "shop-manager",
		[]string{PermShopsView}, nil)

	set, err := NewResolver(repo).Resolve(context.Background(), accountID)
	require.NoError(t, err)
	require.True(t, set.Has(PermShopsView))
	require.Equal(t, 0, repo.userCalls)
}

func TestResolveBusinessRoleReadsUserGrants(t *testing.T) {
	repo := newMemoryAuthzRepo()
	// The role template still carries grants; they must not leak through.
	accountID := repo.addAccount(RoleKindBusiness, "front-desk",
		[]string{PermRolesEdit}, []string{PermBookingsView, PermBookingsManage})

	set, err := NewResolver(repo).Resolve(context.Background(), accountID)
	require.NoError(t, err)
	require.True(t, set.Has(PermBookingsView))
	require.True(t, set.Has(PermBookingsManage))
	require.False(t, set.Has(PermRolesEdit))
	require.Equal(t, 0, repo.roleCalls)
	require.Equal(t, 1, repo.userCalls)
}

func TestResolveBusinessAccountWithNoGrantsIsEmpty(t *testing.T) {
	repo := newMemoryAuthzRepo()
	accountID := repo.addAccount(RoleKindBusiness, "front-desk", nil, nil)

	set, err := NewResolver(repo).Resolve(context.Background(), accountID)
	require.NoError(t, err)
	require.Empty(t, set)
	require.False(t, set.Has(PermBookingsView))
}

func TestResolveDeactivatedAccountIsEmpty(t *testing.T) {
	repo := newMemoryAuthzRepo()
	accountID := repo.addAccount(RoleKindBusiness, "front-desk", nil, []string{PermBookingsView})
	repo.setActive(accountID, false)

	set, err := NewResolver(repo).Resolve(context.Background(), accountID)
	require.NoError(t, err)
	require.Empty(t, set)
}

func TestResolveUnknownAccount(t *testing.T) {
	repo := newMemoryAuthzRepo()

	_, err := NewResolver(repo).Resolve(context.Background(), uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestResolveUnknownRoleKind(t *testing.T) {
	repo := newMemoryAuthzRepo()
	accountID := uuid.New()
	repo.refs[accountID] = AccountRef{ID: accountID, RoleID: uuid.New(), RoleKind: RoleKind("guest")}

	_, err := NewResolver(repo).Resolve(context.Background(), accountID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown role kind")
}
