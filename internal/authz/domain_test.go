package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPermissionSetNormalizes(t *testing.T) {
	set := NewPermissionSet("  Bookings.View ", "SHOPS.MANAGE", "")
	require.Len(t, set, 2)
	require.True(t, set.Has("bookings.view"))
	require.True(t, set.Has(" shops.manage "))
}

func TestPermissionSetNames(t *testing.T) {
	set := NewPermissionSet(PermShopsView, PermBookingsView)
	require.Equal(t, []string{PermBookingsView, PermShopsView}, set.Names())
}

func TestRoleKindValid(t *testing.T) {
	require.True(t, RoleKindSystem.Valid())
	require.True(t, RoleKindPreset.Valid())
	require.True(t, RoleKindBusiness.Valid())
	require.False(t, RoleKind("guest").Valid())
}

func TestCatalogCoversKnownPermissions(t *testing.T) {
	require.True(t, InCatalog(PermBookingsView))
	require.True(t, InCatalog(PermGrantsEdit))
	require.False(t, InCatalog("bookings.delete"))
	require.Len(t, CatalogNames(), len(Catalog()))
}

func TestCatalogByCategoryGroupsEntries(t *testing.T) {
	byCategory := CatalogByCategory()
	require.NotEmpty(t, byCategory)
	total := 0
	for _, entries := range byCategory {
		total += len(entries)
	}
	require.Equal(t, len(Catalog()), total)
}
