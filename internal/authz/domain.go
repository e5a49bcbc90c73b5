package authz

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// RoleKind determines which grant table is authoritative for an account.
type RoleKind string

const (
	// RoleKindSystem marks fixed platform-level roles.
	RoleKindSystem RoleKind = "system"
	// RoleKindPreset marks template roles, never assigned directly.
	RoleKindPreset RoleKind = "preset"
	// RoleKindBusiness marks per-business roles cloned from a preset.
	RoleKindBusiness RoleKind = "business"
)

// Valid reports whether the kind is one of the known role kinds.
func (k RoleKind) Valid() bool {
	switch k {
	case RoleKindSystem, RoleKindPreset, RoleKindBusiness:
		return true
	}
	return false
}

// AccountRef is the slice of an account the authorization core needs:
// identity plus the role it resolves through.
type AccountRef struct {
	ID       uuid.UUID
	RoleID   uuid.UUID
	RoleName string
	RoleKind RoleKind
	IsActive bool
}

// PermissionSet is a set of normalized permission names.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from names, normalizing each entry.
func NewPermissionSet(names ...string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, name := range names {
		name = NormalizePermission(name)
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the named permission.
func (s PermissionSet) Has(name string) bool {
	_, ok := s[NormalizePermission(name)]
	return ok
}

// HasAll reports whether every named permission is present.
func (s PermissionSet) HasAll(names []string) bool {
	for _, name := range names {
		if !s.Has(name) {
			return false
		}
	}
	return true
}

// HasAny reports whether at least one named permission is present.
func (s PermissionSet) HasAny(names []string) bool {
	for _, name := range names {
		if s.Has(name) {
			return true
		}
	}
	return false
}

// Names returns the sorted permission names.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizePermission canonicalizes a permission name for comparison.
func NormalizePermission(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
