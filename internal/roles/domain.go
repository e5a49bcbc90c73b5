package roles

import (
	"time"

	"github.com/google/uuid"

	"github.com/tripora/tripora/internal/authz"
)

// Role is a named permission grouping. System roles are fixed and immutable,
// preset roles are templates cloned into business-owned roles, business
// roles belong to a single business.
type Role struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Kind          authz.RoleKind `json:"kind"`
	IsCustom      bool           `json:"is_custom"`
	IsImmutable   bool           `json:"is_immutable"`
	BasedOnRoleID *uuid.UUID     `json:"based_on_role_id,omitempty"`
	BusinessID    *uuid.UUID     `json:"business_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Patch carries partial role updates. Nil fields are left untouched.
type Patch struct {
	Name        *string
	Description *string
	Permissions *[]string
}
