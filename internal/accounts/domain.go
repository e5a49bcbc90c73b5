package accounts

import (
	"time"

	"github.com/google/uuid"
)

// Account is an authenticatable identity summarized for administration.
type Account struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	RoleID             uuid.UUID `json:"role_id"`
	RoleName           string    `json:"role_name"`
	MustChangePassword bool      `json:"must_change_password"`
	ProfileCompleted   bool      `json:"profile_completed"`
	IsVerified         bool      `json:"is_verified"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
