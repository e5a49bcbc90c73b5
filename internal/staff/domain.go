package staff

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is used when onboarding omits a staff title.
const DefaultTitle = "Staff"

// InvitationTTL bounds how long a staff invitation token stays valid.
const InvitationTTL = 72 * time.Hour

// Account is the authenticatable identity behind a staff member.
type Account struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone"`
	PasswordHash       string     `json:"-"`
	RoleID             uuid.UUID  `json:"role_id"`
	MustChangePassword bool       `json:"must_change_password"`
	ProfileCompleted   bool       `json:"profile_completed"`
	IsVerified         bool       `json:"is_verified"`
	IsActive           bool       `json:"is_active"`
	InvitationToken    *string    `json:"-"`
	InvitationExpiry   *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Profile is the business-staff profile owned by exactly one account.
type Profile struct {
	ID         uuid.UUID `json:"id"`
	AccountID  uuid.UUID `json:"account_id"`
	BusinessID uuid.UUID `json:"business_id"`
	Title      string    `json:"title"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// View is the joined account, profile and role returned after onboarding.
type View struct {
	Account  Account `json:"account"`
	Profile  Profile `json:"profile"`
	RoleName string  `json:"role_name"`
}

// OnboardParams carries everything needed to provision one staff member.
// AccountID and StaffID are supplied by the caller so a retry lands on the
// same rows instead of creating duplicates.
type OnboardParams struct {
	AccountID    uuid.UUID
	StaffID      uuid.UUID
	Email        string
	Phone        string
	PasswordHash string
	FirstName    string
	LastName     string
	BusinessID   uuid.UUID
	RoleID       uuid.UUID
	// Title is optional and defaults to DefaultTitle. It was added after
	// initial release; callers that omit it keep their old behavior.
	Title string
}
