package auth

import (
	"github.com/google/uuid"
)

// User is the authenticatable slice of an account used during login.
type User struct {
	ID                 uuid.UUID
	Email              string
	PasswordHash       string
	MustChangePassword bool
	IsActive           bool
}
