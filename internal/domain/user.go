package domain

import "time"

// Role enumerates the closed set of dashboard roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleExecutive  Role = "executive"
	RoleOperations Role = "operations"
)

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleExecutive, RoleOperations}
}

// ParseRole validates a raw role string against the closed set.
func ParseRole(raw string) (Role, bool) {
	role := Role(raw)
	switch role {
	case RoleAdmin, RoleExecutive, RoleOperations:
		return role, true
	}
	return "", false
}

// User is the domain model for dashboard accounts.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the redacted view attached to requests after verification
// and returned from auth endpoints. Never carries the password hash.
type Identity struct {
	SubjectID string `json:"subject_id"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
}

// Identity derives the redacted view from a user row.
func (u *User) Identity() Identity {
	return Identity{SubjectID: u.ID, Username: u.Username, Role: u.Role}
}
