package rbac

import (
	"strings"
	"time"
)

// Role is the operator's console role.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleModerator  Role = "moderator"
	RoleAnalyst    Role = "analyst"
)

// Wildcard grants every permission.
const Wildcard = "*"

// Route permissions.
const (
	PermUsersRead     = "users:read"
	PermContentRead   = "content:read"
	PermJobsRead      = "jobs:read"
	PermAnalyticsRead = "analytics:read"
	PermBillingRead   = "billing:read"
	PermSecurityRead  = "security:read"
	PermSystemManage  = "system:manage"
)

// ParseRole maps a backend role string onto a Role. Unknown values become
// RoleAnalyst, the least privileged role.
func ParseRole(value string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleSuperAdmin:
		return RoleSuperAdmin
	case RoleAdmin:
		return RoleAdmin
	case RoleModerator:
		return RoleModerator
	default:
		return RoleAnalyst
	}
}

// Overrides reports whether the role short-circuits permission checks.
func (r Role) Overrides() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Identity is the operator snapshot received at login. It is replaced
// wholesale on every login and never patched.
type Identity struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	DisplayName      string    `json:"name"`
	Role             Role      `json:"role"`
	Permissions      []string  `json:"permissions"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	IsActive         bool      `json:"isActive"`
	LastLogin        time.Time `json:"lastLogin"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Valid reports whether the identity carries enough data to be trusted.
func (i *Identity) Valid() bool {
	return i != nil && (i.ID != "" || i.Email != "")
}

// Name returns the label shown in the header.
func (i *Identity) Name() string {
	if i == nil {
		return ""
	}
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Email
}

// Principal is what the guard knows about the current request.
type Principal struct {
	Identity      *Identity
	Authenticated bool
}
