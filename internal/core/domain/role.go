package domain

import (
	"regexp"
	"strings"
)

// Permissions understood by the API.
const (
	PermManageMagazine = "manage_magazine"
	PermManageSettings = "manage_settings"
	PermManageRoles    = "manage_roles"
)

// RoleAdmin is the role carried by admin-password sessions.
const RoleAdmin = "admin"

// AdminSubject identifies admin-password sessions. It can never be a username.
const AdminSubject = "@admin"

// superRoleNames grant every permission.
var superRoleNames = map[string]struct{}{
	RoleAdmin: {},
	"owner":   {},
}

// staffRoleNames imply magazine access even without an explicit permission.
var staffRoleNames = map[string]struct{}{
	"staff":    {},
	"персонал": {},
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Role is a named, colored badge carrying permission strings.
type Role struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	Permissions []string `json:"permissions"`
}

// Validate checks name and color of a role about to be created.
func (r *Role) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return Invalid("name", "is required")
	}
	if r.Color != "" && !colorPattern.MatchString(r.Color) {
		return Invalid("color", "must be a hex color like #ff9900")
	}
	for _, p := range r.Permissions {
		if strings.TrimSpace(p) == "" {
			return Invalid("permissions", "must not contain empty values")
		}
	}
	return nil
}

// Principal is the authenticated caller of an admin or staff route.
type Principal struct {
	Subject string
	Roles   []Role
}

// IsAdminSession reports whether p was issued for the admin password rather
// than to a staff member.
func (p Principal) IsAdminSession() bool { return p.Subject == AdminSubject }

// HasPermission reports whether any of roles grants perm.
func HasPermission(roles []Role, perm string) bool {
	for _, r := range roles {
		name := strings.ToLower(r.Name)
		if _, ok := superRoleNames[name]; ok {
			return true
		}
		for _, p := range r.Permissions {
			if p == perm {
				return true
			}
		}
		if perm == PermManageMagazine {
			if _, ok := staffRoleNames[name]; ok {
				return true
			}
		}
	}
	return false
}

// IsStaff reports whether roles grant any permission at all.
func IsStaff(roles []Role) bool {
	for _, p := range []string{PermManageMagazine, PermManageSettings, PermManageRoles} {
		if HasPermission(roles, p) {
			return true
		}
	}
	return false
}
