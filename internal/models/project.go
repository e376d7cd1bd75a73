package models

import (
	"time"
)

// Role represents a member's permission level within a project.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// AllRoles lists every role, highest privilege first.
var AllRoles = []Role{RoleOwner, RoleAdmin, RoleMember}

// ParseRole converts a string to Role. Unknown strings map to RoleMember.
func ParseRole(s string) Role {
	switch s {
	case "owner":
		return RoleOwner
	case "admin":
		return RoleAdmin
	default:
		return RoleMember
	}
}

// ValidRole reports whether s names one of the three roles.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// CanManage returns true if the role may modify project settings and members.
func (r Role) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Project represents a board with its membership list attached.
type Project struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	CreatedBy   string       `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	Members     []Membership `json:"members,omitempty"`
}

// Membership joins an identity to a project with a role.
// There is at most one membership per (project, identity) pair.
type Membership struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"project_id"`
	UserID    string   `json:"user_id"`
	Role      Role     `json:"role"`
	Profile   *Profile `json:"profile,omitempty"`
}

// MemberRole returns the membership role recorded for userID, if any.
// The project creator is owner-equivalent even without a membership row;
// that rule lives in the project manager's HasRole, not here.
func (p *Project) MemberRole(userID string) (Role, bool) {
	for _, m := range p.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}
