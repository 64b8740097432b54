// Package auth carries the role hierarchy and the identity-token boundary.
// Role strings from external tokens are normalized here, once; business
// logic only ever sees the Role enum.
package auth

import (
	"strings"

	"newsdesk/internal/apperr"
)

// Role is the closed set of CMS roles, ordered by privilege.
type Role int

const (
	RoleUnknown Role = iota
	RoleContributor
	RoleEditor
	RolePublisher
	RoleAdmin
	RoleSuperAdmin
)

var roleNames = map[Role]string{
	RoleContributor: "CONTRIBUTOR",
	RoleEditor:      "EDITOR",
	RolePublisher:   "PUBLISHER",
	RoleAdmin:       "ADMIN",
	RoleSuperAdmin:  "SUPER_ADMIN",
}

var roleLevels = map[string]Role{
	"CONTRIBUTOR": RoleContributor,
	"EDITOR":      RoleEditor,
	"PUBLISHER":   RolePublisher,
	"ADMIN":       RoleAdmin,
	"SUPER_ADMIN": RoleSuperAdmin,
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}

// Level returns the numeric privilege level. Unknown roles are level 0.
func (r Role) Level() int {
	return int(r)
}

// ParseRole normalizes an external role string (strips a ROLE_ prefix,
// trims, uppercases) and maps it into the hierarchy. Unrecognized roles map
// to RoleUnknown.
func ParseRole(s string) Role {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "ROLE_")
	if r, ok := roleLevels[s]; ok {
		return r
	}
	return RoleUnknown
}

// RequireMin enforces the hierarchy: RequireMin(actor, RoleEditor) allows
// EDITOR, PUBLISHER, ADMIN and SUPER_ADMIN.
func RequireMin(actor Role, min Role) error {
	if actor.Level() < min.Level() {
		return apperr.Permissionf("insufficient permissions")
	}
	return nil
}

// NextReceiver maps an actor role to the next role up, used as the target
// of workflow notifications. Unknown roles default to EDITOR; SUPER_ADMIN
// stays SUPER_ADMIN.
func NextReceiver(actor Role) Role {
	switch actor {
	case RoleContributor:
		return RoleEditor
	case RoleEditor:
		return RolePublisher
	case RolePublisher:
		return RoleAdmin
	case RoleAdmin, RoleSuperAdmin:
		return RoleSuperAdmin
	default:
		return RoleEditor
	}
}
