package models

import (
	"fmt"
	"strings"
)

// Role is the school-level role of the acting user. Channel visibility and
// moderation access are decided by capability membership, not by comparing
// role names at call sites.
type Role int

const (
	RoleStudent Role = iota
	RoleInstructor
	RoleAdmin
	RoleSuperadmin
)

type Capability int

const (
	// CapPost allows sending, editing own and reacting to messages.
	CapPost Capability = iota
	// CapModerate allows viewing the moderation queue and resolving reports.
	CapModerate
	// CapManageChannels allows creating channels and categories.
	CapManageChannels
)

var roleCaps = map[Role]map[Capability]struct{}{
	RoleStudent:    {CapPost: {}},
	RoleInstructor: {CapPost: {}, CapManageChannels: {}},
	RoleAdmin:      {CapPost: {}, CapManageChannels: {}, CapModerate: {}},
	RoleSuperadmin: {CapPost: {}, CapManageChannels: {}, CapModerate: {}},
}

// Can reports whether the role holds the capability.
func (r Role) Can(c Capability) bool {
	caps, ok := roleCaps[r]
	if !ok {
		return false
	}
	_, ok = caps[c]
	return ok
}

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleInstructor:
		return "instructor"
	case RoleAdmin:
		return "admin"
	case RoleSuperadmin:
		return "superadmin"
	}
	return "unknown"
}

// ParseRole maps a role label to a Role. Unknown labels are an error so
// callers fail closed rather than defaulting to a capable role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student", "":
		return RoleStudent, nil
	case "instructor", "cfi":
		return RoleInstructor, nil
	case "admin":
		return RoleAdmin, nil
	case "superadmin":
		return RoleSuperadmin, nil
	}
	return RoleStudent, fmt.Errorf("unknown role: %q", s)
}
