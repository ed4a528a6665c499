package tenantauth

import (
	"fmt"
	"strings"
)

// Role is the closed set of tenant roles. Adding a value requires updating
// every switch in this file.
type Role uint8

const (
	roleUnknown Role = iota
	// RoleAdmin manages users and all tenant data.
	RoleAdmin
	// RoleManager views users and manages projects.
	RoleManager
	// RoleReviewer reviews submitted work.
	RoleReviewer
	// RoleValuer performs valuations.
	RoleValuer
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleAdmin, RoleManager, RoleReviewer, RoleValuer}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleManager:
		return "manager"
	case RoleReviewer:
		return "reviewer"
	case RoleValuer:
		return "valuer"
	case roleUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleReviewer, RoleValuer:
		return true
	default:
		return false
	}
}

// CanManageUsers reports whether r may create, re-role or delete users.
func (r Role) CanManageUsers() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleManager, RoleReviewer, RoleValuer:
		return false
	default:
		return false
	}
}

// CanViewUsers reports whether r may list and read tenant users.
func (r Role) CanViewUsers() bool {
	switch r {
	case RoleAdmin, RoleManager:
		return true
	case RoleReviewer, RoleValuer:
		return false
	default:
		return false
	}
}

// In reports whether r is a member of allowed.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if a == r {
			return true
		}
	}
	return false
}

// ParseRole converts a case-insensitive role name into a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "manager":
		return RoleManager, nil
	case "reviewer":
		return RoleReviewer, nil
	case "valuer":
		return RoleValuer, nil
	default:
		return roleUnknown, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
