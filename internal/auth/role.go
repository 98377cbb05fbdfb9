package auth

import "fmt"

type Role int

const (
	RoleNone Role = iota
	RoleAdministrator
	RoleStandardUser
)

func ParseRole(s string) (Role, error) {
	switch s {
	case "admin":
		return RoleAdministrator, nil
	case "user":
		return RoleStandardUser, nil
	default:
		return RoleNone, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// String returns the wire value of the role.
func (r Role) String() string {
	switch r {
	case RoleAdministrator:
		return "admin"
	case RoleStandardUser:
		return "user"
	default:
		return ""
	}
}

// Label is the human readable role name.
func (r Role) Label() string {
	switch r {
	case RoleAdministrator:
		return "Administrator"
	case RoleStandardUser:
		return "User"
	default:
		return ""
	}
}

func (r Role) Valid() bool {
	return r == RoleAdministrator || r == RoleStandardUser
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

type Capability string

const (
	CanAccessAllApps Capability = "canAccessAllApps"
	CanViewAnalytics Capability = "canViewAnalytics"
	CanViewReports   Capability = "canViewReports"
	CanManageUsers   Capability = "canManageUsers"
	CanManageSystem  Capability = "canManageSystem"
)

// PermissionSet is derived from a Role, never stored on its own.
type PermissionSet struct {
	CanAccessAllApps bool `json:"canAccessAllApps"`
	CanViewAnalytics bool `json:"canViewAnalytics"`
	CanViewReports   bool `json:"canViewReports"`
	CanManageUsers   bool `json:"canManageUsers"`
	CanManageSystem  bool `json:"canManageSystem"`
}

var permissionsByRole = map[Role]PermissionSet{
	RoleAdministrator: {
		CanAccessAllApps: true,
		CanViewAnalytics: true,
		CanViewReports:   true,
		CanManageUsers:   true,
		CanManageSystem:  true,
	},
	RoleStandardUser: {
		CanAccessAllApps: true,
		CanViewAnalytics: true,
	},
}

// PermissionsFor returns the capabilities of the role, the zero set for RoleNone.
func PermissionsFor(role Role) PermissionSet {
	return permissionsByRole[role]
}

func (p PermissionSet) Has(c Capability) bool {
	switch c {
	case CanAccessAllApps:
		return p.CanAccessAllApps
	case CanViewAnalytics:
		return p.CanViewAnalytics
	case CanViewReports:
		return p.CanViewReports
	case CanManageUsers:
		return p.CanManageUsers
	case CanManageSystem:
		return p.CanManageSystem
	default:
		return false
	}
}
