// Package access decides what a signed-in user may do. Every authorization
// check in the console goes through CanAccess, so route guarding and
// in-view visibility always agree.
package access

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/schooldesk/internal/client/models"
)

// Modules.
const (
	ModuleStudents = "students"
	ModuleStaff    = "staff"
)

// Actions.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

var (
	Modules = []string{ModuleStudents, ModuleStaff}
	Actions = []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
)

// Permission is a (module, action) capability.
type Permission struct {
	Module string
	Action string
}

func (p Permission) String() string {
	return p.Module + "." + p.Action
}

// IsZero reports whether p names no capability.
func (p Permission) IsZero() bool {
	return p.Module == "" && p.Action == ""
}

// ParsePermission parses "module.action".
func ParsePermission(s string) (Permission, error) {
	module, action, ok := strings.Cut(s, ".")
	if !ok || module == "" || action == "" || strings.Contains(action, ".") {
		return Permission{}, fmt.Errorf("invalid permission %q, want module.action", s)
	}
	return Permission{Module: module, Action: action}, nil
}

// MustPermission is ParsePermission for constants; it panics on bad input.
func MustPermission(s string) Permission {
	p, err := ParsePermission(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Requirement is what a view or command demands. Zero fields are not
// checked; the zero Requirement only demands a session.
type Requirement struct {
	Role       models.Role
	Permission Permission
}

// CanAccess reports whether user satisfies req.
//
// A nil user never passes. A required role must match exactly. A super
// admin passes every permission check; anyone else needs the literal true
// stored at permissions[module][action].
func CanAccess(user *models.User, req Requirement) bool {
	if user == nil {
		return false
	}
	if req.Role != "" && user.Role != req.Role {
		return false
	}
	if req.Permission.IsZero() {
		return true
	}
	if user.Role == models.RoleSuperAdmin {
		return true
	}
	return user.Permissions.Allowed(req.Permission.Module, req.Permission.Action)
}

// Can is CanAccess for a single module/action pair.
func Can(user *models.User, module, action string) bool {
	return CanAccess(user, Requirement{Permission: Permission{Module: module, Action: action}})
}

// Matrix returns the effective grid of every known module and action for
// user.
func Matrix(user *models.User) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(Modules))
	for _, m := range Modules {
		row := make(map[string]bool, len(Actions))
		for _, a := range Actions {
			row[a] = Can(user, m, a)
		}
		out[m] = row
	}
	return out
}
