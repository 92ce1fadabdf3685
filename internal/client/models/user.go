// Package models defines the records exchanged with the school records API:
// users and their permissions, students, staff and list pagination.
package models

import (
	"encoding/json"
	"strings"
)

// Role is the coarse identity class of a console user.
type Role string

const (
	RoleSuperAdmin Role = "superAdmin"
	RoleStaff      Role = "staff"
)

// Permissions maps module name to action name to grant, e.g.
// permissions["students"]["read"].
type Permissions map[string]map[string]bool

// Allowed reports whether the grant for module/action is present and true.
// Missing levels count as not granted.
func (p Permissions) Allowed(module, action string) bool {
	if p == nil {
		return false
	}
	actions, ok := p[module]
	if !ok {
		return false
	}
	return actions[action]
}

// Clone returns a deep copy so callers can mutate it freely.
func (p Permissions) Clone() Permissions {
	if p == nil {
		return nil
	}
	out := make(Permissions, len(p))
	for m, actions := range p {
		inner := make(map[string]bool, len(actions))
		for a, v := range actions {
			inner[a] = v
		}
		out[m] = inner
	}
	return out
}

// PersonName is a first/last name pair. On the wire it is either an object
// {"firstName","lastName"} or, for some user payloads, a plain string.
type PersonName struct {
	FirstName string `json:"firstName" validate:"notblank,max=50"`
	LastName  string `json:"lastName" validate:"notblank,max=50"`
}

func (n PersonName) String() string {
	return strings.TrimSpace(n.FirstName + " " + n.LastName)
}

func (n *PersonName) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		first, last, _ := strings.Cut(strings.TrimSpace(s), " ")
		n.FirstName, n.LastName = first, strings.TrimSpace(last)
		return nil
	}

	type plain PersonName
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*n = PersonName(p)
	return nil
}

// User is the authenticated console user as returned by /auth/login and
// /auth/me.
type User struct {
	ID          string      `json:"id"`
	Name        PersonName  `json:"name"`
	Email       string      `json:"email"`
	Role        Role        `json:"role"`
	Permissions Permissions `json:"permissions,omitempty"`
}

// UnmarshalJSON accepts both "id" and Mongo-style "_id".
func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	var aux struct {
		plain
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*u = User(aux.plain)
	if u.ID == "" {
		u.ID = aux.MongoID
	}
	return nil
}

func (u *User) IsSuperAdmin() bool {
	return u != nil && u.Role == RoleSuperAdmin
}

// Clone returns a deep copy of u (nil-safe).
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Permissions = u.Permissions.Clone()
	return &c
}
