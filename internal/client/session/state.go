package session

import (
	"context"

	"github.com/dmitrijs2005/schooldesk/internal/client/models"
)

// State is the lifecycle state of a session.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "uninitialized"
	}
}

// Snapshot is a point-in-time copy of the session. Mutating it has no
// effect on the manager.
type Snapshot struct {
	State        State
	User         *models.User
	AccessToken  string
	RefreshToken string

	IsAuthenticated bool
	IsInitialized   bool
	// Loading is set while a login, profile fetch or password change is
	// pending.
	Loading bool
	// Refreshing is set while a token refresh is in flight. It does not
	// change State.
	Refreshing bool
	// Error is the message of the last failed operation.
	Error string
}

// HasRole reports whether the signed-in user has role.
func (s Snapshot) HasRole(role models.Role) bool {
	return s.User != nil && s.User.Role == role
}

// View names a screen of the console.
type View string

const (
	ViewLogin        View = "login"
	ViewDashboard    View = "dashboard"
	ViewStudents     View = "students"
	ViewStaff        View = "staff"
	ViewProfile      View = "profile"
	ViewUnauthorized View = "unauthorized"
)

// Navigator switches the console to another view.
type Navigator interface {
	Navigate(ctx context.Context, view View)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, view View)

func (f NavigatorFunc) Navigate(ctx context.Context, view View) {
	f(ctx, view)
}

type noopNavigator struct{}

func (noopNavigator) Navigate(context.Context, View) {}

// BootPath records which startup branch Initialize took.
type BootPath int

const (
	BootNoCredentials BootPath = iota
	BootAccessAndRefresh
	BootRefreshOnly
)

func (p BootPath) String() string {
	switch p {
	case BootAccessAndRefresh:
		return "access+refresh"
	case BootRefreshOnly:
		return "refresh-only"
	default:
		return "no-credentials"
	}
}

// InitResult is the outcome of Initialize.
type InitResult struct {
	Path  BootPath
	State State
	// Err is the failure that sent the session to Anonymous, if any.
	Err error
}
