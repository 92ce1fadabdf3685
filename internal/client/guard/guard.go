// Package guard decides whether a view may be shown for the current
// session.
package guard

import (
	"fmt"

	"github.com/dmitrijs2005/schooldesk/internal/client/access"
	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/dmitrijs2005/schooldesk/internal/client/session"
)

// Decision is the outcome of a guard evaluation.
type Decision int

const (
	ShowLoading Decision = iota
	RedirectLogin
	RedirectUnauthorized
	Render
	// RedirectDashboard sends an authenticated user away from the login
	// view.
	RedirectDashboard
)

func (d Decision) String() string {
	switch d {
	case ShowLoading:
		return "loading"
	case RedirectLogin:
		return "redirect:login"
	case RedirectUnauthorized:
		return "redirect:unauthorized"
	case RedirectDashboard:
		return "redirect:dashboard"
	default:
		return "render"
	}
}

// Redirect returns the view a redirect decision points to.
func (d Decision) Redirect() (session.View, bool) {
	switch d {
	case RedirectLogin:
		return session.ViewLogin, true
	case RedirectUnauthorized:
		return session.ViewUnauthorized, true
	case RedirectDashboard:
		return session.ViewDashboard, true
	default:
		return "", false
	}
}

// Evaluate guards a protected view. The checks run in a fixed order and
// authentication is never looked at before the session is initialized or
// while a session operation is pending.
func Evaluate(s session.Snapshot, req access.Requirement) Decision {
	switch {
	case !s.IsInitialized, s.Loading:
		return ShowLoading
	case !s.IsAuthenticated:
		return RedirectLogin
	case s.User == nil:
		return ShowLoading
	case !access.CanAccess(s.User, req):
		return RedirectUnauthorized
	default:
		return Render
	}
}

// Route describes one view of the console.
type Route struct {
	View   session.View
	Public bool
	Req    access.Requirement
}

var routes = map[session.View]Route{
	session.ViewLogin:        {View: session.ViewLogin, Public: true},
	session.ViewUnauthorized: {View: session.ViewUnauthorized, Public: true},
	session.ViewDashboard:    {View: session.ViewDashboard},
	session.ViewProfile:      {View: session.ViewProfile},
	session.ViewStudents: {
		View: session.ViewStudents,
		Req:  access.Requirement{Permission: access.Permission{Module: access.ModuleStudents, Action: access.ActionRead}},
	},
	session.ViewStaff: {
		View: session.ViewStaff,
		Req:  access.Requirement{Role: models.RoleSuperAdmin},
	},
}

// Lookup returns the route for view.
func Lookup(view session.View) (Route, error) {
	r, ok := routes[view]
	if !ok {
		return Route{}, fmt.Errorf("unknown view %q", view)
	}
	return r, nil
}

// Check evaluates the route for view. Public views render for anyone once
// the session is initialized, except that the login view sends an
// authenticated user to the dashboard.
func Check(s session.Snapshot, view session.View) (Decision, error) {
	r, err := Lookup(view)
	if err != nil {
		return 0, err
	}
	if !r.Public {
		return Evaluate(s, r.Req), nil
	}
	if !s.IsInitialized {
		return ShowLoading, nil
	}
	if view == session.ViewLogin && s.IsAuthenticated {
		return RedirectDashboard, nil
	}
	return Render, nil
}

// Resolve follows redirects from view until a view renders or the session
// is still loading. It returns the final view and decision.
func Resolve(s session.Snapshot, view session.View) (session.View, Decision, error) {
	for range len(routes) {
		d, err := Check(s, view)
		if err != nil {
			return view, d, err
		}
		next, ok := d.Redirect()
		if !ok {
			return view, d, nil
		}
		view = next
	}
	return view, 0, fmt.Errorf("redirect loop at %q", view)
}
