package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/schooldesk/internal/client/access"
	"github.com/dmitrijs2005/schooldesk/internal/client/client"
	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/dmitrijs2005/schooldesk/internal/client/session"
	"github.com/pterm/pterm"
)

// Login prompts for credentials and opens the dashboard on success. On
// failure the previous state, including stored credentials, is unchanged.
func (a *App) Login(ctx context.Context) error {
	if !a.open(ctx, session.ViewLogin) {
		if a.session.IsAuthenticated() {
			a.notifier.Info("You are already logged in.")
		}
		return nil
	}

	f := a.form()
	creds := client.Credentials{
		Email:    f.text("Email", ""),
		Password: f.secret("Password"),
	}
	if f.err != nil {
		return f.err
	}
	if err := a.validate.Struct(creds); err != nil {
		return a.report(ctx, err)
	}

	u, err := a.session.Login(ctx, creds)
	if err != nil {
		if client.KindOf(err) == client.KindAuthentication {
			a.notifier.Error(firstNonEmpty(client.Message(err), "Invalid email or password."))
			return err
		}
		return a.report(ctx, err)
	}

	a.notifier.Success(fmt.Sprintf("Welcome, %s!", firstNonEmpty(u.Name.String(), u.Email)))
	if a.open(ctx, session.ViewDashboard) {
		return a.renderDashboard(ctx)
	}
	return nil
}

// Logout ends the session on the server (best effort) and locally.
func (a *App) Logout(ctx context.Context) error {
	if !a.session.IsAuthenticated() {
		a.notifier.Info("You are not logged in.")
		return nil
	}
	a.session.Logout(ctx)
	a.students.Reset()
	a.staff.Reset()
	a.screen.set(session.ViewLogin)
	a.notifier.Success("Logged out successfully.")
	return nil
}

// Profile shows the current user and what they may do.
func (a *App) Profile(ctx context.Context) error {
	if !a.open(ctx, session.ViewProfile) {
		return nil
	}
	u := a.session.CurrentUser()

	a.print(pterm.DefaultSection.Sprintln("Profile"))
	data := pterm.TableData{
		{"Name", u.Name.String()},
		{"Email", u.Email},
		{"Role", roleLabel(u.Role)},
	}
	if err := a.table(data, false); err != nil {
		return err
	}

	if u.Role == models.RoleSuperAdmin {
		a.print(pterm.Info.Sprintln("Super admins have every permission."))
		return nil
	}
	return a.table(permissionTable(access.Matrix(u)), true)
}

// ChangePassword changes the password. The server ends every session on
// success, so the user has to log in again.
func (a *App) ChangePassword(ctx context.Context) error {
	if !a.open(ctx, session.ViewProfile) {
		return nil
	}

	f := a.form()
	req := client.ChangePasswordRequest{
		CurrentPassword: f.secret("Current password"),
		NewPassword:     f.secret("New password"),
		ConfirmPassword: f.secret("Confirm new password"),
	}
	if f.err != nil {
		return f.err
	}
	if err := a.validate.Struct(req); err != nil {
		return a.report(ctx, err)
	}

	msg, err := a.session.ChangePassword(ctx, req)
	if err != nil {
		return a.report(ctx, err)
	}
	a.students.Reset()
	a.staff.Reset()
	a.notifier.Success(firstNonEmpty(msg, "Password changed successfully.") + " Please log in again.")
	return nil
}

func roleLabel(r models.Role) string {
	switch r {
	case models.RoleSuperAdmin:
		return "Super Admin"
	case models.RoleStaff:
		return "Staff"
	default:
		return string(r)
	}
}

// permissionTable renders a permission matrix with one row per module.
func permissionTable(m map[string]map[string]bool) pterm.TableData {
	header := append([]string{"Module"}, access.Actions...)
	data := pterm.TableData{header}

	modules := make([]string, 0, len(m))
	for mod := range m {
		modules = append(modules, mod)
	}
	sort.Strings(modules)

	for _, mod := range modules {
		row := []string{mod}
		for _, act := range access.Actions {
			row = append(row, yesNo(m[mod][act]))
		}
		data = append(data, row)
	}
	return data
}

func (a *App) table(data pterm.TableData, header bool) error {
	t := pterm.DefaultTable.WithData(data)
	if header {
		t = t.WithHasHeader()
	}
	s, err := t.Srender()
	if err != nil {
		return err
	}
	a.print(s + "\n")
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
