package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/schooldesk/internal/client/access"
	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/dmitrijs2005/schooldesk/internal/client/session"
	"github.com/pterm/pterm"
)

// Staff dispatches the staff sub-commands. The staff screen is for super
// admins only; the guard enforces that before anything runs.
func (a *App) Staff(ctx context.Context, args []string) error {
	if !a.open(ctx, session.ViewStaff) {
		return nil
	}
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list", "ls":
		return a.listStaff(ctx, args)
	case "get", "show":
		return withID(a, args, func(id string) error { return a.showStaff(ctx, id) })
	case "create", "add":
		return a.createStaff(ctx)
	case "update", "edit":
		return withID(a, args, func(id string) error { return a.updateStaff(ctx, id) })
	case "delete", "rm":
		return withID(a, args, func(id string) error { return a.deleteStaff(ctx, id) })
	case "permissions", "perms":
		return withID(a, args, func(id string) error { return a.staffPermissions(ctx, id) })
	case "activate":
		return withID(a, args, func(id string) error { return a.setStaffActive(ctx, id, true) })
	case "deactivate":
		return withID(a, args, func(id string) error { return a.setStaffActive(ctx, id, false) })
	default:
		printlnFn("Unknown staff command:", sub)
		return nil
	}
}

func (a *App) listStaff(ctx context.Context, args []string) error {
	params, err := parseFilters(args, "page", "limit", "search", "department", "active")
	if err != nil {
		a.notifier.Warning(err.Error())
		return err
	}
	st, err := a.staff.Fetch(ctx, params)
	if err != nil {
		return a.report(ctx, err)
	}

	a.print(pterm.DefaultSection.Sprintln("Staff"))
	if len(st.Staff) == 0 {
		a.print(pterm.Info.Sprintln("No staff members found."))
		return nil
	}
	data := pterm.TableData{{"ID", "Employee ID", "Name", "Email", "Department", "Position", "Status"}}
	for _, m := range st.Staff {
		data = append(data, []string{
			m.ID, m.EmployeeID, m.Name.String(), m.Email, m.Department, m.Position, statusLabel(m.IsActive),
		})
	}
	if err := a.table(data, true); err != nil {
		return err
	}
	a.print(pageFooter(st.Pagination, "staff members") + "\n")
	return nil
}

func (a *App) showStaff(ctx context.Context, id string) error {
	m, err := a.staff.Get(ctx, id)
	if err != nil {
		return a.report(ctx, err)
	}

	a.print(pterm.DefaultSection.Sprintln(m.Name.String()))
	if err := a.table(pterm.TableData{
		{"Employee ID", m.EmployeeID},
		{"Email", m.Email},
		{"Phone", m.Phone},
		{"Department", m.Department},
		{"Position", m.Position},
		{"Role", roleLabel(m.Role)},
		{"Status", statusLabel(m.IsActive)},
		{"Joined", dateLabel(m.CreatedAt)},
	}, false); err != nil {
		return err
	}
	return a.table(permissionTable(grid(m.Permissions)), true)
}

func (a *App) staffForm(cur models.StaffInput, withPassword bool) (models.StaffInput, error) {
	f := a.form()
	in := cur
	in.Name.FirstName = f.text("First name", cur.Name.FirstName)
	in.Name.LastName = f.text("Last name", cur.Name.LastName)
	in.Email = f.text("Email", cur.Email)
	in.Phone = f.text("Phone (optional)", cur.Phone)
	in.Department = f.text("Department (Administration, Academics, Sports, Arts, Science)", cur.Department)
	in.Position = f.text("Position", cur.Position)
	if withPassword {
		in.Password = f.secret("Password")
		in.ConfirmPassword = f.secret("Confirm password")
	}
	return in, f.err
}

func (a *App) createStaff(ctx context.Context) error {
	in, err := a.staffForm(models.StaffInput{}, true)
	if err != nil {
		return a.report(ctx, err)
	}
	m, err := a.staff.Create(ctx, in)
	if err != nil {
		return a.report(ctx, err)
	}
	a.notifier.Success(fmt.Sprintf("Staff member %s created successfully.", m.EmployeeID))
	return nil
}

func (a *App) updateStaff(ctx context.Context, id string) error {
	cur, err := a.staff.Get(ctx, id)
	if err != nil {
		return a.report(ctx, err)
	}
	in, err := a.staffForm(models.StaffInput{
		Name:       cur.Name,
		Email:      cur.Email,
		Phone:      cur.Phone,
		Department: cur.Department,
		Position:   cur.Position,
	}, false)
	if err != nil {
		return a.report(ctx, err)
	}
	if _, err := a.staff.Update(ctx, id, in); err != nil {
		return a.report(ctx, err)
	}
	a.notifier.Success("Staff member updated successfully.")
	return nil
}

func (a *App) deleteStaff(ctx context.Context, id string) error {
	f := a.form()
	if !f.confirm(fmt.Sprintf("Delete staff member %s?", id)) {
		return f.err
	}
	if err := a.staff.Delete(ctx, id); err != nil {
		return a.report(ctx, err)
	}
	a.notifier.Success("Staff member deleted successfully.")
	return nil
}

// staffPermissions asks for every module/action grant, defaulting to the
// current value, and saves the full matrix.
func (a *App) staffPermissions(ctx context.Context, id string) error {
	cur, err := a.staff.Get(ctx, id)
	if err != nil {
		return a.report(ctx, err)
	}

	f := a.form()
	perms := make(models.Permissions, len(access.Modules))
	for _, mod := range access.Modules {
		perms[mod] = make(map[string]bool, len(access.Actions))
		for _, act := range access.Actions {
			v := f.text(fmt.Sprintf("%s.%s (yes/no)", mod, act), yesNo(cur.Permissions.Allowed(mod, act)))
			perms[mod][act] = v == "yes" || v == "y" || v == "true"
		}
	}
	if f.err != nil {
		return f.err
	}

	if _, err := a.staff.UpdatePermissions(ctx, id, perms); err != nil {
		return a.report(ctx, err)
	}
	a.notifier.Success("Permissions updated successfully.")
	return nil
}

func (a *App) setStaffActive(ctx context.Context, id string, active bool) error {
	var err error
	if active {
		_, err = a.staff.Activate(ctx, id)
	} else {
		_, err = a.staff.Deactivate(ctx, id)
	}
	if err != nil {
		return a.report(ctx, err)
	}
	if active {
		a.notifier.Success("Staff member activated.")
	} else {
		a.notifier.Success("Staff member deactivated.")
	}
	return nil
}

// grid expands p to every known module and action.
func grid(p models.Permissions) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(access.Modules))
	for _, mod := range access.Modules {
		row := make(map[string]bool, len(access.Actions))
		for _, act := range access.Actions {
			row[act] = p.Allowed(mod, act)
		}
		out[mod] = row
	}
	return out
}
