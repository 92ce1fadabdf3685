package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/schooldesk/internal/client/session"
	"github.com/pterm/pterm"
)

// Dashboard shows the counters the user may see.
func (a *App) Dashboard(ctx context.Context) error {
	if !a.open(ctx, session.ViewDashboard) {
		return nil
	}
	return a.renderDashboard(ctx)
}

func (a *App) renderDashboard(ctx context.Context) error {
	u := a.session.CurrentUser()
	stats, err := a.dashboard.Load(ctx, u)
	if err != nil {
		return a.report(ctx, err)
	}

	a.print(pterm.DefaultSection.Sprintln("Dashboard"))
	a.print(fmt.Sprintf("Welcome back, %s (%s)\n", firstNonEmpty(u.Name.FirstName, u.Email), roleLabel(u.Role)))

	data := pterm.TableData{{"Metric", "Value"}}
	if stats.ShowStudents {
		data = append(data, []string{"Total students", strconv.Itoa(stats.TotalStudents)})
	}
	if stats.ShowStaff {
		data = append(data,
			[]string{"Total staff", strconv.Itoa(stats.TotalStaff)},
			[]string{"Active staff", strconv.Itoa(stats.ActiveStaff)},
		)
	}
	if len(data) == 1 {
		a.print(pterm.Info.Sprintln("Nothing to show yet. Ask an administrator for access."))
		return nil
	}
	return a.table(data, true)
}
