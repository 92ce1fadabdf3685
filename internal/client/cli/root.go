package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/schooldesk/internal/client/session"
	"github.com/pterm/pterm"
)

func (a *App) getStatus() string {
	s := ""
	if u := a.session.CurrentUser(); u != nil {
		s = fmt.Sprintf("%s %s ", u.Email, u.Role)
	}
	if v := a.screen.Current(); v != "" {
		s += string(v)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root greets the user, shows the first screen and blocks in the REPL.
func (a *App) Root(ctx context.Context) {
	a.print(pterm.DefaultHeader.Sprintln("School Admin Console (type 'help' for commands)"))

	if a.open(ctx, session.ViewDashboard) {
		_ = a.renderDashboard(ctx)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}
