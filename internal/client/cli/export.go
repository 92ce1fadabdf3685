package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/schooldesk/internal/client/export"
	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/dmitrijs2005/schooldesk/internal/client/session"
)

// Export writes the loaded student or staff list as CSV. When nothing is
// loaded yet the first page is fetched.
func (a *App) Export(ctx context.Context, args []string) error {
	if len(args) != 1 {
		a.notifier.Warning("Usage: export students|staff")
		return nil
	}

	var (
		loc string
		err error
	)
	switch export.Kind(args[0]) {
	case export.KindStudents:
		if !a.open(ctx, session.ViewStudents) {
			return nil
		}
		st := a.students.Snapshot()
		if len(st.Students) == 0 {
			if st, err = a.students.Fetch(ctx, models.ListParams{}); err != nil {
				return a.report(ctx, err)
			}
		}
		loc, err = a.exporter.SaveStudents(ctx, st.Students)

	case export.KindStaff:
		if !a.open(ctx, session.ViewStaff) {
			return nil
		}
		st := a.staff.Snapshot()
		if len(st.Staff) == 0 {
			if st, err = a.staff.Fetch(ctx, models.ListParams{}); err != nil {
				return a.report(ctx, err)
			}
		}
		loc, err = a.exporter.SaveStaff(ctx, st.Staff)

	default:
		a.notifier.Warning("Usage: export students|staff")
		return nil
	}

	if errors.Is(err, export.ErrNothingToExport) {
		a.notifier.Warning("No " + args[0] + " to export.")
		return err
	}
	if err != nil {
		return a.report(ctx, err)
	}
	a.notifier.Success("Exported to " + loc)
	return nil
}
