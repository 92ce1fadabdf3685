package services

import (
	"context"

	"github.com/dmitrijs2005/schooldesk/internal/client/access"
	"github.com/dmitrijs2005/schooldesk/internal/client/client"
	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/dmitrijs2005/schooldesk/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Stats is the dashboard summary. A section the user may not read is left
// out rather than reported as zero.
type Stats struct {
	ShowStudents  bool
	TotalStudents int

	ShowStaff   bool
	TotalStaff  int
	ActiveStaff int
}

type Dashboard struct {
	students client.StudentAPI
	staff    client.StaffAPI
	log      logging.Logger
}

func NewDashboard(students client.StudentAPI, staff client.StaffAPI, log logging.Logger) *Dashboard {
	if log == nil {
		log = logging.Discard()
	}
	return &Dashboard{students: students, staff: staff, log: log.With("component", "dashboard")}
}

// Load fetches the counters the user may see in parallel. The first error
// cancels the other requests.
func (d *Dashboard) Load(ctx context.Context, user *models.User) (Stats, error) {
	var st Stats
	st.ShowStudents = access.Can(user, access.ModuleStudents, access.ActionRead)
	st.ShowStaff = access.CanAccess(user, access.Requirement{Role: models.RoleSuperAdmin})

	g, ctx := errgroup.WithContext(ctx)
	one := models.ListParams{Page: 1, Limit: 1}

	if st.ShowStudents {
		g.Go(func() error {
			page, err := d.students.ListStudents(ctx, one)
			if err != nil {
				return err
			}
			st.TotalStudents = page.Page().Total
			return nil
		})
	}
	if st.ShowStaff {
		g.Go(func() error {
			page, err := d.staff.ListStaff(ctx, one)
			if err != nil {
				return err
			}
			st.TotalStaff = page.Page().Total
			return nil
		})
		g.Go(func() error {
			active := true
			p := one
			p.IsActive = &active
			page, err := d.staff.ListStaff(ctx, p)
			if err != nil {
				return err
			}
			st.ActiveStaff = page.Page().Total
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		d.log.Warn(ctx, "dashboard load failed", "error", err)
		return Stats{}, err
	}
	return st, nil
}
