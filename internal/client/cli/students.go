package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dmitrijs2005/schooldesk/internal/client/access"
	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/dmitrijs2005/schooldesk/internal/client/session"
	"github.com/pterm/pterm"
)

// Students dispatches the students sub-commands. Without arguments it
// lists the current page.
func (a *App) Students(ctx context.Context, args []string) error {
	if !a.open(ctx, session.ViewStudents) {
		return nil
	}
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list", "ls":
		return a.listStudents(ctx, args)
	case "get", "show":
		return withID(a, args, func(id string) error { return a.showStudent(ctx, id) })
	case "create", "add":
		return a.createStudent(ctx)
	case "update", "edit":
		return withID(a, args, func(id string) error { return a.updateStudent(ctx, id) })
	case "delete", "rm":
		return withID(a, args, func(id string) error { return a.deleteStudent(ctx, id) })
	case "photo":
		return a.studentPhoto(ctx, args)
	default:
		printlnFn("Unknown students command:", sub)
		return nil
	}
}

func withID(a *App, args []string, fn func(id string) error) error {
	if len(args) == 0 {
		a.notifier.Warning("Usage: <command> <id>")
		return nil
	}
	return fn(args[0])
}

func (a *App) listStudents(ctx context.Context, args []string) error {
	params, err := parseFilters(args, "page", "limit", "search", "standard", "section")
	if err != nil {
		a.notifier.Warning(err.Error())
		return err
	}
	st, err := a.students.Fetch(ctx, params)
	if err != nil {
		return a.report(ctx, err)
	}

	a.print(pterm.DefaultSection.Sprintln("Students"))
	if len(st.Students) == 0 {
		a.print(pterm.Info.Sprintln("No students found."))
		return nil
	}
	data := pterm.TableData{{"ID", "Student ID", "Name", "Class", "Roll", "Status"}}
	for _, s := range st.Students {
		data = append(data, []string{
			s.ID, s.StudentID, s.Name.String(), s.Standard + " " + s.Section, s.RollNumber, statusLabel(s.IsActive),
		})
	}
	if err := a.table(data, true); err != nil {
		return err
	}
	a.print(pageFooter(st.Pagination, "students") + "\n")
	return nil
}

func (a *App) showStudent(ctx context.Context, id string) error {
	s, err := a.students.Get(ctx, id)
	if err != nil {
		return a.report(ctx, err)
	}

	a.print(pterm.DefaultSection.Sprintln(s.Name.String()))
	photo := "none"
	if s.ProfilePhoto.URL != nil {
		photo = *s.ProfilePhoto.URL
	}
	return a.table(pterm.TableData{
		{"Student ID", s.StudentID},
		{"Email", s.Email},
		{"Date of birth", dateLabel(s.DateOfBirth)},
		{"Gender", s.Gender},
		{"Class", s.Standard + " " + s.Section},
		{"Roll number", s.RollNumber},
		{"Grade", s.OverallGrade},
		{"Percentage", percentLabel(s.OverallPercentage)},
		{"Blood group", s.BloodGroup},
		{"Status", statusLabel(s.IsActive)},
		{"Photo", photo},
	}, false)
}

// studentForm prompts for the student fields, using cur as defaults.
func (a *App) studentForm(cur models.StudentInput) (models.StudentInput, error) {
	f := a.form()
	in := cur
	in.Name.FirstName = f.text("First name", cur.Name.FirstName)
	in.Name.LastName = f.text("Last name", cur.Name.LastName)
	in.Email = f.text("Email (optional)", cur.Email)
	in.DateOfBirth = f.text("Date of birth (YYYY-MM-DD)", cur.DateOfBirth)
	in.Gender = f.text("Gender (Male, Female, Other)", cur.Gender)
	in.Standard = f.text("Standard (KG, 1st … 12th)", cur.Standard)
	in.Section = f.text("Section (A-D)", cur.Section)
	in.RollNumber = f.text("Roll number", cur.RollNumber)
	in.OverallGrade = f.text("Overall grade (optional)", cur.OverallGrade)
	in.BloodGroup = f.text("Blood group (optional)", cur.BloodGroup)

	pct := f.text("Overall percentage (optional)", percentLabel(cur.OverallPercentage))
	if pct != "" {
		v, err := strconv.ParseFloat(pct, 64)
		if err != nil {
			return in, fmt.Errorf("overall percentage %q is not a number", pct)
		}
		in.OverallPercentage = &v
	}
	return in, f.err
}

func (a *App) createStudent(ctx context.Context) error {
	if !a.allowed(access.ModuleStudents, access.ActionCreate) {
		return nil
	}
	in, err := a.studentForm(models.StudentInput{})
	if err != nil {
		return a.report(ctx, err)
	}
	s, err := a.students.Create(ctx, in)
	if err != nil {
		return a.report(ctx, err)
	}
	a.notifier.Success(fmt.Sprintf("Student %s created successfully.", s.StudentID))
	return nil
}

func (a *App) updateStudent(ctx context.Context, id string) error {
	if !a.allowed(access.ModuleStudents, access.ActionUpdate) {
		return nil
	}
	cur, err := a.students.Get(ctx, id)
	if err != nil {
		return a.report(ctx, err)
	}
	in, err := a.studentForm(studentInputFrom(cur))
	if err != nil {
		return a.report(ctx, err)
	}
	if _, err := a.students.Update(ctx, id, in); err != nil {
		return a.report(ctx, err)
	}
	a.notifier.Success("Student updated successfully.")
	return nil
}

func (a *App) deleteStudent(ctx context.Context, id string) error {
	if !a.allowed(access.ModuleStudents, access.ActionDelete) {
		return nil
	}
	f := a.form()
	if !f.confirm(fmt.Sprintf("Delete student %s?", id)) {
		return f.err
	}
	if err := a.students.Delete(ctx, id); err != nil {
		return a.report(ctx, err)
	}
	a.notifier.Success("Student deleted successfully.")
	return nil
}

// studentPhoto handles "photo <id> <file>" and "photo <id> --remove".
func (a *App) studentPhoto(ctx context.Context, args []string) error {
	if len(args) < 2 {
		a.notifier.Warning("Usage: students photo <id> <file>|--remove")
		return nil
	}
	if !a.allowed(access.ModuleStudents, access.ActionUpdate) {
		return nil
	}
	id, target := args[0], args[1]

	if target == "--remove" {
		if err := a.students.DeletePhoto(ctx, id); err != nil {
			return a.report(ctx, err)
		}
		a.notifier.Success("Photo removed.")
		return nil
	}

	f, err := os.Open(target)
	if err != nil {
		a.notifier.Error(fmt.Sprintf("Cannot open %s: %v", target, err))
		return err
	}
	defer f.Close()

	url, err := a.students.UploadPhoto(ctx, id, filepath.Base(target), f)
	if err != nil {
		return a.report(ctx, err)
	}
	a.notifier.Success("Photo uploaded: " + url)
	return nil
}

func studentInputFrom(s *models.Student) models.StudentInput {
	in := models.StudentInput{
		Name:              s.Name,
		Email:             s.Email,
		Gender:            s.Gender,
		Standard:          s.Standard,
		Section:           s.Section,
		RollNumber:        s.RollNumber,
		OverallGrade:      s.OverallGrade,
		OverallPercentage: s.OverallPercentage,
		BloodGroup:        s.BloodGroup,
		ContactInfo:       s.ContactInfo,
		ParentInfo:        s.ParentInfo,
	}
	if s.DateOfBirth != nil {
		in.DateOfBirth = s.DateOfBirth.UTC().Format(time.DateOnly)
	}
	return in
}

func statusLabel(active bool) string {
	if active {
		return "Active"
	}
	return "Inactive"
}

func dateLabel(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}

func percentLabel(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
