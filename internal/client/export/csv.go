// Package export writes student and staff lists as CSV and delivers the
// result to a Sink (a local directory or an S3 bucket).
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/schooldesk/internal/client/models"
)

var ErrNothingToExport = errors.New("nothing to export")

const dateLayout = time.DateOnly

var studentColumns = []string{
	"Student ID", "First Name", "Last Name", "Email", "Date of Birth",
	"Gender", "Standard", "Section", "Roll Number", "Overall Grade",
	"Overall Percentage", "Blood Group", "Status", "Created At",
}

var staffColumns = []string{
	"Employee ID", "First Name", "Last Name", "Email", "Phone",
	"Department", "Position", "Role", "Status", "Created At",
}

// Kind names an exportable collection. It is also the file name prefix.
type Kind string

const (
	KindStudents Kind = "students"
	KindStaff    Kind = "staff"
)

// FileName returns "<kind>_export_YYYY-MM-DD.csv" for the UTC date of now.
func FileName(kind Kind, now time.Time) string {
	return fmt.Sprintf("%s_export_%s.csv", kind, now.UTC().Format(dateLayout))
}

// Students writes one row per student under the student header.
func Students(w io.Writer, students []models.Student) error {
	if len(students) == 0 {
		return ErrNothingToExport
	}
	rows := make([][]string, 0, len(students)+1)
	rows = append(rows, studentColumns)
	for _, s := range students {
		rows = append(rows, []string{
			s.StudentID,
			s.Name.FirstName,
			s.Name.LastName,
			s.Email,
			formatDate(s.DateOfBirth),
			s.Gender,
			s.Standard,
			s.Section,
			s.RollNumber,
			s.OverallGrade,
			formatPercentage(s.OverallPercentage),
			s.BloodGroup,
			status(s.IsActive),
			formatDate(s.CreatedAt),
		})
	}
	return writeAll(w, rows)
}

// Staff writes one row per staff member under the staff header.
func Staff(w io.Writer, staff []models.Staff) error {
	if len(staff) == 0 {
		return ErrNothingToExport
	}
	rows := make([][]string, 0, len(staff)+1)
	rows = append(rows, staffColumns)
	for _, m := range staff {
		rows = append(rows, []string{
			m.EmployeeID,
			m.Name.FirstName,
			m.Name.LastName,
			m.Email,
			m.Phone,
			m.Department,
			m.Position,
			string(m.Role),
			status(m.IsActive),
			formatDate(m.CreatedAt),
		})
	}
	return writeAll(w, rows)
}

func writeAll(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func status(active bool) string {
	if active {
		return "Active"
	}
	return "Inactive"
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

// A missing or zero percentage is left blank.
func formatPercentage(p *float64) string {
	if p == nil || *p == 0 {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
