package fakeapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type pageInfo struct {
	page, limit int
}

func parsePage(r *http.Request) pageInfo {
	p := pageInfo{page: 1, limit: 10}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		p.page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		p.limit = v
	}
	return p
}

// window returns the [from, to) slice bounds and the pagination fields for
// total items.
func (p pageInfo) window(total int) (int, int, map[string]any) {
	pages := (total + p.limit - 1) / p.limit
	if pages == 0 {
		pages = 1
	}
	from := (p.page - 1) * p.limit
	if from > total {
		from = total
	}
	to := from + p.limit
	if to > total {
		to = total
	}
	return from, to, map[string]any{
		"currentPage": p.page,
		"totalPages":  pages,
		"hasNext":     p.page < pages,
		"hasPrev":     p.page > 1,
	}
}

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func (s *Server) newStudentLocked(in models.StudentInput) *models.Student {
	s.seq++
	now := s.now().UTC()
	st := &models.Student{
		ID:        uuid.NewString(),
		StudentID: fmt.Sprintf("STU%04d", s.seq),
		CreatedAt: &now,
		IsActive:  true,
	}
	applyStudentInput(st, in)
	// newest first, like the backend's default sort
	s.students = append([]*models.Student{st}, s.students...)
	return st
}

func applyStudentInput(st *models.Student, in models.StudentInput) {
	st.Name = in.Name
	st.Email = in.Email
	st.Gender = in.Gender
	st.Standard = in.Standard
	st.Section = in.Section
	st.RollNumber = in.RollNumber
	st.OverallGrade = in.OverallGrade
	st.OverallPercentage = in.OverallPercentage
	st.BloodGroup = in.BloodGroup
	st.ContactInfo = in.ContactInfo
	st.ParentInfo = in.ParentInfo
	if t, err := time.Parse(time.DateOnly, in.DateOfBirth); err == nil {
		st.DateOfBirth = &t
	}
}

func (s *Server) findStudentLocked(id string) (int, *models.Student) {
	for i, st := range s.students {
		if st.ID == id {
			return i, st
		}
	}
	return -1, nil
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := parsePage(r)

	s.mu.Lock()
	filtered := make([]models.Student, 0, len(s.students))
	for _, st := range s.students {
		if !matches(q.Get("search"), st.Name.String(), st.StudentID, st.Email) {
			continue
		}
		if v := q.Get("standard"); v != "" && st.Standard != v {
			continue
		}
		if v := q.Get("section"); v != "" && st.Section != v {
			continue
		}
		filtered = append(filtered, *st)
	}
	s.mu.Unlock()

	from, to, pg := p.window(len(filtered))
	pg["totalStudents"] = len(filtered)
	writeData(w, http.StatusOK, "", map[string]any{"students": filtered[from:to], "pagination": pg})
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, st := s.findStudentLocked(chi.URLParam(r, "id"))
	if st == nil {
		writeError(w, http.StatusNotFound, "Student not found")
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"student": st})
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var in models.StudentInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.Name.FirstName == "" {
		writeError(w, http.StatusBadRequest, "Validation failed",
			fieldError{Field: "name.firstName", Message: "First name is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.students {
		if st.Standard == in.Standard && st.Section == in.Section && st.RollNumber == in.RollNumber {
			writeError(w, http.StatusConflict, "Roll number already exists in this class")
			return
		}
	}
	st := s.newStudentLocked(in)
	writeData(w, http.StatusCreated, "Student created successfully", map[string]any{"student": st})
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	var in models.StudentInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, st := s.findStudentLocked(chi.URLParam(r, "id"))
	if st == nil {
		writeError(w, http.StatusNotFound, "Student not found")
		return
	}
	applyStudentInput(st, in)
	writeData(w, http.StatusOK, "Student updated successfully", map[string]any{"student": st})
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, st := s.findStudentLocked(chi.URLParam(r, "id"))
	if st == nil {
		writeError(w, http.StatusNotFound, "Student not found")
		return
	}
	s.students = append(s.students[:i], s.students[i+1:]...)
	writeData(w, http.StatusOK, "Student deleted successfully", nil)
}

func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Photo file is required")
		return
	}
	defer file.Close()
	if _, err := io.Copy(io.Discard, file); err != nil {
		writeError(w, http.StatusBadRequest, "Could not read photo")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	_, st := s.findStudentLocked(id)
	if st == nil {
		writeError(w, http.StatusNotFound, "Student not found")
		return
	}
	u := fmt.Sprintf("/uploads/students/%s/%s", id, header.Filename)
	st.ProfilePhoto = models.Photo{URL: &u}
	writeData(w, http.StatusOK, "Photo uploaded successfully", map[string]any{"photoUrl": u})
}

func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, st := s.findStudentLocked(chi.URLParam(r, "id"))
	if st == nil {
		writeError(w, http.StatusNotFound, "Student not found")
		return
	}
	st.ProfilePhoto = models.Photo{}
	writeData(w, http.StatusOK, "Photo deleted successfully", nil)
}

func (s *Server) newStaffLocked(in models.StaffInput) *models.Staff {
	s.seq++
	now := s.now().UTC()
	m := &models.Staff{
		ID:          uuid.NewString(),
		EmployeeID:  fmt.Sprintf("EMP%04d", s.seq),
		Role:        models.RoleStaff,
		Permissions: models.Permissions{"students": {"read": true}},
		IsActive:    true,
		CreatedAt:   &now,
	}
	applyStaffInput(m, in)
	s.staff = append([]*models.Staff{m}, s.staff...)
	return m
}

func applyStaffInput(m *models.Staff, in models.StaffInput) {
	m.Name = in.Name
	m.Email = in.Email
	m.Phone = in.Phone
	m.Department = in.Department
	m.Position = in.Position
}

func (s *Server) findStaffLocked(id string) (int, *models.Staff) {
	for i, m := range s.staff {
		if m.ID == id {
			return i, m
		}
	}
	return -1, nil
}

func (s *Server) handleListStaff(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := parsePage(r)

	s.mu.Lock()
	filtered := make([]models.Staff, 0, len(s.staff))
	for _, m := range s.staff {
		if !matches(q.Get("search"), m.Name.String(), m.EmployeeID, m.Email) {
			continue
		}
		if v := q.Get("department"); v != "" && m.Department != v {
			continue
		}
		if v := q.Get("isActive"); v != "" && strconv.FormatBool(m.IsActive) != v {
			continue
		}
		filtered = append(filtered, *m)
	}
	s.mu.Unlock()

	from, to, pg := p.window(len(filtered))
	pg["totalStaff"] = len(filtered)
	writeData(w, http.StatusOK, "", map[string]any{"staff": filtered[from:to], "pagination": pg})
}

func (s *Server) handleGetStaff(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, m := s.findStaffLocked(chi.URLParam(r, "id"))
	if m == nil {
		writeError(w, http.StatusNotFound, "Staff member not found")
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"staff": m})
}

func (s *Server) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	var in models.StaffInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.Email == "" {
		writeError(w, http.StatusBadRequest, "Validation failed",
			fieldError{Field: "email", Message: "Email is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.staff {
		if m.Email == in.Email {
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
	}
	m := s.newStaffLocked(in)
	writeData(w, http.StatusCreated, "Staff member created successfully", map[string]any{"staff": m})
}

func (s *Server) handleUpdateStaff(w http.ResponseWriter, r *http.Request) {
	var in models.StaffInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, m := s.findStaffLocked(chi.URLParam(r, "id"))
	if m == nil {
		writeError(w, http.StatusNotFound, "Staff member not found")
		return
	}
	applyStaffInput(m, in)
	writeData(w, http.StatusOK, "Staff member updated successfully", map[string]any{"staff": m})
}

func (s *Server) handleDeleteStaff(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, m := s.findStaffLocked(chi.URLParam(r, "id"))
	if m == nil {
		writeError(w, http.StatusNotFound, "Staff member not found")
		return
	}
	s.staff = append(s.staff[:i], s.staff[i+1:]...)
	writeData(w, http.StatusOK, "Staff member deleted successfully", nil)
}

func (s *Server) handleStaffPermissions(w http.ResponseWriter, r *http.Request) {
	var perms models.Permissions
	if err := decode(r, &perms); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid permissions")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, m := s.findStaffLocked(chi.URLParam(r, "id"))
	if m == nil {
		writeError(w, http.StatusNotFound, "Staff member not found")
		return
	}
	m.Permissions = perms.Clone()
	writeData(w, http.StatusOK, "Permissions updated successfully", map[string]any{"permissions": m.Permissions})
}

func (s *Server) handleStaffActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, m := s.findStaffLocked(chi.URLParam(r, "id"))
		if m == nil {
			writeError(w, http.StatusNotFound, "Staff member not found")
			return
		}
		m.IsActive = active
		writeData(w, http.StatusOK, "Staff status updated", map[string]any{"staff": m})
	}
}
