package client

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/dmitrijs2005/schooldesk/internal/client/fakeapi"
	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) (*fakeapi.Server, *HTTPClient, *stubTokens) {
	t.Helper()
	srv := fakeapi.New()
	t.Cleanup(srv.Close)

	srv.AddUser(models.User{Email: "admin@school.test", Role: models.RoleSuperAdmin,
		Name: models.PersonName{FirstName: "Ada", LastName: "Admin"}}, "secret1")

	ts := &stubTokens{}
	c := New(srv.URL, WithTokenSource(ts))
	ts.refresh = func(ctx context.Context) (string, error) {
		t.Fatal("unexpected refresh")
		return "", nil
	}
	return srv, c, ts
}

func TestAuthEndpoints(t *testing.T) {
	srv, c, ts := newAPI(t)
	ctx := context.Background()

	_, err := c.Login(ctx, Credentials{Email: "admin@school.test", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", Message(err))

	resp, err := c.Login(ctx, Credentials{Email: "admin@school.test", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleSuperAdmin, resp.User.Role)

	ts.access = resp.AccessToken
	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada Admin", me.Name.String())

	pair, err := c.Refresh(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Empty(t, pair.RefreshToken, "server did not rotate")

	msg, err := c.ChangePassword(ctx, ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "secret2", ConfirmPassword: "secret2"})
	require.NoError(t, err)
	assert.Contains(t, msg, "Password changed")
	assert.False(t, srv.RefreshTokenValid(resp.RefreshToken), "server invalidated the session")

	require.NoError(t, c.Logout(ctx, "unknown"))
	assert.Equal(t, 1, srv.Calls(fakeapi.RouteLogout))
}

func TestStudentEndpoints(t *testing.T) {
	srv, c, ts := newAPI(t)
	ctx := context.Background()
	ts.access, _ = srv.IssueTokens("admin@school.test")
	srv.SeedStudents(12)

	page, err := c.ListStudents(ctx, models.DefaultListParams())
	require.NoError(t, err)
	assert.Len(t, page.Students, 10)
	assert.Equal(t, 12, page.Page().Total)
	assert.True(t, page.Page().HasNext)

	created, err := c.CreateStudent(ctx, models.StudentInput{
		Name:        models.PersonName{FirstName: "New", LastName: "Kid"},
		DateOfBirth: "2015-04-01",
		Gender:      "Female",
		Standard:    "3rd",
		Section:     "B",
		RollNumber:  "7",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	require.NotNil(t, created.DateOfBirth)

	got, err := c.GetStudent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.StudentID, got.StudentID)

	upd, err := c.UpdateStudent(ctx, created.ID, models.StudentInput{
		Name: models.PersonName{FirstName: "Renamed", LastName: "Kid"}, Standard: "3rd", Section: "B", RollNumber: "7",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", upd.Name.FirstName)

	u, err := c.UploadStudentPhoto(ctx, created.ID, "me.jpg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	assert.Contains(t, u, "me.jpg")
	require.NoError(t, c.DeleteStudentPhoto(ctx, created.ID))

	require.NoError(t, c.DeleteStudent(ctx, created.ID))
	_, err = c.GetStudent(ctx, created.ID)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, KindDomain, apiErr.Kind())
}

func TestStaffEndpoints(t *testing.T) {
	srv, c, ts := newAPI(t)
	ctx := context.Background()
	ts.access, _ = srv.IssueTokens("admin@school.test")

	m, err := c.CreateStaff(ctx, models.StaffInput{
		Name:       models.PersonName{FirstName: "Tom", LastName: "Teacher"},
		Email:      "tom@school.test",
		Department: "Science",
		Position:   "Teacher",
		Password:   "secret1", ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	assert.True(t, m.IsActive)

	_, err = c.CreateStaff(ctx, models.StaffInput{Email: "tom@school.test"})
	assert.Equal(t, "Email already registered", Message(err))

	perms, err := c.UpdateStaffPermissions(ctx, m.ID, models.Permissions{"students": {"read": true, "update": true}})
	require.NoError(t, err)
	assert.True(t, perms.Allowed("students", "update"))

	off, err := c.DeactivateStaff(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, off.IsActive)
	on, err := c.ActivateStaff(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, on.IsActive)

	inactive := false
	page, err := c.ListStaff(ctx, models.ListParams{IsActive: &inactive})
	require.NoError(t, err)
	assert.Empty(t, page.Staff)

	got, err := c.GetStaff(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "tom@school.test", got.Email)

	upd, err := c.UpdateStaff(ctx, m.ID, models.StaffInput{Name: got.Name, Email: got.Email, Department: "Arts", Position: "Head"})
	require.NoError(t, err)
	assert.Equal(t, "Arts", upd.Department)

	require.NoError(t, c.DeleteStaff(ctx, m.ID))
}

func TestStaffEndpoints_ForbiddenForStaffRole(t *testing.T) {
	srv, c, ts := newAPI(t)
	srv.AddUser(models.User{Email: "t@school.test", Role: models.RoleStaff,
		Permissions: models.Permissions{"students": {"read": true}}}, "secret1")
	ts.access, _ = srv.IssueTokens("t@school.test")

	_, err := c.ListStaff(context.Background(), models.DefaultListParams())
	assert.Equal(t, KindAuthorization, KindOf(err))

	_, err = c.ListStudents(context.Background(), models.DefaultListParams())
	assert.NoError(t, err)

	_, expired := ts.counts()
	assert.Zero(t, expired, "403 never clears the session")
}
