package validation

import (
	"errors"
	"net/http"
	"testing"

	"github.com/dmitrijs2005/schooldesk/internal/client/client"
	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve Errors
	require.ErrorAs(t, err, &ve)
	out := map[string]string{}
	for _, f := range ve {
		out[f.Field] = f.Message
	}
	return out
}

func validStudent() models.StudentInput {
	return models.StudentInput{
		Name:        models.PersonName{FirstName: "Ann", LastName: "Lee"},
		DateOfBirth: "2014-02-03",
		Gender:      "Female",
		Standard:    "5th",
		Section:     "A",
		RollNumber:  "12",
	}
}

func TestStruct_ValidStudent(t *testing.T) {
	assert.NoError(t, New().Struct(validStudent()))
}

func TestStruct_StudentErrors(t *testing.T) {
	in := validStudent()
	in.Name.FirstName = "   "
	in.Email = "not-an-email"
	in.Section = "Z"
	in.DateOfBirth = "03/02/2014"
	pct := 120.0
	in.OverallPercentage = &pct

	got := fields(t, New().Struct(in))

	assert.Equal(t, "firstName is required", got["name.firstName"])
	assert.Contains(t, got, "email")
	assert.Contains(t, got, "section")
	assert.Contains(t, got, "dateOfBirth")
	assert.Contains(t, got, "overallPercentage")
	assert.NotContains(t, got, "rollNumber")
}

func TestStruct_StaffPasswords(t *testing.T) {
	in := models.StaffInput{
		Name:            models.PersonName{FirstName: "Tom", LastName: "Teacher"},
		Email:           "tom@school.test",
		Department:      "Science",
		Position:        "Teacher",
		Password:        "secret1",
		ConfirmPassword: "secret2",
	}
	got := fields(t, New().Struct(in))
	assert.Equal(t, map[string]string{"confirmPassword": "Passwords do not match"}, got)

	in.ConfirmPassword = "secret1"
	assert.NoError(t, New().Struct(in))

	// Updates carry no password at all.
	in.Password, in.ConfirmPassword = "", ""
	assert.NoError(t, New().Struct(in))
}

func TestStruct_ChangePassword(t *testing.T) {
	v := New()

	got := fields(t, v.Struct(client.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "abc", ConfirmPassword: "abc"}))
	assert.Contains(t, got, "newPassword")

	got = fields(t, v.Struct(client.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "secret1", ConfirmPassword: "secret1"}))
	assert.Equal(t, "newPassword must differ from the current password", got["newPassword"])

	assert.NoError(t, v.Struct(client.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "secret2", ConfirmPassword: "secret2"}))
}

func TestStruct_Login(t *testing.T) {
	got := fields(t, New().Struct(client.Credentials{Email: "x", Password: ""}))
	assert.Len(t, got, 2)
	assert.Contains(t, got, "email")
	assert.Contains(t, got, "password")
}

func TestFieldErrors(t *testing.T) {
	local := New().Struct(client.Credentials{})
	assert.NotEmpty(t, FieldErrors(local))

	server := &client.Error{Type: client.TypeAPI, Status: http.StatusUnprocessableEntity,
		Errors: []client.FieldError{{Field: "email", Message: "Email already registered"}}}
	assert.Equal(t, server.Errors, FieldErrors(server))

	assert.Empty(t, FieldErrors(errors.New("boom")))
}

func TestErrors_Error(t *testing.T) {
	e := Errors{{Field: "a", Message: "a is required"}, {Field: "b", Message: "b is bad"}}
	assert.Equal(t, "validation failed: a is required; b is bad", e.Error())
}
