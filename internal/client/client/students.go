package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/schooldesk/internal/client/models"
)

// StudentAPI is the students part of the REST contract.
type StudentAPI interface {
	ListStudents(ctx context.Context, params models.ListParams) (*models.StudentPage, error)
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	CreateStudent(ctx context.Context, in models.StudentInput) (*models.Student, error)
	UpdateStudent(ctx context.Context, id string, in models.StudentInput) (*models.Student, error)
	DeleteStudent(ctx context.Context, id string) error
	UploadStudentPhoto(ctx context.Context, id, fileName string, r io.Reader) (string, error)
	DeleteStudentPhoto(ctx context.Context, id string) error
}

var _ StudentAPI = (*HTTPClient)(nil)

type studentPayload struct {
	Student models.Student `json:"student"`
}

func studentPath(id string) string {
	return "/api/v1/students/" + url.PathEscape(id)
}

func (c *HTTPClient) ListStudents(ctx context.Context, params models.ListParams) (*models.StudentPage, error) {
	var out models.StudentPage
	err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/api/v1/students", Query: params.Query()}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	var out studentPayload
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: studentPath(id)}, &out); err != nil {
		return nil, err
	}
	return &out.Student, nil
}

func (c *HTTPClient) CreateStudent(ctx context.Context, in models.StudentInput) (*models.Student, error) {
	var out studentPayload
	if err := c.Do(ctx, &Request{Method: http.MethodPost, Path: "/api/v1/students", Body: in}, &out); err != nil {
		return nil, err
	}
	return &out.Student, nil
}

func (c *HTTPClient) UpdateStudent(ctx context.Context, id string, in models.StudentInput) (*models.Student, error) {
	var out studentPayload
	if err := c.Do(ctx, &Request{Method: http.MethodPut, Path: studentPath(id), Body: in}, &out); err != nil {
		return nil, err
	}
	return &out.Student, nil
}

func (c *HTTPClient) DeleteStudent(ctx context.Context, id string) error {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: studentPath(id)}, nil)
}

// UploadStudentPhoto sends the photo as the "photo" multipart field and
// returns the stored photo URL. The reader is consumed before the first
// attempt so the request can be replayed after a token refresh.
func (c *HTTPClient) UploadStudentPhoto(ctx context.Context, id, fileName string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}

	var out struct {
		PhotoURL string `json:"photoUrl"`
	}
	err = c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   studentPath(id) + "/photo",
		File:   &FilePart{Field: "photo", FileName: fileName, Data: data},
	}, &out)
	if err != nil {
		return "", err
	}
	return out.PhotoURL, nil
}

func (c *HTTPClient) DeleteStudentPhoto(ctx context.Context, id string) error {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: studentPath(id) + "/photo"}, nil)
}
