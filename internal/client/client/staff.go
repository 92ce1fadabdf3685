package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/schooldesk/internal/client/models"
)

// StaffAPI is the staff part of the REST contract.
type StaffAPI interface {
	ListStaff(ctx context.Context, params models.ListParams) (*models.StaffPage, error)
	GetStaff(ctx context.Context, id string) (*models.Staff, error)
	CreateStaff(ctx context.Context, in models.StaffInput) (*models.Staff, error)
	UpdateStaff(ctx context.Context, id string, in models.StaffInput) (*models.Staff, error)
	DeleteStaff(ctx context.Context, id string) error
	UpdateStaffPermissions(ctx context.Context, id string, perms models.Permissions) (models.Permissions, error)
	ActivateStaff(ctx context.Context, id string) (*models.Staff, error)
	DeactivateStaff(ctx context.Context, id string) (*models.Staff, error)
}

var _ StaffAPI = (*HTTPClient)(nil)

type staffPayload struct {
	Staff models.Staff `json:"staff"`
}

func staffPath(id string) string {
	return "/api/v1/staff/" + url.PathEscape(id)
}

func (c *HTTPClient) ListStaff(ctx context.Context, params models.ListParams) (*models.StaffPage, error) {
	var out models.StaffPage
	err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/api/v1/staff", Query: params.Query()}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetStaff(ctx context.Context, id string) (*models.Staff, error) {
	var out staffPayload
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: staffPath(id)}, &out); err != nil {
		return nil, err
	}
	return &out.Staff, nil
}

func (c *HTTPClient) CreateStaff(ctx context.Context, in models.StaffInput) (*models.Staff, error) {
	var out staffPayload
	if err := c.Do(ctx, &Request{Method: http.MethodPost, Path: "/api/v1/staff", Body: in}, &out); err != nil {
		return nil, err
	}
	return &out.Staff, nil
}

func (c *HTTPClient) UpdateStaff(ctx context.Context, id string, in models.StaffInput) (*models.Staff, error) {
	var out staffPayload
	if err := c.Do(ctx, &Request{Method: http.MethodPut, Path: staffPath(id), Body: in}, &out); err != nil {
		return nil, err
	}
	return &out.Staff, nil
}

func (c *HTTPClient) DeleteStaff(ctx context.Context, id string) error {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: staffPath(id)}, nil)
}

func (c *HTTPClient) UpdateStaffPermissions(ctx context.Context, id string, perms models.Permissions) (models.Permissions, error) {
	var out struct {
		Permissions models.Permissions `json:"permissions"`
	}
	err := c.Do(ctx, &Request{Method: http.MethodPut, Path: staffPath(id) + "/permissions", Body: perms}, &out)
	if err != nil {
		return nil, err
	}
	return out.Permissions, nil
}

func (c *HTTPClient) ActivateStaff(ctx context.Context, id string) (*models.Staff, error) {
	return c.setStaffActive(ctx, id, "activate")
}

func (c *HTTPClient) DeactivateStaff(ctx context.Context, id string) (*models.Staff, error) {
	return c.setStaffActive(ctx, id, "deactivate")
}

// setStaffActive returns the updated record, or nil when the server answered
// without one.
func (c *HTTPClient) setStaffActive(ctx context.Context, id, action string) (*models.Staff, error) {
	var out staffPayload
	if err := c.Do(ctx, &Request{Method: http.MethodPost, Path: staffPath(id) + "/" + action}, &out); err != nil {
		return nil, err
	}
	if out.Staff.ID == "" {
		return nil, nil
	}
	return &out.Staff, nil
}
