package client

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/schooldesk/internal/client/models"
)

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,nefield=CurrentPassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

type LoginResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// TokenPair is the refresh response. RefreshToken is empty when the server
// did not rotate it.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthAPI is the authentication part of the REST contract.
type AuthAPI interface {
	Login(ctx context.Context, creds Credentials) (*LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Me(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, req ChangePasswordRequest) (string, error)
}

var _ AuthAPI = (*HTTPClient)(nil)

func (c *HTTPClient) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	var out LoginResponse
	err := c.Do(ctx, &Request{
		Method:         http.MethodPost,
		Path:           "/api/v1/auth/login",
		Body:           creds,
		NoAuthRecovery: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var out TokenPair
	err := c.Do(ctx, &Request{
		Method:         http.MethodPost,
		Path:           "/api/v1/auth/refresh",
		Body:           map[string]string{"refreshToken": refreshToken},
		NoAuthRecovery: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/api/v1/auth/me"}, &out)
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *HTTPClient) Logout(ctx context.Context, refreshToken string) error {
	return c.Do(ctx, &Request{
		Method:         http.MethodPost,
		Path:           "/api/v1/auth/logout",
		Body:           map[string]string{"refreshToken": refreshToken},
		NoAuthRecovery: true,
	}, nil)
}

// ChangePassword returns the server's confirmation message. On success the
// server has already invalidated the session.
func (c *HTTPClient) ChangePassword(ctx context.Context, req ChangePasswordRequest) (string, error) {
	return c.do(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/change-password",
		Body:   req,
	}, nil)
}
