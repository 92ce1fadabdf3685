package fakeapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/golang-jwt/jwt/v5"
)

type ctxKey struct{}

func userFrom(ctx context.Context) models.User {
	u, _ := ctx.Value(ctxKey{}).(models.User)
	return u
}

// authenticate mirrors the backend's bearer middleware: an expired token
// yields "Access token has expired", any other bad token "Invalid token",
// and a missing header a plain 401 that is not expiry-shaped.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "Access token required")
			return
		}

		email, err := s.parseAccessToken(raw)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			writeError(w, http.StatusUnauthorized, "Access token has expired")
			return
		case err != nil:
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		s.mu.Lock()
		acc, ok := s.accounts[email]
		var u models.User
		if ok {
			u = *acc.user.Clone()
		}
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "User not found")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
	})
}

func (s *Server) require(module, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := userFrom(r.Context())
			if u.Role != models.RoleSuperAdmin && !u.Permissions.Allowed(module, action) {
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) superAdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userFrom(r.Context()).Role != models.RoleSuperAdmin {
			writeError(w, http.StatusForbidden, "Super admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[req.Email]
	var hash string
	var user models.User
	if ok {
		hash, user = acc.password, *acc.user.Clone()
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, hash)
	if err != nil || !match {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	access, refresh := s.IssueTokens(req.Email)
	writeData(w, http.StatusOK, "Login successful", map[string]any{
		"user":         user,
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decode(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token required")
		return
	}

	s.mu.Lock()
	delay := s.refreshDelay
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.refreshTokens[req.RefreshToken]
	if s.failRefresh || !ok {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	data := map[string]any{"accessToken": s.accessTokenLocked(email, s.accessTTL)}
	if s.rotateRefresh {
		delete(s.refreshTokens, req.RefreshToken)
		data["refreshToken"] = s.refreshTokenLocked(email)
	}
	writeData(w, http.StatusOK, "Token refreshed", data)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = decode(r, &req)

	s.mu.Lock()
	delete(s.refreshTokens, req.RefreshToken)
	s.mu.Unlock()

	writeData(w, http.StatusOK, "Logged out", nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, "", map[string]any{"user": userFrom(r.Context())})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "Validation failed",
			fieldError{Field: "confirmPassword", Message: "Passwords do not match"})
		return
	}

	u := userFrom(r.Context())

	s.mu.Lock()
	acc := s.accounts[u.Email]
	current := acc.password
	s.mu.Unlock()

	match, err := argon2id.ComparePasswordAndHash(req.CurrentPassword, current)
	if err != nil || !match {
		writeError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}

	hash, err := argon2id.CreateHash(req.NewPassword, passwordParams)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.mu.Lock()
	acc.password = hash
	for t, e := range s.refreshTokens {
		if e == u.Email {
			delete(s.refreshTokens, t)
		}
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, "Password changed successfully. Please log in again.", nil)
}
