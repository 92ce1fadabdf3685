// Package fakeapi is an in-process implementation of the school records REST
// API used by tests. It issues real HS256 JWT access tokens, keeps refresh
// tokens in memory and counts every call so tests can assert wire traffic.
package fakeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Route keys accepted by Calls.
const (
	RouteLogin          = "POST /api/v1/auth/login"
	RouteRefresh        = "POST /api/v1/auth/refresh"
	RouteMe             = "GET /api/v1/auth/me"
	RouteLogout         = "POST /api/v1/auth/logout"
	RouteChangePassword = "POST /api/v1/auth/change-password"
	RouteListStudents   = "GET /api/v1/students"
	RouteListStaff      = "GET /api/v1/staff"
)

// Test hashes only need to be verifiable, not expensive.
var passwordParams = &argon2id.Params{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

type account struct {
	user     models.User
	password string // argon2id PHC hash
}

// Server is a running fake API. Close it with Close.
type Server struct {
	*httptest.Server

	secret []byte

	mu            sync.Mutex
	accessTTL     time.Duration
	refreshDelay  time.Duration
	rotateRefresh bool
	failRefresh   bool
	accounts      map[string]*account // by email
	refreshTokens map[string]string   // token -> email
	students      []*models.Student
	staff         []*models.Staff
	calls         map[string]int
	seq           int
	now           func() time.Time
	skew          atomic.Int64 // nanoseconds added to now, see Advance
}

type Option func(*Server)

// WithAccessTTL sets the lifetime of issued access tokens.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) { s.accessTTL = d }
}

// WithRefreshDelay makes the refresh endpoint sleep before answering, which
// widens the window for concurrent requests to pile up behind it.
func WithRefreshDelay(d time.Duration) Option {
	return func(s *Server) { s.refreshDelay = d }
}

// WithRefreshRotation makes refresh return a new refresh token and revoke
// the old one.
func WithRefreshRotation() Option {
	return func(s *Server) { s.rotateRefresh = true }
}

func New(opts ...Option) *Server {
	s := &Server{
		secret:        []byte(uuid.NewString()),
		accessTTL:     15 * time.Minute,
		accounts:      map[string]*account{},
		refreshTokens: map[string]string{},
		calls:         map[string]int{},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.count)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)
		r.Post("/auth/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/change-password", s.handleChangePassword)

			r.Route("/students", func(r chi.Router) {
				r.With(s.require("students", "read")).Get("/", s.handleListStudents)
				r.With(s.require("students", "create")).Post("/", s.handleCreateStudent)
				r.With(s.require("students", "read")).Get("/{id}", s.handleGetStudent)
				r.With(s.require("students", "update")).Put("/{id}", s.handleUpdateStudent)
				r.With(s.require("students", "delete")).Delete("/{id}", s.handleDeleteStudent)
				r.With(s.require("students", "update")).Post("/{id}/photo", s.handleUploadPhoto)
				r.With(s.require("students", "update")).Delete("/{id}/photo", s.handleDeletePhoto)
			})

			r.Route("/staff", func(r chi.Router) {
				r.Use(s.superAdminOnly)
				r.Get("/", s.handleListStaff)
				r.Post("/", s.handleCreateStaff)
				r.Get("/{id}", s.handleGetStaff)
				r.Put("/{id}", s.handleUpdateStaff)
				r.Delete("/{id}", s.handleDeleteStaff)
				r.Put("/{id}/permissions", s.handleStaffPermissions)
				r.Post("/{id}/activate", s.handleStaffActive(true))
				r.Post("/{id}/deactivate", s.handleStaffActive(false))
			})
		})
	})
	return r
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.Method+" "+strings.TrimSuffix(r.URL.Path, "/")]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Calls returns how many requests hit route ("METHOD /path").
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns the number of requests received on any route.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// ResetCalls zeroes all counters.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = map[string]int{}
}

// SetFailRefresh makes every refresh call answer 401.
func (s *Server) SetFailRefresh(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRefresh = v
}

// AddUser registers a user able to log in with password.
func (s *Server) AddUser(u models.User, password string) models.User {
	hash, err := argon2id.CreateHash(password, passwordParams)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.accounts[u.Email] = &account{user: u, password: hash}
	return u
}

// RemoveUser deletes the account behind email. Tokens already issued for it
// are then answered with "User not found".
func (s *Server) RemoveUser(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, email)
}

// IssueTokens returns a fresh access/refresh pair for email, as a login
// would, without counting a login call.
func (s *Server) IssueTokens(email string) (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessTokenLocked(email, s.accessTTL), s.refreshTokenLocked(email)
}

// ExpiredAccessToken returns a correctly signed access token for email that
// expired a minute ago.
func (s *Server) ExpiredAccessToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessTokenLocked(email, -time.Minute)
}

// RevokeRefreshTokens invalidates every outstanding refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = map[string]string{}
}

// RefreshTokenValid reports whether token is still accepted by refresh.
func (s *Server) RefreshTokenValid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.refreshTokens[token]
	return ok
}

// SeedStudents adds n students and returns them.
func (s *Server) SeedStudents(n int) []models.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Student, 0, n)
	for i := 0; i < n; i++ {
		st := s.newStudentLocked(models.StudentInput{
			Name:       models.PersonName{FirstName: fmt.Sprintf("Student%d", i+1), LastName: "Test"},
			Standard:   "5th",
			Section:    "A",
			Gender:     "Other",
			RollNumber: fmt.Sprint(i + 1),
		})
		out = append(out, *st)
	}
	return out
}

// SeedStaff adds n staff members and returns them.
func (s *Server) SeedStaff(n int) []models.Staff {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Staff, 0, n)
	for i := 0; i < n; i++ {
		m := s.newStaffLocked(models.StaffInput{
			Name:       models.PersonName{FirstName: fmt.Sprintf("Staff%d", i+1), LastName: "Test"},
			Email:      fmt.Sprintf("staff%d@school.test", i+1),
			Department: "Academics",
			Position:   "Teacher",
		})
		out = append(out, *m)
	}
	return out
}

func (s *Server) clock() time.Time {
	return s.now().Add(time.Duration(s.skew.Load()))
}

// Advance moves the server clock forward by d, expiring access tokens
// issued before.
func (s *Server) Advance(d time.Duration) {
	s.skew.Add(int64(d))
}

type claims struct {
	jwt.RegisteredClaims
}

func (s *Server) accessTokenLocked(email string, ttl time.Duration) string {
	now := s.clock()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) refreshTokenLocked(email string) string {
	t := uuid.NewString()
	s.refreshTokens[t] = email
	return t
}

func (s *Server) parseAccessToken(raw string) (string, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clock))
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, map[string]any{"success": true, "message": message, "data": data})
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string, fields ...fieldError) {
	body := map[string]any{"success": false, "message": message}
	if len(fields) > 0 {
		body["errors"] = fields
	}
	writeJSON(w, status, body)
}

var errNoBody = errors.New("empty body")

func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return errNoBody
	}
	return json.NewDecoder(r.Body).Decode(v)
}
