// Package session owns the signed-in identity of the console: the state
// machine, the tokens and the refresh coordinator the API client calls
// back into when an access token expires.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/schooldesk/internal/client/client"
	"github.com/dmitrijs2005/schooldesk/internal/client/credentials"
	"github.com/dmitrijs2005/schooldesk/internal/client/metrics"
	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/dmitrijs2005/schooldesk/internal/logging"
	"golang.org/x/sync/singleflight"
)

const DefaultRefreshTimeout = 15 * time.Second

// CredentialStore is the persistence the manager writes through to.
type CredentialStore interface {
	Load(ctx context.Context) credentials.Record
	SaveSession(ctx context.Context, rec credentials.Record)
	SetAccessToken(ctx context.Context, token string)
	SetRefreshToken(ctx context.Context, token string)
	SetUser(ctx context.Context, u *models.User)
	Clear(ctx context.Context)
}

// Manager holds the session state. All methods are safe for concurrent use.
type Manager struct {
	api            client.AuthAPI
	store          CredentialStore
	nav            Navigator
	log            logging.Logger
	metrics        *metrics.Metrics
	refreshTimeout time.Duration

	mu   sync.RWMutex
	st   Snapshot
	subs map[int]func(Snapshot)
	next int

	initMu     sync.Mutex
	initDone   bool
	initResult InitResult

	flights singleflight.Group
}

var _ client.TokenSource = (*Manager)(nil)

type Option func(*Manager)

func WithNavigator(n Navigator) Option {
	return func(m *Manager) {
		if n != nil {
			m.nav = n
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithRefreshTimeout bounds a single refresh exchange, independent of the
// caller that started it.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshTimeout = d
		}
	}
}

// NewManager creates a manager with tokens hydrated from store. The session
// stays uninitialized until Initialize runs.
func NewManager(ctx context.Context, api client.AuthAPI, store CredentialStore, opts ...Option) *Manager {
	m := &Manager{
		api:            api,
		store:          store,
		nav:            noopNavigator{},
		log:            logging.Discard(),
		refreshTimeout: DefaultRefreshTimeout,
		subs:           make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("component", "session")

	rec := store.Load(ctx)
	m.st.AccessToken = rec.AccessToken
	m.st.RefreshToken = rec.RefreshToken
	return m
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copyLocked()
}

func (m *Manager) copyLocked() Snapshot {
	s := m.st
	s.User = m.st.User.Clone()
	return s
}

// Subscribe registers fn to be called after every state change. The
// returned function removes the subscription.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// update applies fn under the lock and notifies subscribers outside it.
func (m *Manager) update(fn func(s *Snapshot)) Snapshot {
	m.mu.Lock()
	fn(&m.st)
	snap := m.copyLocked()
	subs := make([]func(Snapshot), 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	m.metrics.SetAuthenticated(snap.IsAuthenticated)
	for _, s := range subs {
		s(snap)
	}
	return snap
}

// AccessToken implements client.TokenSource.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.AccessToken
}

func (m *Manager) CurrentUser() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.User.Clone()
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.IsAuthenticated
}

func (m *Manager) HasRole(role models.Role) bool {
	return m.Snapshot().HasRole(role)
}

func (m *Manager) IsSuperAdmin() bool {
	return m.HasRole(models.RoleSuperAdmin)
}

func (m *Manager) IsStaff() bool {
	return m.HasRole(models.RoleStaff)
}

// ClearError drops the last error message.
func (m *Manager) ClearError() {
	m.update(func(s *Snapshot) { s.Error = "" })
}

// Initialize restores the session from the credential store. It runs the
// startup sequence once; later calls return the first result without
// touching the network.
func (m *Manager) Initialize(ctx context.Context) InitResult {
	m.initMu.Lock()
	defer m.initMu.Unlock()
	if m.initDone {
		return m.initResult
	}

	m.update(func(s *Snapshot) {
		s.State = StateInitializing
		s.Loading = true
	})

	rec := m.store.Load(ctx)
	m.update(func(s *Snapshot) {
		s.AccessToken = rec.AccessToken
		s.RefreshToken = rec.RefreshToken
	})

	res := InitResult{Path: BootNoCredentials}
	var err error
	switch {
	case rec.RefreshToken == "":
		if rec.AccessToken != "" || rec.User != nil {
			m.log.Info(ctx, "dropping credentials without a refresh token")
			m.store.Clear(ctx)
		}
		m.update(func(s *Snapshot) { s.AccessToken = "" })
	case rec.AccessToken != "":
		res.Path = BootAccessAndRefresh
		_, err = m.GetCurrentUser(ctx)
	default:
		res.Path = BootRefreshOnly
		if _, err = m.Refresh(ctx, ""); err == nil {
			_, err = m.GetCurrentUser(ctx)
		}
	}

	if err != nil {
		res.Err = err
		if client.KindOf(err) == client.KindNetwork {
			// Server unreachable: the stored credentials may still be good
			// for the next start, but this one does not send them.
			m.log.Warn(ctx, "session restore failed, server unreachable", "error", err)
			m.update(func(s *Snapshot) {
				s.User = nil
				s.AccessToken = ""
				s.RefreshToken = ""
				s.IsAuthenticated = false
				s.Error = client.Message(err)
			})
		} else {
			m.log.Info(ctx, "stored session rejected", "error", err)
			m.clear(ctx)
		}
	}

	snap := m.update(func(s *Snapshot) {
		s.IsInitialized = true
		s.Loading = false
		s.Refreshing = false
		if s.IsAuthenticated {
			s.State = StateAuthenticated
		} else {
			s.State = StateAnonymous
		}
	})
	res.State = snap.State

	m.log.Info(ctx, "session initialized", "path", res.Path.String(), "state", res.State.String())
	m.initDone = true
	m.initResult = res
	return res
}

// Login authenticates with creds. On failure the stored credentials are
// left as they were.
func (m *Manager) Login(ctx context.Context, creds client.Credentials) (*models.User, error) {
	m.update(func(s *Snapshot) {
		s.Loading = true
		s.Error = ""
	})

	resp, err := m.api.Login(ctx, creds)
	if err != nil {
		m.log.Info(ctx, "login failed", "email", creds.Email, "error", err)
		m.update(func(s *Snapshot) {
			s.Loading = false
			s.Error = client.Message(err)
		})
		return nil, err
	}

	m.store.SaveSession(ctx, credentials.Record{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         &resp.User,
	})

	m.update(func(s *Snapshot) {
		s.User = resp.User.Clone()
		s.AccessToken = resp.AccessToken
		s.RefreshToken = resp.RefreshToken
		s.IsAuthenticated = true
		s.State = StateAuthenticated
		s.Loading = false
	})
	m.log.Info(ctx, "logged in", "email", resp.User.Email, "role", string(resp.User.Role))
	return resp.User.Clone(), nil
}

// GetCurrentUser fetches the profile with the current access token. A
// rejected session is cleared without navigating; a network failure keeps
// it.
func (m *Manager) GetCurrentUser(ctx context.Context) (*models.User, error) {
	m.update(func(s *Snapshot) { s.Loading = true })

	u, err := m.api.Me(ctx)
	if err != nil {
		if client.KindOf(err) == client.KindNetwork {
			m.update(func(s *Snapshot) {
				s.Loading = false
				s.Error = client.Message(err)
			})
			return nil, err
		}
		m.clear(ctx)
		return nil, err
	}

	m.store.SetUser(ctx, u)
	m.update(func(s *Snapshot) {
		s.User = u.Clone()
		s.IsAuthenticated = true
		s.State = StateAuthenticated
		s.Loading = false
	})
	return u, nil
}

// Logout tells the server to drop the refresh token and clears the local
// session. It always succeeds locally.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.RLock()
	rt := m.st.RefreshToken
	m.mu.RUnlock()

	if rt != "" {
		if err := m.api.Logout(ctx, rt); err != nil {
			m.log.Warn(ctx, "logout notification failed", "error", err)
		}
	}
	if m.clear(ctx) {
		m.nav.Navigate(ctx, ViewLogin)
	}
	m.log.Info(ctx, "logged out")
}

// ChangePassword changes the password. The server ends the session on
// success, so the local session is cleared as well.
func (m *Manager) ChangePassword(ctx context.Context, req client.ChangePasswordRequest) (string, error) {
	m.update(func(s *Snapshot) {
		s.Loading = true
		s.Error = ""
	})

	msg, err := m.api.ChangePassword(ctx, req)
	if err != nil {
		m.update(func(s *Snapshot) {
			s.Loading = false
			s.Error = client.Message(err)
		})
		return "", err
	}

	if m.clear(ctx) {
		m.nav.Navigate(ctx, ViewLogin)
	}
	m.log.Info(ctx, "password changed, session ended")
	return msg, nil
}

// Expire implements client.TokenSource. It clears a session the server
// rejected. Network failures and cancellations leave the session intact,
// and so does a rejection of a token the session no longer holds: a
// request started before a logout and re-login must not end the new
// session.
func (m *Manager) Expire(ctx context.Context, token string, reason error) {
	m.expire(ctx, reason, func(s *Snapshot) bool { return s.AccessToken == token })
}

func (m *Manager) expire(ctx context.Context, reason error, still func(s *Snapshot) bool) {
	if reason != nil {
		if client.KindOf(reason) == client.KindNetwork ||
			errors.Is(reason, context.Canceled) || errors.Is(reason, context.DeadlineExceeded) {
			m.log.Debug(ctx, "keeping session after transient failure", "error", reason)
			return
		}
		if errors.Is(reason, ErrSessionChanged) {
			return
		}
	}
	cleared, wasAuthenticated := m.clearIf(ctx, still)
	if !cleared {
		m.log.Debug(ctx, "ignoring rejection of a replaced session", "error", reason)
		return
	}
	if wasAuthenticated {
		m.log.Info(ctx, "session expired", "reason", reason)
		m.metrics.SessionExpired()
		m.nav.Navigate(ctx, ViewLogin)
	}
}

// clear drops the in-memory and persisted session and reports whether it
// was authenticated. Only that transition may redirect to the login view,
// so a session is never sent there twice.
func (m *Manager) clear(ctx context.Context) bool {
	_, wasAuthenticated := m.clearIf(ctx, nil)
	return wasAuthenticated
}

// clearIf is clear guarded by still, which is checked under the same lock
// as the reset. A nil still always clears.
func (m *Manager) clearIf(ctx context.Context, still func(s *Snapshot) bool) (cleared, wasAuthenticated bool) {
	m.update(func(s *Snapshot) {
		if still != nil && !still(s) {
			return
		}
		cleared = true
		wasAuthenticated = s.IsAuthenticated
		s.User = nil
		s.AccessToken = ""
		s.RefreshToken = ""
		s.IsAuthenticated = false
		s.Loading = false
		s.Refreshing = false
		if s.IsInitialized {
			s.State = StateAnonymous
		}
	})
	if cleared {
		m.store.Clear(ctx)
	}
	return cleared, wasAuthenticated
}
