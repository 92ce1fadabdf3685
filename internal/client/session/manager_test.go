package session

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/schooldesk/internal/client/client"
	"github.com/dmitrijs2005/schooldesk/internal/client/credentials"
	"github.com/dmitrijs2005/schooldesk/internal/client/fakeapi"
	"github.com/dmitrijs2005/schooldesk/internal/client/metrics"
	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/dmitrijs2005/schooldesk/internal/client/storage"
	"github.com/dmitrijs2005/schooldesk/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail = "admin@school.test"
	password   = "secret1"
)

type recordingNav struct {
	mu    sync.Mutex
	views []View
}

func (n *recordingNav) Navigate(_ context.Context, v View) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.views = append(n.views, v)
}

func (n *recordingNav) seen() []View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]View(nil), n.views...)
}

type env struct {
	srv     *fakeapi.Server
	store   *credentials.Store
	api     *client.HTTPClient
	nav     *recordingNav
	metrics *metrics.Metrics
	mgr     *Manager

	closeOnce sync.Once
	closeFn   func()
}

func newEnv(t *testing.T, opts ...fakeapi.Option) *env {
	t.Helper()
	srv := fakeapi.New(opts...)
	srv.AddUser(models.User{
		Email: adminEmail,
		Role:  models.RoleSuperAdmin,
		Name:  models.PersonName{FirstName: "Ada", LastName: "Admin"},
	}, password)

	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "session.db"), logging.Discard())
	require.NoError(t, err)

	tr := &http.Transport{}
	e := &env{
		srv:     srv,
		store:   credentials.NewStore(db, logging.Discard()),
		api:     client.New(srv.URL, client.WithHTTPClient(&http.Client{Transport: tr})),
		nav:     &recordingNav{},
		metrics: metrics.NewMetrics(prometheus.NewRegistry()),
	}
	e.closeFn = func() {
		srv.Close()
		tr.CloseIdleConnections()
		_ = db.Close()
	}
	t.Cleanup(e.close)
	return e
}

func (e *env) close() {
	e.closeOnce.Do(e.closeFn)
}

// start builds the manager, hydrating it from whatever the store holds.
func (e *env) start(opts ...Option) *Manager {
	opts = append([]Option{WithNavigator(e.nav), WithMetrics(e.metrics)}, opts...)
	e.mgr = NewManager(context.Background(), e.api, e.store, opts...)
	e.api.SetTokenSource(e.mgr)
	return e.mgr
}

func (e *env) seed(access, refresh string) {
	e.store.SaveSession(context.Background(), credentials.Record{AccessToken: access, RefreshToken: refresh})
}

// login starts an authenticated, initialized session.
func (e *env) login(t *testing.T) *Manager {
	t.Helper()
	m := e.start()
	m.Initialize(context.Background())
	_, err := m.Login(context.Background(), client.Credentials{Email: adminEmail, Password: password})
	require.NoError(t, err)
	e.srv.ResetCalls()
	return m
}

func TestInitialize_NoCredentials(t *testing.T) {
	e := newEnv(t)
	m := e.start()

	require.Equal(t, StateUninitialized, m.Snapshot().State)
	res := m.Initialize(context.Background())

	assert.Equal(t, BootNoCredentials, res.Path)
	assert.Equal(t, StateAnonymous, res.State)
	assert.NoError(t, res.Err)

	snap := m.Snapshot()
	assert.True(t, snap.IsInitialized)
	assert.False(t, snap.IsAuthenticated)
	assert.False(t, snap.Loading)
	assert.Zero(t, e.srv.TotalCalls())
	assert.Empty(t, e.nav.seen())
}

func TestInitialize_AccessAndRefresh(t *testing.T) {
	e := newEnv(t)
	e.seed(e.srv.IssueTokens(adminEmail))
	m := e.start()

	res := m.Initialize(context.Background())

	assert.Equal(t, BootAccessAndRefresh, res.Path)
	assert.Equal(t, StateAuthenticated, res.State)
	assert.Equal(t, 1, e.srv.Calls(fakeapi.RouteMe))
	assert.Zero(t, e.srv.Calls(fakeapi.RouteRefresh))

	require.NotNil(t, m.CurrentUser())
	assert.Equal(t, "Ada Admin", m.CurrentUser().Name.String())
	assert.True(t, m.IsSuperAdmin())
	assert.False(t, m.IsStaff())

	cached := e.store.User(context.Background())
	require.NotNil(t, cached, "profile cached to the store")
	assert.Equal(t, adminEmail, cached.Email)
}

func TestInitialize_RefreshOnly(t *testing.T) {
	e := newEnv(t, fakeapi.WithRefreshRotation())
	_, refresh := e.srv.IssueTokens(adminEmail)
	e.seed("", refresh)
	m := e.start()

	res := m.Initialize(context.Background())

	assert.Equal(t, BootRefreshOnly, res.Path)
	assert.Equal(t, StateAuthenticated, res.State)
	assert.Equal(t, 1, e.srv.Calls(fakeapi.RouteRefresh))
	assert.Equal(t, 1, e.srv.Calls(fakeapi.RouteMe))

	rec := e.store.Load(context.Background())
	assert.NotEmpty(t, rec.AccessToken)
	assert.NotEqual(t, refresh, rec.RefreshToken, "rotated refresh token persisted")
	assert.True(t, e.srv.RefreshTokenValid(rec.RefreshToken))
	assert.Equal(t, rec.RefreshToken, m.Snapshot().RefreshToken)
}

func TestInitialize_ExpiredAccessRefreshesTransparently(t *testing.T) {
	e := newEnv(t)
	_, refresh := e.srv.IssueTokens(adminEmail)
	e.seed(e.srv.ExpiredAccessToken(adminEmail), refresh)
	m := e.start()

	res := m.Initialize(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, StateAuthenticated, res.State)
	assert.Equal(t, 1, e.srv.Calls(fakeapi.RouteRefresh))
	assert.Equal(t, 2, e.srv.Calls(fakeapi.RouteMe))
	assert.Empty(t, e.nav.seen())
	assert.Equal(t, refresh, e.store.RefreshToken(context.Background()), "not rotated, kept")
}

func TestInitialize_RejectedRefreshClearsWithoutRedirect(t *testing.T) {
	e := newEnv(t)
	e.seed("", "revoked")
	m := e.start()

	res := m.Initialize(context.Background())

	assert.Equal(t, BootRefreshOnly, res.Path)
	assert.Equal(t, StateAnonymous, res.State)
	require.Error(t, res.Err)
	assert.Equal(t, client.KindAuthentication, client.KindOf(res.Err))

	assert.True(t, e.store.Load(context.Background()).Empty())
	assert.Empty(t, e.nav.seen(), "never authenticated, nothing to redirect")
	assert.Zero(t, e.srv.Calls(fakeapi.RouteMe))
}

func TestInitialize_InvalidAccessTokenClears(t *testing.T) {
	e := newEnv(t)
	_, refresh := e.srv.IssueTokens(adminEmail)
	e.seed("garbage", refresh)
	e.srv.RevokeRefreshTokens()
	m := e.start()

	res := m.Initialize(context.Background())

	assert.Equal(t, StateAnonymous, res.State)
	assert.True(t, e.store.Load(context.Background()).Empty())
	assert.False(t, m.Snapshot().IsAuthenticated)
}

func TestInitialize_AccessWithoutRefreshIsDropped(t *testing.T) {
	e := newEnv(t)
	access, _ := e.srv.IssueTokens(adminEmail)
	e.seed(access, "")
	m := e.start()

	res := m.Initialize(context.Background())

	assert.Equal(t, BootNoCredentials, res.Path)
	assert.Equal(t, StateAnonymous, res.State)
	assert.Empty(t, e.store.AccessToken(context.Background()))
	assert.Zero(t, e.srv.TotalCalls())
}

func TestInitialize_ServerDownKeepsStoredCredentials(t *testing.T) {
	e := newEnv(t)
	access, refresh := e.srv.IssueTokens(adminEmail)
	e.seed(access, refresh)
	e.srv.Close()
	m := e.start()

	res := m.Initialize(context.Background())

	assert.Equal(t, StateAnonymous, res.State)
	assert.Equal(t, client.KindNetwork, client.KindOf(res.Err))
	assert.NotEmpty(t, m.Snapshot().Error)
	assert.Empty(t, m.AccessToken(), "nothing is sent with the unconfirmed tokens")
	assert.Empty(t, m.Snapshot().RefreshToken)
	assert.Equal(t, refresh, e.store.RefreshToken(context.Background()))
	assert.Equal(t, access, e.store.AccessToken(context.Background()))
}

func TestInitialize_Idempotent(t *testing.T) {
	e := newEnv(t)
	e.seed(e.srv.IssueTokens(adminEmail))
	m := e.start()

	var transitions int
	m.Subscribe(func(Snapshot) { transitions++ })

	first := m.Initialize(context.Background())
	calls := e.srv.TotalCalls()
	afterFirst := transitions
	before := m.Snapshot()

	second := m.Initialize(context.Background())

	assert.Equal(t, first, second)
	assert.Equal(t, calls, e.srv.TotalCalls(), "no network on the second call")
	assert.Equal(t, afterFirst, transitions, "no state change on the second call")
	assert.Equal(t, before, m.Snapshot())
}

func TestLogin_PersistsSession(t *testing.T) {
	e := newEnv(t)
	m := e.start()
	m.Initialize(context.Background())

	u, err := m.Login(context.Background(), client.Credentials{Email: adminEmail, Password: password})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, u.Role)

	snap := m.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.NotEmpty(t, snap.AccessToken)

	rec := e.store.Load(context.Background())
	assert.Equal(t, snap.AccessToken, rec.AccessToken)
	assert.Equal(t, snap.RefreshToken, rec.RefreshToken)
	require.NotNil(t, rec.User)
	assert.Equal(t, adminEmail, rec.User.Email)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Authenticated))
}

func TestLogin_FailureLeavesStoreUntouched(t *testing.T) {
	e := newEnv(t)
	e.seed("old-access", "old-refresh")
	m := e.start()

	_, err := m.Login(context.Background(), client.Credentials{Email: adminEmail, Password: "wrong-password"})
	require.Error(t, err)

	snap := m.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Equal(t, "Invalid credentials", snap.Error)
	assert.False(t, snap.Loading)

	rec := e.store.Load(context.Background())
	assert.Equal(t, "old-access", rec.AccessToken)
	assert.Equal(t, "old-refresh", rec.RefreshToken)
	assert.Empty(t, e.nav.seen())

	m.ClearError()
	assert.Empty(t, m.Snapshot().Error)
}

func TestRefreshThenRetry(t *testing.T) {
	e := newEnv(t)
	m := e.login(t)
	e.srv.SeedStudents(3)
	e.srv.Advance(time.Hour)
	oldToken := m.AccessToken()

	page, err := e.api.ListStudents(context.Background(), models.DefaultListParams())

	require.NoError(t, err, "the caller never sees the 401")
	assert.Len(t, page.Students, 3)
	assert.Equal(t, 1, e.srv.Calls(fakeapi.RouteRefresh), "exactly one refresh")
	assert.Equal(t, 2, e.srv.Calls(fakeapi.RouteListStudents), "exactly one retry")
	assert.NotEqual(t, oldToken, m.AccessToken())
	assert.Equal(t, m.AccessToken(), e.store.AccessToken(context.Background()))
	assert.True(t, m.IsAuthenticated())
	assert.Empty(t, e.nav.seen())
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.RefreshesTotal.WithLabelValues("ok")))
}

func TestRefreshFailureCleanup(t *testing.T) {
	e := newEnv(t)
	m := e.login(t)
	e.srv.Advance(time.Hour)
	e.srv.SetFailRefresh(true)

	_, err := e.api.ListStudents(context.Background(), models.DefaultListParams())

	require.Error(t, err)
	assert.Equal(t, client.KindAuthentication, client.KindOf(err))
	assert.Equal(t, 1, e.srv.Calls(fakeapi.RouteRefresh))
	assert.Equal(t, 1, e.srv.Calls(fakeapi.RouteListStudents), "no retry after a failed refresh")

	snap := m.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Nil(t, snap.User)
	assert.True(t, e.store.Load(context.Background()).Empty(), "tokens removed from store")
	assert.Equal(t, []View{ViewLogin}, e.nav.seen(), "exactly one redirect")
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.SessionsExpired))

	// Repeated failures land in the same state without another redirect.
	_, err = e.api.ListStudents(context.Background(), models.DefaultListParams())
	require.Error(t, err)
	assert.Equal(t, []View{ViewLogin}, e.nav.seen())
	assert.Equal(t, StateAnonymous, m.Snapshot().State)
}

func TestRefreshFailureCleanup_Concurrent(t *testing.T) {
	e := newEnv(t, fakeapi.WithRefreshDelay(50*time.Millisecond))
	m := e.login(t)
	e.srv.Advance(time.Hour)
	e.srv.SetFailRefresh(true)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.api.ListStudents(context.Background(), models.DefaultListParams())
			assert.Error(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, []View{ViewLogin}, e.nav.seen())
}

func TestNonExpiry401ClearsSession(t *testing.T) {
	e := newEnv(t)
	m := e.login(t)
	e.srv.RemoveUser(adminEmail)

	_, err := e.api.Me(context.Background())

	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Zero(t, e.srv.Calls(fakeapi.RouteRefresh), "not expiry-shaped, no refresh")
	assert.False(t, m.IsAuthenticated())
	assert.True(t, e.store.Load(context.Background()).Empty())
	assert.Equal(t, []View{ViewLogin}, e.nav.seen())
}

func TestExpire_NetworkErrorKeepsSession(t *testing.T) {
	e := newEnv(t)
	m := e.login(t)

	m.Expire(context.Background(), m.AccessToken(), &client.Error{Type: client.TypeNetwork, Message: "connection refused"})
	m.Expire(context.Background(), m.AccessToken(), context.Canceled)

	assert.True(t, m.IsAuthenticated())
	assert.NotEmpty(t, e.store.RefreshToken(context.Background()))
	assert.Empty(t, e.nav.seen())
}

func TestForbiddenDoesNotClearSession(t *testing.T) {
	e := newEnv(t)
	e.srv.AddUser(models.User{Email: "t@school.test", Role: models.RoleStaff}, password)
	m := e.start()
	m.Initialize(context.Background())
	_, err := m.Login(context.Background(), client.Credentials{Email: "t@school.test", Password: password})
	require.NoError(t, err)
	assert.True(t, m.IsStaff())

	_, err = e.api.ListStaff(context.Background(), models.DefaultListParams())
	assert.Equal(t, client.KindAuthorization, client.KindOf(err))
	assert.True(t, m.IsAuthenticated())
	assert.Empty(t, e.nav.seen())
}

func TestChangePasswordClearsSession(t *testing.T) {
	e := newEnv(t)
	m := e.login(t)

	msg, err := m.ChangePassword(context.Background(), client.ChangePasswordRequest{
		CurrentPassword: password, NewPassword: "secret2", ConfirmPassword: "secret2",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg)

	assert.False(t, m.IsAuthenticated())
	assert.Empty(t, e.store.RefreshToken(context.Background()))
	assert.Equal(t, []View{ViewLogin}, e.nav.seen())

	_, err = m.Login(context.Background(), client.Credentials{Email: adminEmail, Password: "secret2"})
	assert.NoError(t, err)
}

func TestChangePassword_WrongCurrentKeepsSession(t *testing.T) {
	e := newEnv(t)
	m := e.login(t)

	_, err := m.ChangePassword(context.Background(), client.ChangePasswordRequest{
		CurrentPassword: "nope-nope", NewPassword: "secret2", ConfirmPassword: "secret2",
	})
	require.Error(t, err)

	snap := m.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, "Current password is incorrect", snap.Error)
	assert.Empty(t, e.nav.seen())
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	m := e.login(t)
	refresh := m.Snapshot().RefreshToken

	m.Logout(context.Background())

	assert.Equal(t, 1, e.srv.Calls(fakeapi.RouteLogout))
	assert.False(t, e.srv.RefreshTokenValid(refresh))
	assert.False(t, m.IsAuthenticated())
	assert.True(t, e.store.Load(context.Background()).Empty())
	assert.Equal(t, []View{ViewLogin}, e.nav.seen())
}

func TestLogout_ServerDownStillClearsLocally(t *testing.T) {
	e := newEnv(t)
	m := e.login(t)
	e.srv.Close()

	m.Logout(context.Background())

	assert.False(t, m.IsAuthenticated())
	assert.True(t, e.store.Load(context.Background()).Empty())
}

func TestSubscribe(t *testing.T) {
	e := newEnv(t)
	m := e.start()

	var mu sync.Mutex
	var states []State
	unsubscribe := m.Subscribe(func(s Snapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	m.Initialize(context.Background())
	unsubscribe()
	_, err := m.Login(context.Background(), client.Credentials{Email: adminEmail, Password: password})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.Equal(t, StateInitializing, states[0])
	assert.Equal(t, StateAnonymous, states[len(states)-1], "login happened after unsubscribe")
}

func TestSnapshotIsACopy(t *testing.T) {
	e := newEnv(t)
	m := e.login(t)

	snap := m.Snapshot()
	snap.User.Email = "changed@school.test"
	snap.User.Permissions = models.Permissions{"staff": {"delete": true}}

	assert.Equal(t, adminEmail, m.CurrentUser().Email)
}
