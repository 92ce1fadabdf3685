package credentials

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/dmitrijs2005/schooldesk/internal/client/storage"
	"github.com/dmitrijs2005/schooldesk/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "c.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func signed(t *testing.T, exp *time.Time) string {
	t.Helper()
	c := jwt.MapClaims{"sub": "u1"}
	if exp != nil {
		c["exp"] = exp.Unix()
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(openDB(t), logging.Discard())

	assert.True(t, s.Load(ctx).Empty())

	s.SetAccessToken(ctx, "a")
	s.SetRefreshToken(ctx, "r")
	s.SetUser(ctx, &models.User{ID: "u1", Email: "a@b.c", Role: models.RoleStaff,
		Permissions: models.Permissions{"students": {"read": true}}})

	rec := s.Load(ctx)
	assert.Equal(t, "a", rec.AccessToken)
	assert.Equal(t, "r", rec.RefreshToken)
	require.NotNil(t, rec.User)
	assert.Equal(t, "u1", rec.User.ID)
	assert.True(t, rec.User.Permissions.Allowed("students", "read"))

	s.SetAccessToken(ctx, "")
	assert.Equal(t, "", s.AccessToken(ctx), "empty value removes the key")
	assert.Equal(t, "r", s.RefreshToken(ctx))

	s.Clear(ctx)
	assert.True(t, s.Load(ctx).Empty())
}

func TestStore_SaveSessionReplacesAll(t *testing.T) {
	ctx := context.Background()
	s := NewStore(openDB(t), logging.Discard())

	s.SaveSession(ctx, Record{AccessToken: "a1", RefreshToken: "r1", User: &models.User{ID: "u1"}})
	s.SaveSession(ctx, Record{AccessToken: "a2", RefreshToken: "r2"})

	rec := s.Load(ctx)
	assert.Equal(t, "a2", rec.AccessToken)
	assert.Equal(t, "r2", rec.RefreshToken)
	assert.Nil(t, rec.User, "nil user removes the cached profile")
}

func TestStore_UnavailableDegradesSilently(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	s := NewStore(nil, log)
	assert.NotPanics(t, func() {
		s.SetAccessToken(ctx, "a")
		s.SaveSession(ctx, Record{RefreshToken: "r"})
		s.Clear(ctx)
	})
	assert.True(t, s.Load(ctx).Empty())
	assert.Contains(t, buf.String(), "credential storage unavailable")
}

func TestStore_ClosedDatabaseIsNotLoggedIn(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	s := NewStore(db, logging.Discard())
	s.SetRefreshToken(ctx, "r")
	require.NoError(t, db.Close())

	assert.NotPanics(t, func() {
		assert.Equal(t, "", s.RefreshToken(ctx))
		s.SaveSession(ctx, Record{RefreshToken: "x"})
		s.Clear(ctx)
	})
}

func TestStore_CorruptUserIsDropped(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	_, err := db.Exec(`INSERT INTO metadata(key, value) VALUES ('user', '{not json')`)
	require.NoError(t, err)

	assert.Nil(t, NewStore(db, logging.Discard()).User(ctx))
}

func TestIsTokenValid(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid", signed(t, &future), true},
		{"expired", signed(t, &past), false},
		{"no exp", signed(t, nil), false},
		{"empty", "", false},
		{"two parts", "a.b", false},
		{"garbage", "a.b.c", false},
		{"bad base64 payload", "eyJhbGciOiJIUzI1NiJ9.%%%.sig", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, tt.want, IsTokenValid(tt.token, now))
			})
		})
	}

	s := NewStore(nil, nil)
	assert.True(t, s.IsTokenValid(signed(t, &future)))
}

func TestTokenExpiration(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)

	got, ok := TokenExpiration(signed(t, &exp))
	require.True(t, ok)
	assert.True(t, got.Equal(exp))

	_, ok = TokenExpiration("nope")
	assert.False(t, ok)
}
