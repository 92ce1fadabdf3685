// Package credentials persists the session's tokens and cached profile in
// the local metadata table.
//
// Store methods never return errors. Storage failures are logged and
// degrade to "nothing stored", so a broken database means "not logged in"
// rather than a crashed console.
package credentials

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/dmitrijs2005/schooldesk/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/schooldesk/internal/common"
	"github.com/dmitrijs2005/schooldesk/internal/dbx"
	"github.com/dmitrijs2005/schooldesk/internal/logging"
)

// Record is everything the store keeps about a session.
type Record struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

// Empty reports whether nothing is stored.
func (r Record) Empty() bool {
	return r.AccessToken == "" && r.RefreshToken == "" && r.User == nil
}

type Store struct {
	db   *sql.DB
	repo metadata.Repository
	log  logging.Logger
	now  func() time.Time
}

// NewStore builds a store over db. A nil db yields a store that keeps
// nothing, which is how an unavailable database degrades.
func NewStore(db *sql.DB, log logging.Logger) *Store {
	if log == nil {
		log = logging.Discard()
	}
	s := &Store{db: db, log: log.With("component", "credentials"), now: time.Now}
	if db != nil {
		s.repo = metadata.NewSQLiteRepository(db)
	}
	return s
}

func (s *Store) available(ctx context.Context, op string) bool {
	if s.repo == nil {
		s.log.Warn(ctx, "credential storage unavailable", "op", op)
		return false
	}
	return true
}

func (s *Store) getString(ctx context.Context, key string) string {
	if !s.available(ctx, "get") {
		return ""
	}
	v, err := s.repo.Get(ctx, key)
	if err != nil {
		s.log.Error(ctx, "failed to read credential", "key", key, "error", err)
		return ""
	}
	return string(v)
}

func (s *Store) setString(ctx context.Context, key, value string) {
	if !s.available(ctx, "set") {
		return
	}
	var err error
	if value == "" {
		err = s.repo.Delete(ctx, key)
	} else {
		err = s.repo.Set(ctx, key, []byte(value))
	}
	if err != nil {
		s.log.Error(ctx, "failed to store credential", "key", key, "error", err)
	}
}

func (s *Store) AccessToken(ctx context.Context) string {
	return s.getString(ctx, common.KeyAccessToken)
}

// SetAccessToken stores token; an empty token removes the key.
func (s *Store) SetAccessToken(ctx context.Context, token string) {
	s.setString(ctx, common.KeyAccessToken, token)
}

func (s *Store) RefreshToken(ctx context.Context) string {
	return s.getString(ctx, common.KeyRefreshToken)
}

// SetRefreshToken stores token; an empty token removes the key.
func (s *Store) SetRefreshToken(ctx context.Context, token string) {
	s.setString(ctx, common.KeyRefreshToken, token)
}

// User returns the cached profile, or nil when absent or unreadable.
func (s *Store) User(ctx context.Context) *models.User {
	raw := s.getString(ctx, common.KeyUser)
	if raw == "" {
		return nil
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.log.Warn(ctx, "discarding unreadable cached user", "error", err)
		return nil
	}
	return &u
}

// SetUser caches u as JSON; nil removes it.
func (s *Store) SetUser(ctx context.Context, u *models.User) {
	if u == nil {
		s.setString(ctx, common.KeyUser, "")
		return
	}
	b, err := json.Marshal(u)
	if err != nil {
		s.log.Error(ctx, "failed to encode user", "error", err)
		return
	}
	s.setString(ctx, common.KeyUser, string(b))
}

// Load reads the whole record.
func (s *Store) Load(ctx context.Context) Record {
	return Record{
		AccessToken:  s.AccessToken(ctx),
		RefreshToken: s.RefreshToken(ctx),
		User:         s.User(ctx),
	}
}

// SaveSession writes all three keys in one transaction, so a crash never
// leaves a user cached next to another user's tokens. Empty fields are
// removed.
func (s *Store) SaveSession(ctx context.Context, rec Record) {
	if !s.available(ctx, "save") {
		return
	}

	var userJSON []byte
	if rec.User != nil {
		b, err := json.Marshal(rec.User)
		if err != nil {
			s.log.Error(ctx, "failed to encode user", "error", err)
			return
		}
		userJSON = b
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		pairs := []struct {
			key   string
			value []byte
		}{
			{common.KeyAccessToken, []byte(rec.AccessToken)},
			{common.KeyRefreshToken, []byte(rec.RefreshToken)},
			{common.KeyUser, userJSON},
		}
		for _, p := range pairs {
			if len(p.value) == 0 {
				if err := repo.Delete(ctx, p.key); err != nil {
					return err
				}
				continue
			}
			if err := repo.Set(ctx, p.key, p.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "failed to save session", "error", err)
	}
}

// Clear removes tokens and cached user.
func (s *Store) Clear(ctx context.Context) {
	if !s.available(ctx, "clear") {
		return
	}
	err := s.repo.Delete(ctx, common.KeyAccessToken, common.KeyRefreshToken, common.KeyUser)
	if err != nil {
		s.log.Error(ctx, "failed to clear credentials", "error", err)
	}
}

// IsTokenValid reports whether token has not yet expired.
func (s *Store) IsTokenValid(token string) bool {
	return IsTokenValid(token, s.now())
}
