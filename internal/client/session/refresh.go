package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/schooldesk/internal/common"
)

const refreshKey = "refresh"

// ErrSessionChanged is returned to refresh waiters when the session was
// cleared or replaced while the exchange was in flight.
var ErrSessionChanged = errors.New("session changed during refresh")

// Refresh implements client.TokenSource. It returns an access token newer
// than stale: if another caller already refreshed it, the current token is
// returned without a request; otherwise the refresh token is exchanged.
// Concurrent callers share one exchange. The exchange runs detached from
// ctx, so a caller giving up does not abort it for the others.
//
// An empty stale always forces an exchange.
func (m *Manager) Refresh(ctx context.Context, stale string) (string, error) {
	ch := m.flights.DoChan(refreshKey, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.refreshTimeout)
		defer cancel()
		return m.exchange(fctx, stale)
	})

	select {
	case res := <-ch:
		if res.Shared {
			m.metrics.RefreshShared()
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) exchange(ctx context.Context, stale string) (string, error) {
	m.mu.RLock()
	current, rt := m.st.AccessToken, m.st.RefreshToken
	m.mu.RUnlock()

	if stale != "" && current != "" && current != stale {
		return current, nil
	}
	if rt == "" {
		return "", fmt.Errorf("refresh: %w", common.ErrNoRefreshToken)
	}

	m.update(func(s *Snapshot) { s.Refreshing = true })

	pair, err := m.api.Refresh(ctx, rt)
	if err != nil {
		m.metrics.Refresh(false)
		m.update(func(s *Snapshot) { s.Refreshing = false })
		m.log.Warn(ctx, "token refresh failed", "error", err)
		m.mu.RLock()
		changed := m.st.RefreshToken != rt
		m.mu.RUnlock()
		if changed {
			m.log.Info(ctx, "ignoring refresh failure, session changed")
			return "", ErrSessionChanged
		}
		// Network failures keep the session; a rejected refresh token is
		// never tried again.
		m.expire(ctx, err, func(s *Snapshot) bool { return s.RefreshToken == rt })
		return "", err
	}
	m.metrics.Refresh(true)

	newRT := rt
	if pair.RefreshToken != "" {
		newRT = pair.RefreshToken
	}

	changed := false
	m.update(func(s *Snapshot) {
		s.Refreshing = false
		if s.RefreshToken != rt {
			changed = true
			return
		}
		s.AccessToken = pair.AccessToken
		s.RefreshToken = newRT
	})
	if changed {
		m.log.Info(ctx, "discarding refreshed token, session changed")
		return "", ErrSessionChanged
	}

	m.store.SetAccessToken(ctx, pair.AccessToken)
	if newRT != rt {
		m.store.SetRefreshToken(ctx, newRT)
	}
	m.log.Debug(ctx, "access token refreshed", "rotated", newRT != rt)
	return pair.AccessToken, nil
}
