package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/schooldesk/internal/client/fakeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrap_RunsInitializeOnce(t *testing.T) {
	e := newEnv(t)
	e.seed(e.srv.IssueTokens(adminEmail))
	b := NewBootstrap(e.start())

	assert.False(t, b.Ready())
	_, ok := b.Result()
	assert.False(t, ok)

	var wg sync.WaitGroup
	results := make([]InitResult, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = b.Run(context.Background())
		}()
	}
	wg.Wait()

	assert.True(t, b.Ready())
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
	assert.Equal(t, StateAuthenticated, results[0].State)
	assert.Equal(t, 1, e.srv.Calls(fakeapi.RouteMe), "initialize ran exactly once")
}

func TestBootstrap_StartAndWait(t *testing.T) {
	e := newEnv(t, fakeapi.WithRefreshDelay(50*time.Millisecond))
	_, refresh := e.srv.IssueTokens(adminEmail)
	e.seed("", refresh)
	m := e.start()
	b := NewBootstrap(m)

	b.Start(context.Background())

	res, err := b.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BootRefreshOnly, res.Path)
	assert.True(t, m.Snapshot().IsInitialized)

	got, ok := b.Result()
	assert.True(t, ok)
	assert.Equal(t, res, got)
}

func TestBootstrap_WaitHonoursContext(t *testing.T) {
	e := newEnv(t, fakeapi.WithRefreshDelay(300*time.Millisecond))
	_, refresh := e.srv.IssueTokens(adminEmail)
	e.seed("", refresh)
	b := NewBootstrap(e.start())
	b.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := b.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = b.Wait(context.Background())
	assert.NoError(t, err)
}
