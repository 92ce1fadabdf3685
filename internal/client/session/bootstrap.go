package session

import (
	"context"
	"sync"
)

// Bootstrap runs Manager.Initialize exactly once and lets the console wait
// for it. Nothing guarded is dispatched before Ready reports true.
type Bootstrap struct {
	m    *Manager
	once sync.Once
	done chan struct{}

	mu     sync.Mutex
	result InitResult
}

func NewBootstrap(m *Manager) *Bootstrap {
	return &Bootstrap{m: m, done: make(chan struct{})}
}

// Run initializes the session once and returns the result. Concurrent and
// later calls get the same result.
func (b *Bootstrap) Run(ctx context.Context) InitResult {
	b.once.Do(func() {
		res := b.m.Initialize(ctx)
		b.mu.Lock()
		b.result = res
		b.mu.Unlock()
		close(b.done)
	})
	r, _ := b.Result()
	return r
}

// Start runs the initialization in the background.
func (b *Bootstrap) Start(ctx context.Context) {
	go b.Run(ctx)
}

func (b *Bootstrap) Ready() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Wait blocks until initialization is finished or ctx is done.
func (b *Bootstrap) Wait(ctx context.Context) (InitResult, error) {
	select {
	case <-b.done:
		r, _ := b.Result()
		return r, nil
	case <-ctx.Done():
		return InitResult{}, ctx.Err()
	}
}

// Result returns the initialization result and whether it is available.
func (b *Bootstrap) Result() (InitResult, bool) {
	if !b.Ready() {
		return InitResult{}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.result, true
}
