package cli

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/schooldesk/internal/client/session"
)

// Screen tracks the view the console is on. It is the session's Navigator,
// so a session that expires in the middle of a command lands on login.
type Screen struct {
	mu       sync.Mutex
	view     session.View
	onChange func(from, to session.View)
}

func NewScreen() *Screen {
	return &Screen{view: session.ViewLogin}
}

// Navigate implements session.Navigator.
func (s *Screen) Navigate(_ context.Context, view session.View) {
	s.set(view)
}

func (s *Screen) set(view session.View) {
	s.mu.Lock()
	from := s.view
	s.view = view
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil && from != view {
		fn(from, view)
	}
}

// Current returns the current view.
func (s *Screen) Current() session.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Screen) OnChange(fn func(from, to session.View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}
