// Package ui holds console-wide presentation state.
package ui

import (
	"sync"
	"time"
)

const DefaultNotificationTTL = 6 * time.Second

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Notification is a transient message shown to the user.
type Notification struct {
	ID       uint64
	Message  string
	Severity Severity
	Shown    time.Time
}

// Notifier keeps at most one notification and dismisses it after a fixed
// TTL. A newer notification replaces the current one and restarts the
// timer.
type Notifier struct {
	ttl time.Duration

	mu      sync.Mutex
	current *Notification
	seq     uint64
	timer   *time.Timer
	onShow  func(Notification)
	now     func() time.Time
}

type NotifierOption func(*Notifier)

// OnShow registers fn to be called with every new notification.
func OnShow(fn func(Notification)) NotifierOption {
	return func(n *Notifier) { n.onShow = fn }
}

func NewNotifier(ttl time.Duration, opts ...NotifierOption) *Notifier {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	n := &Notifier{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Show replaces the current notification.
func (n *Notifier) Show(message string, severity Severity) Notification {
	n.mu.Lock()
	n.seq++
	note := Notification{ID: n.seq, Message: message, Severity: severity, Shown: n.now()}
	n.current = &note
	if n.timer != nil {
		n.timer.Stop()
	}
	id := note.ID
	n.timer = time.AfterFunc(n.ttl, func() { n.expire(id) })
	onShow := n.onShow
	n.mu.Unlock()

	if onShow != nil {
		onShow(note)
	}
	return note
}

func (n *Notifier) Success(message string) Notification { return n.Show(message, SeveritySuccess) }
func (n *Notifier) Error(message string) Notification { return n.Show(message, SeverityError) }
func (n *Notifier) Warning(message string) Notification { return n.Show(message, SeverityWarning) }
func (n *Notifier) Info(message string) Notification { return n.Show(message, SeverityInfo) }

// expire dismisses the notification id if it is still current.
func (n *Notifier) expire(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current != nil && n.current.ID == id {
		n.current = nil
		n.timer = nil
	}
}

// Dismiss removes the current notification.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.current = nil
}

// Current returns the visible notification, if any.
func (n *Notifier) Current() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notification{}, false
	}
	return *n.current, true
}
