package usecase

import (
	"sync"
	"time"
)

// DefaultNotificationTTL is how long a toast stays visible.
const DefaultNotificationTTL = 4 * time.Second

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Notification is the single transient toast shown to the user.
type Notification struct {
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	ShownAt  time.Time `json:"shown_at"`
}

// Notifier holds at most one notification at a time. A newer Show
// replaces the current one and reschedules the expiry, so there is
// never more than one pending clear.
type Notifier struct {
	mu      sync.Mutex
	ttl     time.Duration
	current *Notification
	timer   *time.Timer
	seq     uint64
}

// NewNotifier creates a notifier with the given visibility window.
// ttl <= 0 falls back to DefaultNotificationTTL.
func NewNotifier(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	return &Notifier{ttl: ttl}
}

// Show replaces the current notification and restarts the expiry timer.
func (n *Notifier) Show(message string, severity Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}

	n.seq++
	seq := n.seq
	n.current = &Notification{
		Message:  message,
		Severity: severity,
		ShownAt:  time.Now(),
	}
	n.timer = time.AfterFunc(n.ttl, func() {
		n.expire(seq)
	})
}

// Current returns a copy of the visible notification, or nil.
func (n *Notifier) Current() *Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return nil
	}
	c := *n.current
	return &c
}

// Clear dismisses the notification immediately.
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.current = nil
}

// expire clears only if no newer Show arrived after the timer was set.
func (n *Notifier) expire(seq uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.seq != seq {
		return
	}
	n.current = nil
	n.timer = nil
}
