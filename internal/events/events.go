// Package events fans out admin-facing notifications (arming, enrollment,
// renames, deletions) to any number of listeners such as SSE streams.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ListenerBuffer is the per-listener channel capacity. Events sent to a full
// listener are dropped for that listener only.
const ListenerBuffer = 32

// Event types.
const (
	TypeArmed        = "armed"
	TypeDisarmed     = "disarmed"
	TypeEnrolled     = "enrolled"
	TypeEnrollFailed = "enroll_failed"
	TypeDeleted      = "deleted"
	TypeRenamed      = "renamed"
)

// Event is a single notification.
type Event struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Label    string    `json:"label,omitempty"`
	NewLabel string    `json:"new_label,omitempty"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

// Publisher accepts events.
type Publisher interface {
	Publish(event Event)
}

// Broadcaster provides listener management and event broadcasting.
type Broadcaster struct {
	listeners []chan Event
	mu        sync.RWMutex
	now       func() time.Time
}

// NewBroadcaster creates a broadcaster with no listeners.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{now: time.Now}
}

// AddListener adds an event listener.
func (b *Broadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, ListenerBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener and closes its channel.
func (b *Broadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// ListenerCount returns the number of registered listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Publish stamps the event with an ID and time and sends it to all listeners.
func (b *Broadcaster) Publish(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Time.IsZero() {
		event.Time = b.now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Discard is a Publisher that drops every event.
type Discard struct{}

// Publish does nothing.
func (Discard) Publish(Event) {}
