package view

import (
	"sync"
	"time"
)

// Level classifies a notification for display.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is the user-facing outcome of one mutating operation.
type Notification struct {
	Level     Level
	Message   string
	Resource  string
	Operation string
	At        time.Time
}

// Notifier is the single outcome channel shared by the views of a session.
// Only the most recent notification is kept, and reading it consumes it.
type Notifier struct {
	mu     sync.Mutex
	latest *Notification
	now    func() time.Time
}

func NewNotifier() *Notifier {
	return &Notifier{now: time.Now}
}

// Publish replaces any pending notification.
func (n *Notifier) Publish(note Notification) {
	if note.At.IsZero() {
		note.At = n.now()
	}
	n.mu.Lock()
	n.latest = &note
	n.mu.Unlock()
}

// Success publishes a success notification.
func (n *Notifier) Success(resource, operation, message string) {
	n.Publish(Notification{Level: LevelSuccess, Message: message, Resource: resource, Operation: operation})
}

// Failure publishes an error notification.
func (n *Notifier) Failure(resource, operation, message string) {
	n.Publish(Notification{Level: LevelError, Message: message, Resource: resource, Operation: operation})
}

// Take returns and clears the pending notification.
func (n *Notifier) Take() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.latest == nil {
		return Notification{}, false
	}
	note := *n.latest
	n.latest = nil
	return note, true
}
