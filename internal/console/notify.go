package console

import "time"

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// MaxNotifications bounds the notification queue.
const MaxNotifications = 50

// Notification is a user-facing status message.
type Notification struct {
	Message   string
	Level     Level
	Timestamp time.Time
}

// Notifications is a bounded FIFO. Pushing past MaxNotifications evicts the
// oldest entry.
type Notifications struct {
	items []Notification
}

// Push appends n, evicting from the front when full.
func (q *Notifications) Push(n Notification) {
	q.items = append(q.items, n)
	if over := len(q.items) - MaxNotifications; over > 0 {
		q.items = append(q.items[:0:0], q.items[over:]...)
	}
}

// Dismiss removes and returns the oldest notification.
func (q *Notifications) Dismiss() (Notification, bool) {
	if len(q.items) == 0 {
		return Notification{}, false
	}
	n := q.items[0]
	q.items = q.items[1:]
	return n, true
}

// Len is the number of queued notifications.
func (q *Notifications) Len() int {
	return len(q.items)
}

// Items returns a copy of the queue, oldest first.
func (q *Notifications) Items() []Notification {
	return append([]Notification(nil), q.items...)
}

// Latest returns the most recent notification.
func (q *Notifications) Latest() (Notification, bool) {
	if len(q.items) == 0 {
		return Notification{}, false
	}
	return q.items[len(q.items)-1], true
}
