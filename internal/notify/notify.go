package notify

import "time"

// Kind classifies a notification by what produced it.
type Kind string

// Notification kinds.
const (
	KindTimer    Kind = "timer"
	KindCalendar Kind = "calendar"
	KindAlert    Kind = "alert"
	KindDevice   Kind = "device"
	KindSystem   Kind = "system"
)

// Notification is one message for one user.
type Notification struct {
	Kind       Kind      `json:"kind"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	DeviceKind string    `json:"device_kind,omitempty"`
	Room       string    `json:"room,omitempty"`
	AlertID    string    `json:"alert_id,omitempty"`
	EventID    string    `json:"event_id,omitempty"`
	At         time.Time `json:"at"`
}

// Sink receives notifications. Implementations may block; the Dispatcher
// calls them from its own goroutine.
type Sink interface {
	Notify(userID string, n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(userID string, n Notification)

// Notify calls f.
func (f SinkFunc) Notify(userID string, n Notification) { f(userID, n) }

// Logger is the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
