package calendar

import (
	"strings"
	"time"

	"github.com/nerrad567/hearth/internal/device"
)

// Event is a calendar entry that may drive device automations.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Type        EventType  `json:"type"`
	Recurrence  Recurrence `json:"recurrence"`
	Actions     []Action   `json:"actions"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Action switches one device relative to an occurrence's start.
// The target device does not have to exist when the action is added.
type Action struct {
	DeviceKind    device.Kind  `json:"device_kind"`
	Room          string       `json:"room"`
	DesiredState  device.State `json:"desired_state"`
	OffsetMinutes int          `json:"offset_minutes"`
}

// Target returns the key of the device the action switches.
func (a Action) Target() device.Key {
	return device.NewKey(a.DeviceKind, a.Room)
}

// Offset returns the action's offset from the occurrence start.
func (a Action) Offset() time.Duration {
	return time.Duration(a.OffsetMinutes) * time.Minute
}

// TitleKey is the case-insensitive lookup key for an event title.
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// DeepCopy returns an independent copy of the event.
func (e *Event) DeepCopy() *Event {
	if e == nil {
		return nil
	}
	cp := *e
	if e.Actions != nil {
		cp.Actions = make([]Action, len(e.Actions))
		copy(cp.Actions, e.Actions)
	}
	return &cp
}

// EventType categorises an event for display.
type EventType string

// Event types.
const (
	TypeMeeting  EventType = "MEETING"
	TypeReminder EventType = "REMINDER"
	TypeBirthday EventType = "BIRTHDAY"
	TypeHoliday  EventType = "HOLIDAY"
	TypeRoutine  EventType = "ROUTINE"
	TypeOther    EventType = "OTHER"
)

// AllEventTypes returns every event type.
func AllEventTypes() []EventType {
	return []EventType{TypeMeeting, TypeReminder, TypeBirthday, TypeHoliday, TypeRoutine, TypeOther}
}

// Recurrence controls how often an event repeats.
type Recurrence string

// Recurrence rules. Occurrences are whole days or weeks after Start.
const (
	RecurNone   Recurrence = "NONE"
	RecurDaily  Recurrence = "DAILY"
	RecurWeekly Recurrence = "WEEKLY"
)

func (r Recurrence) periodDays() int {
	switch r {
	case RecurDaily:
		return 1
	case RecurWeekly:
		return 7
	}
	return 0
}
