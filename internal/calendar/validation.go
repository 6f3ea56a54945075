package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/hearth/internal/device"
)

const (
	maxTitleLength       = 100
	maxDescriptionLength = 500
	maxActionsPerEvent   = 20

	// Actions may run up to a day either side of the occurrence start.
	maxOffsetMinutes = 24 * 60
)

var validTypes map[EventType]struct{}

func init() {
	validTypes = make(map[EventType]struct{}, len(AllEventTypes()))
	for _, t := range AllEventTypes() {
		validTypes[t] = struct{}{}
	}
}

// GenerateID returns a new event ID.
func GenerateID() string {
	return uuid.NewString()
}

// NewEvent builds a validated event with no actions.
func NewEvent(title, description string, start, end time.Time, typ EventType, recur Recurrence, now time.Time) (*Event, error) {
	if recur == "" {
		recur = RecurNone
	}
	e := &Event{
		ID:          GenerateID(),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Start:       start.UTC(),
		End:         end.UTC(),
		Type:        EventType(strings.ToUpper(string(typ))),
		Recurrence:  Recurrence(strings.ToUpper(string(recur))),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if err := ValidateEvent(e); err != nil {
		return nil, err
	}
	return e, nil
}

// ValidateEvent checks an event and all its actions.
func ValidateEvent(e *Event) error {
	if e == nil {
		return ErrInvalidEvent
	}
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if len(title) > maxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidEvent, maxTitleLength)
	}
	if len(e.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidEvent, maxDescriptionLength)
	}
	if e.Start.IsZero() || !e.End.After(e.Start) {
		return ErrInvalidTimeRange
	}
	if _, ok := validTypes[e.Type]; !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	switch e.Recurrence {
	case RecurNone, RecurDaily, RecurWeekly:
	default:
		return fmt.Errorf("%w: unknown recurrence %q", ErrInvalidEvent, e.Recurrence)
	}
	if len(e.Actions) > maxActionsPerEvent {
		return fmt.Errorf("%w: more than %d actions", ErrInvalidEvent, maxActionsPerEvent)
	}
	for i, a := range e.Actions {
		if err := ValidateAction(a); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

// ValidateAction checks a single automation action.
func ValidateAction(a Action) error {
	if err := device.ValidateKind(a.DeviceKind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}
	if err := device.ValidateRoom(a.Room); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}
	if err := device.ValidateState(a.DesiredState); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}
	if a.OffsetMinutes > maxOffsetMinutes || a.OffsetMinutes < -maxOffsetMinutes {
		return fmt.Errorf("%w: offset must be within %d minutes", ErrInvalidAction, maxOffsetMinutes)
	}
	return nil
}

// CanAddAction reports whether e has room for another action.
func CanAddAction(e *Event) error {
	if len(e.Actions) >= maxActionsPerEvent {
		return fmt.Errorf("%w: more than %d actions", ErrInvalidEvent, maxActionsPerEvent)
	}
	return nil
}
