package calendar

import "errors"

// Domain errors for the calendar package.
var (
	// ErrEventNotFound is returned when no event has the given title.
	ErrEventNotFound = errors.New("calendar: event not found")

	// ErrEventExists is returned when an event title is already taken.
	ErrEventExists = errors.New("calendar: event already exists")

	// ErrInvalidEvent is returned when event validation fails.
	ErrInvalidEvent = errors.New("calendar: invalid event")

	// ErrInvalidTimeRange is returned when an event does not end after it starts.
	ErrInvalidTimeRange = errors.New("calendar: end must be after start")

	// ErrInvalidAction is returned when an automation action is malformed.
	ErrInvalidAction = errors.New("calendar: invalid action")

	// ErrActionNotFound is returned for an out-of-range action index.
	ErrActionNotFound = errors.New("calendar: action not found")
)
