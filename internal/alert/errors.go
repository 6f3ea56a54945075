package alert

import "errors"

// Domain errors for the alert package.
var (
	// ErrAlertNotFound is returned when an alert ID does not exist.
	ErrAlertNotFound = errors.New("alert: not found")

	// ErrInvalidAlert is returned when alert validation fails.
	ErrInvalidAlert = errors.New("alert: invalid")

	// ErrInvalidName is returned when an alert name is empty or too long.
	ErrInvalidName = errors.New("alert: invalid name")

	// ErrTriggerInPast is returned when a TIME_BASED trigger is not in the future.
	ErrTriggerInPast = errors.New("alert: trigger time must be in the future")

	// ErrInvalidThreshold is returned when an energy threshold is not positive.
	ErrInvalidThreshold = errors.New("alert: invalid threshold")

	// ErrInvalidComparator is returned for an unrecognised comparator.
	ErrInvalidComparator = errors.New("alert: invalid comparator")
)
