package automation

import (
	"errors"

	"github.com/nerrad567/hearth/internal/alert"
	"github.com/nerrad567/hearth/internal/calendar"
	"github.com/nerrad567/hearth/internal/device"
	"github.com/nerrad567/hearth/internal/store"
)

// Domain errors for the automation package.
var (
	// ErrInvalidTimer is returned for a timer action other than ON or OFF.
	ErrInvalidTimer = errors.New("automation: invalid timer")

	// ErrTimerTooSoon is returned when a timer is not after now + lead time.
	ErrTimerTooSoon = errors.New("automation: timer too soon")

	// ErrTimerNotSet is returned when cancelling a timer that is not pending.
	ErrTimerNotSet = errors.New("automation: timer not set")

	// ErrShutdown is returned by mutating calls after Shutdown.
	ErrShutdown = errors.New("automation: service shut down")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("automation: scheduler already started")
)

var validationErrors = []error{
	device.ErrInvalidDevice,
	device.ErrInvalidKind,
	device.ErrInvalidRoom,
	device.ErrInvalidPower,
	device.ErrInvalidState,
	alert.ErrInvalidAlert,
	alert.ErrInvalidName,
	alert.ErrTriggerInPast,
	alert.ErrInvalidThreshold,
	alert.ErrInvalidComparator,
	calendar.ErrInvalidEvent,
	calendar.ErrInvalidTimeRange,
	calendar.ErrInvalidAction,
	ErrInvalidTimer,
	ErrTimerTooSoon,
}

var notFoundErrors = []error{
	device.ErrDeviceNotFound,
	alert.ErrAlertNotFound,
	calendar.ErrEventNotFound,
	calendar.ErrActionNotFound,
	ErrTimerNotSet,
	store.ErrUserNotFound,
}

var conflictErrors = []error{
	device.ErrDeviceExists,
	calendar.ErrEventExists,
}

// IsValidation reports whether err was caused by bad caller input.
func IsValidation(err error) bool { return isAny(err, validationErrors) }

// IsNotFound reports whether err names something that does not exist.
func IsNotFound(err error) bool { return isAny(err, notFoundErrors) }

// IsConflict reports whether err is a uniqueness violation.
func IsConflict(err error) bool { return isAny(err, conflictErrors) }

func isAny(err error, targets []error) bool {
	if err == nil {
		return false
	}
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
