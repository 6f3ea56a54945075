package alert

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/hearth/internal/device"
)

const (
	maxNameLength    = 100
	maxMessageLength = 500
)

// GenerateID returns a new alert ID.
func GenerateID() string {
	return uuid.NewString()
}

// NewTimeBased builds a validated TIME_BASED alert. at must be strictly
// after now.
func NewTimeBased(name string, kind device.Kind, room string, at time.Time, message string, opts Options, now time.Time) (*Alert, error) {
	at = at.UTC()
	a := newAlert(name, KindTimeBased, kind, room, message, opts, now)
	a.TriggerAt = &at
	if opts.RepeatInterval < 0 || (opts.RepeatInterval > 0 && opts.RepeatInterval < time.Second) {
		return nil, fmt.Errorf("%w: repeat interval must be at least one second", ErrInvalidAlert)
	}
	if opts.KeepAfterTrigger && opts.RepeatInterval > 0 {
		a.RepeatSeconds = int64(opts.RepeatInterval / time.Second)
	}
	if err := Validate(a, now); err != nil {
		return nil, err
	}
	return a, nil
}

// NewEnergyUsage builds a validated ENERGY_USAGE alert. cmp may be any
// form ParseComparator accepts; the alert stores the canonical name.
func NewEnergyUsage(name string, kind device.Kind, room string, thresholdKWh float64, cmp Comparator, message string, opts Options, now time.Time) (*Alert, error) {
	a := newAlert(name, KindEnergyUsage, kind, room, message, opts, now)
	a.ThresholdKWh = thresholdKWh
	a.Comparator = cmp
	if canonical, err := ParseComparator(string(cmp)); err == nil {
		a.Comparator = canonical
	}
	if err := Validate(a, now); err != nil {
		return nil, err
	}
	return a, nil
}

func newAlert(name string, kind Kind, devKind device.Kind, room, message string, opts Options, now time.Time) *Alert {
	return &Alert{
		ID:         GenerateID(),
		Name:       strings.TrimSpace(name),
		Kind:       kind,
		DeviceKind: devKind,
		Room:       strings.TrimSpace(room),
		Message:    strings.TrimSpace(message),
		Active:     true,
		AutoDelete: !opts.KeepAfterTrigger,
		CreatedAt:  now.UTC(),
	}
}

// Validate checks a at creation time.
func Validate(a *Alert, now time.Time) error {
	if a == nil {
		return ErrInvalidAlert
	}
	if err := ValidateName(a.Name); err != nil {
		return err
	}
	if len(a.Message) > maxMessageLength {
		return fmt.Errorf("%w: message exceeds %d characters", ErrInvalidAlert, maxMessageLength)
	}
	if err := device.ValidateKind(a.DeviceKind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAlert, err)
	}
	if err := device.ValidateRoom(a.Room); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAlert, err)
	}

	switch a.Kind {
	case KindTimeBased:
		if a.TriggerAt == nil || !a.TriggerAt.After(now) {
			return ErrTriggerInPast
		}
		if a.RepeatSeconds < 0 {
			return fmt.Errorf("%w: repeat interval must not be negative", ErrInvalidAlert)
		}
	case KindEnergyUsage:
		if math.IsNaN(a.ThresholdKWh) || math.IsInf(a.ThresholdKWh, 0) || a.ThresholdKWh <= 0 {
			return fmt.Errorf("%w: must be greater than zero", ErrInvalidThreshold)
		}
		if _, err := ParseComparator(string(a.Comparator)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAlert, a.Kind)
	}
	return nil
}

// ValidateName checks an alert name.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(trimmed) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ParseComparator accepts the canonical name, its operator symbol, or a
// short form (gt, gte, lt, lte), case-insensitively.
func ParseComparator(s string) (Comparator, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(GreaterThan), ">", "GT":
		return GreaterThan, nil
	case string(GreaterThanOrEqual), ">=", "GTE":
		return GreaterThanOrEqual, nil
	case string(LessThan), "<", "LT":
		return LessThan, nil
	case string(LessThanOrEqual), "<=", "LTE":
		return LessThanOrEqual, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidComparator, s)
}
