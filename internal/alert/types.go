package alert

import (
	"fmt"
	"time"

	"github.com/nerrad567/hearth/internal/device"
)

// Alert is a user-defined rule watching one device.
//
// Lifecycle: an active alert fires when its predicate matches. Firing bumps
// TriggerCount. An auto-delete alert is then removed; otherwise it stays
// and is re-armed (see Fire).
type Alert struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Kind       Kind        `json:"kind"`
	DeviceKind device.Kind `json:"device_kind"`
	Room       string      `json:"room"`

	// TIME_BASED
	TriggerAt *time.Time `json:"trigger_at,omitempty"`
	// RepeatSeconds re-arms a kept TIME_BASED alert this far past each
	// firing. Zero means fire once and deactivate.
	RepeatSeconds int64 `json:"repeat_seconds,omitempty"`

	// ENERGY_USAGE
	ThresholdKWh float64    `json:"threshold_kwh,omitempty"`
	Comparator   Comparator `json:"comparator,omitempty"`

	Message         string     `json:"message"`
	Active          bool       `json:"active"`
	AutoDelete      bool       `json:"auto_delete"`
	TriggerCount    int        `json:"trigger_count"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Target returns the key of the watched device.
func (a *Alert) Target() device.Key {
	return device.NewKey(a.DeviceKind, a.Room)
}

// DeepCopy returns an independent copy of the alert.
func (a *Alert) DeepCopy() *Alert {
	if a == nil {
		return nil
	}
	cp := *a
	if a.TriggerAt != nil {
		t := *a.TriggerAt
		cp.TriggerAt = &t
	}
	if a.LastTriggeredAt != nil {
		t := *a.LastTriggeredAt
		cp.LastTriggeredAt = &t
	}
	return &cp
}

// Text is the notification body for a firing. The user's message wins;
// otherwise a description of the rule is generated.
func (a *Alert) Text(observedKWh float64) string {
	if a.Message != "" {
		return a.Message
	}
	switch a.Kind {
	case KindEnergyUsage:
		return fmt.Sprintf("%s: %s in %s used %.3f kWh (%s %.3f kWh)",
			a.Name, a.DeviceKind, a.Room, observedKWh, a.Comparator.Symbol(), a.ThresholdKWh)
	default:
		return fmt.Sprintf("%s: reminder for %s in %s", a.Name, a.DeviceKind, a.Room)
	}
}

// Kind distinguishes alert predicates.
type Kind string

// Alert kinds.
const (
	KindTimeBased   Kind = "TIME_BASED"
	KindEnergyUsage Kind = "ENERGY_USAGE"
)

// Comparator relates observed energy to the threshold.
type Comparator string

// Supported comparators.
const (
	GreaterThan        Comparator = "GREATER_THAN"
	GreaterThanOrEqual Comparator = "GREATER_THAN_OR_EQUAL"
	LessThan           Comparator = "LESS_THAN"
	LessThanOrEqual    Comparator = "LESS_THAN_OR_EQUAL"
)

// AllComparators returns every supported comparator.
func AllComparators() []Comparator {
	return []Comparator{GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual}
}

// Compare evaluates value <op> threshold.
func (c Comparator) Compare(value, threshold float64) bool {
	switch c {
	case GreaterThan:
		return value > threshold
	case GreaterThanOrEqual:
		return value >= threshold
	case LessThan:
		return value < threshold
	case LessThanOrEqual:
		return value <= threshold
	}
	return false
}

// Symbol returns the operator form, e.g. ">=".
func (c Comparator) Symbol() string {
	switch c {
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	}
	return string(c)
}

// Options tunes alert behaviour after it fires. The zero value gives the
// default one-shot alert.
type Options struct {
	// KeepAfterTrigger disables auto-delete.
	KeepAfterTrigger bool

	// RepeatInterval re-arms a kept TIME_BASED alert.
	RepeatInterval time.Duration
}
