package device

import (
	"fmt"
	"strings"
	"time"
)

// Device is one appliance owned by a household member.
//
// A device is identified within its owner's household by Key (kind + room).
// Usage and energy counters only ever grow while the device exists; they are
// advanced by OnStateChange and never written directly by callers.
type Device struct {
	ID               string  `json:"id"`
	Kind             Kind    `json:"kind"`
	Room             string  `json:"room"`
	PowerRatingWatts float64 `json:"power_rating_watts"`
	State            State   `json:"state"`

	// LastOnAt is set on every OFF→ON transition and kept until the next one.
	LastOnAt *time.Time `json:"last_on_at,omitempty"`

	UsageMinutes float64 `json:"usage_minutes"`
	EnergyKWh    float64 `json:"energy_kwh"`

	// At most one pending timer per action.
	ScheduledOnAt  *time.Time `json:"scheduled_on_at,omitempty"`
	ScheduledOffAt *time.Time `json:"scheduled_off_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the (kind, room) identity of the device.
func (d *Device) Key() Key {
	return NewKey(d.Kind, d.Room)
}

// IsOn reports whether the device is currently switched on.
func (d *Device) IsOn() bool {
	return d.State == StateOn
}

// Timer returns the pending timer for action, or nil.
func (d *Device) Timer(action State) *time.Time {
	switch action {
	case StateOn:
		return d.ScheduledOnAt
	case StateOff:
		return d.ScheduledOffAt
	}
	return nil
}

// SetTimer replaces the pending timer for action.
func (d *Device) SetTimer(action State, at time.Time) {
	at = at.UTC()
	switch action {
	case StateOn:
		d.ScheduledOnAt = &at
	case StateOff:
		d.ScheduledOffAt = &at
	}
}

// ClearTimer removes the pending timer for action and reports whether one
// was set.
func (d *Device) ClearTimer(action State) bool {
	switch action {
	case StateOn:
		had := d.ScheduledOnAt != nil
		d.ScheduledOnAt = nil
		return had
	case StateOff:
		had := d.ScheduledOffAt != nil
		d.ScheduledOffAt = nil
		return had
	}
	return false
}

// DeepCopy returns an independent copy of the device.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cp := *d
	cp.LastOnAt = copyTime(d.LastOnAt)
	cp.ScheduledOnAt = copyTime(d.ScheduledOnAt)
	cp.ScheduledOffAt = copyTime(d.ScheduledOffAt)
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Key identifies a device within one household. Room is stored normalised
// so "Living Room" and " living  room " address the same device.
type Key struct {
	Kind Kind
	Room string
}

// NewKey builds a Key, normalising the room name.
func NewKey(kind Kind, room string) Key {
	return Key{Kind: kind, Room: NormalizeRoom(room)}
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%s", k.Kind, k.Room)
}

// NormalizeRoom lower-cases a room name and collapses internal whitespace.
func NormalizeRoom(room string) string {
	return strings.ToLower(strings.Join(strings.Fields(room), " "))
}

// Kind classifies an appliance.
type Kind string

// Appliance kinds known to the dashboard.
const (
	KindTV             Kind = "TV"
	KindAC             Kind = "AC"
	KindFan            Kind = "FAN"
	KindLight          Kind = "LIGHT"
	KindMicrowave      Kind = "MICROWAVE"
	KindFridge         Kind = "FRIDGE"
	KindWashingMachine Kind = "WASHING_MACHINE"
	KindHeater         Kind = "HEATER"
	KindGeyser         Kind = "GEYSER"
	KindSpeaker        Kind = "SPEAKER"
	KindComputer       Kind = "COMPUTER"
	KindOther          Kind = "OTHER"
)

// AllKinds returns every recognised appliance kind.
func AllKinds() []Kind {
	return []Kind{
		KindTV, KindAC, KindFan, KindLight, KindMicrowave, KindFridge,
		KindWashingMachine, KindHeater, KindGeyser, KindSpeaker, KindComputer, KindOther,
	}
}

// State is the power state of a device. It doubles as the action of a timer.
type State string

// Device power states.
const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// DeletedEnergyRecord preserves a removed device's totals so monthly
// energy history survives deletion. Totals include the session that was
// running when the device was deleted.
type DeletedEnergyRecord struct {
	Kind             Kind      `json:"kind"`
	Room             string    `json:"room"`
	PowerRatingWatts float64   `json:"power_rating_watts"`
	EnergyKWh        float64   `json:"energy_kwh"`
	UsageMinutes     float64   `json:"usage_minutes"`
	DeletedAt        time.Time `json:"deleted_at"`
	DeletionMonth    string    `json:"deletion_month"`
}

// MonthLayout formats deletion month buckets (YYYY-MM).
const MonthLayout = "2006-01"

// NewDeletedEnergyRecord snapshots d as of now.
func NewDeletedEnergyRecord(d *Device, now time.Time) DeletedEnergyRecord {
	return DeletedEnergyRecord{
		Kind:             d.Kind,
		Room:             d.Room,
		PowerRatingWatts: d.PowerRatingWatts,
		EnergyKWh:        CurrentEnergyKWh(d, now),
		UsageMinutes:     CurrentUsageMinutes(d, now),
		DeletedAt:        now.UTC(),
		DeletionMonth:    now.UTC().Format(MonthLayout),
	}
}
