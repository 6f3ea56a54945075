package device

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxRoomLength = 50

	// Largest rating accepted for a household appliance.
	maxPowerRatingWatts = 20000
)

var validKinds map[Kind]struct{}

func init() {
	validKinds = make(map[Kind]struct{}, len(AllKinds()))
	for _, k := range AllKinds() {
		validKinds[k] = struct{}{}
	}
}

// GenerateID returns a new device ID.
func GenerateID() string {
	return uuid.NewString()
}

// NewDevice builds a validated device that starts OFF with zero counters.
func NewDevice(kind Kind, room string, watts float64, now time.Time) (*Device, error) {
	d := &Device{
		ID:               GenerateID(),
		Kind:             kind,
		Room:             strings.Join(strings.Fields(room), " "),
		PowerRatingWatts: watts,
		State:            StateOff,
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
	}
	if err := ValidateDevice(d); err != nil {
		return nil, err
	}
	return d, nil
}

// ParseKind accepts a kind in any case, with spaces or hyphens in place of
// underscores ("washing machine" → WASHING_MACHINE).
func ParseKind(s string) (Kind, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	k := Kind(norm)
	if err := ValidateKind(k); err != nil {
		return "", err
	}
	return k, nil
}

// ParseState accepts "on"/"off" in any case.
func ParseState(s string) (State, error) {
	st := State(strings.ToUpper(strings.TrimSpace(s)))
	if err := ValidateState(st); err != nil {
		return "", err
	}
	return st, nil
}

// ValidateKind checks that k is a recognised appliance kind.
func ValidateKind(k Kind) error {
	if _, ok := validKinds[k]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidKind, k)
	}
	return nil
}

// ValidateState checks that s is ON or OFF.
func ValidateState(s State) error {
	if s != StateOn && s != StateOff {
		return fmt.Errorf("%w: %q", ErrInvalidState, s)
	}
	return nil
}

// ValidateRoom checks a display room name.
func ValidateRoom(room string) error {
	trimmed := strings.TrimSpace(room)
	if trimmed == "" {
		return fmt.Errorf("%w: room is required", ErrInvalidRoom)
	}
	if len(trimmed) > maxRoomLength {
		return fmt.Errorf("%w: room exceeds %d characters", ErrInvalidRoom, maxRoomLength)
	}
	return nil
}

// ValidatePower checks a power rating in watts.
func ValidatePower(watts float64) error {
	if math.IsNaN(watts) || math.IsInf(watts, 0) || watts <= 0 {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidPower)
	}
	if watts > maxPowerRatingWatts {
		return fmt.Errorf("%w: exceeds %d W", ErrInvalidPower, maxPowerRatingWatts)
	}
	return nil
}

// ValidateDevice checks every user-supplied field of d.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}
	if err := ValidateKind(d.Kind); err != nil {
		return err
	}
	if err := ValidateRoom(d.Room); err != nil {
		return err
	}
	if err := ValidatePower(d.PowerRatingWatts); err != nil {
		return err
	}
	if err := ValidateState(d.State); err != nil {
		return err
	}
	if d.UsageMinutes < 0 || d.EnergyKWh < 0 {
		return fmt.Errorf("%w: counters must not be negative", ErrInvalidDevice)
	}
	return nil
}
