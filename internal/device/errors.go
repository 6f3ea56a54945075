package device

import "errors"

// Domain errors for the device package.
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when no device matches a (kind, room) key.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when a (kind, room) key is already taken.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidKind is returned for an unrecognised appliance kind.
	ErrInvalidKind = errors.New("device: invalid kind")

	// ErrInvalidRoom is returned when a room name is empty or too long.
	ErrInvalidRoom = errors.New("device: invalid room")

	// ErrInvalidPower is returned when a power rating is not positive.
	ErrInvalidPower = errors.New("device: invalid power rating")

	// ErrInvalidState is returned for anything other than ON or OFF.
	ErrInvalidState = errors.New("device: invalid state")
)
