package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/hearth/internal/device"
	"github.com/nerrad567/hearth/internal/household"
)

// DeviceUpdate holds the editable fields of a device. Nil fields are left
// unchanged.
type DeviceUpdate struct {
	Room             *string
	PowerRatingWatts *float64
}

func lookupDevice(h *household.Household, key device.Key) (*device.Device, error) {
	d := h.Device(key)
	if d == nil {
		return nil, fmt.Errorf("%w: %s", device.ErrDeviceNotFound, key)
	}
	return d, nil
}

// AddDevice registers a new device, initially OFF.
func (s *Service) AddDevice(ctx context.Context, userID string, kind device.Kind, room string, watts float64) (*device.Device, error) {
	var out *device.Device
	err := s.mutate(ctx, userID, func(h *household.Household, now time.Time, fx *effects) error {
		d, err := device.NewDevice(kind, room, watts, now)
		if err != nil {
			return err
		}
		if h.Device(d.Key()) != nil {
			return fmt.Errorf("%w: %s", device.ErrDeviceExists, d.Key())
		}
		h.Devices[d.Key()] = d
		fx.changed = true
		fx.states = append(fx.states, d.DeepCopy())
		fx.record("ADD", d.Kind, d.Room, "", now)
		out = d.DeepCopy()
		return nil
	})
	return out, err
}

// EditDevice renames and/or rerates a device. Alerts watching the device
// follow it to its new room.
func (s *Service) EditDevice(ctx context.Context, userID string, key device.Key, upd DeviceUpdate) (*device.Device, error) {
	var out *device.Device
	err := s.mutate(ctx, userID, func(h *household.Household, now time.Time, fx *effects) error {
		d, err := lookupDevice(h, key)
		if err != nil {
			return err
		}

		newRoom := d.Room
		if upd.Room != nil {
			newRoom = strings.Join(strings.Fields(*upd.Room), " ")
			if err := device.ValidateRoom(newRoom); err != nil {
				return err
			}
		}
		if upd.PowerRatingWatts != nil {
			if err := device.ValidatePower(*upd.PowerRatingWatts); err != nil {
				return err
			}
		}

		newKey := device.NewKey(d.Kind, newRoom)
		if newKey != key && h.Device(newKey) != nil {
			return fmt.Errorf("%w: %s", device.ErrDeviceExists, newKey)
		}

		if upd.PowerRatingWatts != nil && *upd.PowerRatingWatts != d.PowerRatingWatts {
			fx.closeSession(d, now)
			device.Rerate(d, *upd.PowerRatingWatts, now)
		}
		if newRoom != d.Room {
			for _, id := range h.AlertsFor(key) {
				h.Alerts[id].Room = newRoom
			}
			delete(h.Devices, key)
			d.Room = newRoom
			h.Devices[newKey] = d
		}
		d.UpdatedAt = now.UTC()

		fx.changed = true
		fx.states = append(fx.states, d.DeepCopy())
		fx.record("EDIT", d.Kind, d.Room, "", now)
		out = d.DeepCopy()
		return nil
	})
	return out, err
}

// DeleteDevice removes a device. Its totals, including a running session,
// are kept as a DeletedEnergyRecord; alerts watching it are removed and its
// timers go with it.
func (s *Service) DeleteDevice(ctx context.Context, userID string, key device.Key) (device.DeletedEnergyRecord, error) {
	var rec device.DeletedEnergyRecord
	err := s.mutate(ctx, userID, func(h *household.Household, now time.Time, fx *effects) error {
		d, err := lookupDevice(h, key)
		if err != nil {
			return err
		}

		fx.closeSession(d, now)
		rec = device.NewDeletedEnergyRecord(d, now)
		h.DeletedDevices = append(h.DeletedDevices, rec)

		removed := h.AlertsFor(key)
		for _, id := range removed {
			delete(h.Alerts, id)
		}
		delete(h.Devices, key)

		fx.changed = true
		fx.record("DELETE", d.Kind, d.Room, fmt.Sprintf("%.4f kWh; %d alerts removed", rec.EnergyKWh, len(removed)), now)
		return nil
	})
	return rec, err
}

// SetDeviceState switches a device and reports whether its state changed.
func (s *Service) SetDeviceState(ctx context.Context, userID string, key device.Key, state device.State) (*device.Device, bool, error) {
	if err := device.ValidateState(state); err != nil {
		return nil, false, err
	}
	var (
		out     *device.Device
		changed bool
	)
	err := s.mutate(ctx, userID, func(h *household.Household, now time.Time, fx *effects) error {
		d, err := lookupDevice(h, key)
		if err != nil {
			return err
		}
		changed = fx.setState(d, state, now)
		out = d.DeepCopy()
		return nil
	})
	return out, changed, err
}

// ToggleDevice flips a device between ON and OFF.
func (s *Service) ToggleDevice(ctx context.Context, userID string, key device.Key) (*device.Device, error) {
	var out *device.Device
	err := s.mutate(ctx, userID, func(h *household.Household, now time.Time, fx *effects) error {
		d, err := lookupDevice(h, key)
		if err != nil {
			return err
		}
		next := device.StateOn
		if d.IsOn() {
			next = device.StateOff
		}
		fx.setState(d, next, now)
		out = d.DeepCopy()
		return nil
	})
	return out, err
}

// ListDevices returns copies of the user's devices ordered by room, kind.
func (s *Service) ListDevices(ctx context.Context, userID string) ([]*device.Device, error) {
	var out []*device.Device
	err := s.view(ctx, userID, func(h *household.Household, _ time.Time) error {
		for _, d := range h.SortedDevices() {
			out = append(out, d.DeepCopy())
		}
		return nil
	})
	return out, err
}

// GetDevice returns a copy of one device.
func (s *Service) GetDevice(ctx context.Context, userID string, key device.Key) (*device.Device, error) {
	var out *device.Device
	err := s.view(ctx, userID, func(h *household.Household, _ time.Time) error {
		d, err := lookupDevice(h, key)
		if err != nil {
			return err
		}
		out = d.DeepCopy()
		return nil
	})
	return out, err
}

// ScheduleDeviceTimer sets the pending ON or OFF time of a device,
// replacing any earlier timer for the same action. at must be strictly
// later than now plus the lead time.
func (s *Service) ScheduleDeviceTimer(ctx context.Context, userID string, kind device.Kind, room string, action device.State, at time.Time) error {
	if action != device.StateOn && action != device.StateOff {
		return fmt.Errorf("%w: action %q", ErrInvalidTimer, action)
	}
	return s.mutate(ctx, userID, func(h *household.Household, now time.Time, fx *effects) error {
		d, err := lookupDevice(h, device.NewKey(kind, room))
		if err != nil {
			return err
		}
		if earliest := now.Add(s.cfg.LeadTime); !at.After(earliest) {
			return fmt.Errorf("%w: %s is not after %s", ErrTimerTooSoon,
				at.UTC().Format(time.RFC3339), earliest.UTC().Format(time.RFC3339))
		}
		d.SetTimer(action, at)
		d.UpdatedAt = now.UTC()
		fx.changed = true
		fx.record("SCHEDULE_"+string(action), d.Kind, d.Room, at.UTC().Format(time.RFC3339), now)
		return nil
	})
}

// CancelDeviceTimer clears a pending timer. It fails with ErrTimerNotSet
// when none is pending.
func (s *Service) CancelDeviceTimer(ctx context.Context, userID string, kind device.Kind, room string, action device.State) error {
	if action != device.StateOn && action != device.StateOff {
		return fmt.Errorf("%w: action %q", ErrInvalidTimer, action)
	}
	return s.mutate(ctx, userID, func(h *household.Household, now time.Time, fx *effects) error {
		d, err := lookupDevice(h, device.NewKey(kind, room))
		if err != nil {
			return err
		}
		if !d.ClearTimer(action) {
			return fmt.Errorf("%w: %s %s", ErrTimerNotSet, d.Key(), action)
		}
		d.UpdatedAt = now.UTC()
		fx.changed = true
		fx.record("CANCEL_"+string(action), d.Kind, d.Room, "", now)
		return nil
	})
}

// Timer is one pending device timer.
type Timer struct {
	DeviceKind device.Kind  `json:"device_kind"`
	Room       string       `json:"room"`
	Action     device.State `json:"action"`
	At         time.Time    `json:"at"`
}

// ListTimers returns every pending timer ordered by due time.
func (s *Service) ListTimers(ctx context.Context, userID string) ([]Timer, error) {
	var out []Timer
	err := s.view(ctx, userID, func(h *household.Household, _ time.Time) error {
		for _, d := range h.SortedDevices() {
			for _, action := range []device.State{device.StateOn, device.StateOff} {
				if at := d.Timer(action); at != nil {
					out = append(out, Timer{DeviceKind: d.Kind, Room: d.Room, Action: action, At: *at})
				}
			}
		}
		return nil
	})
	sortTimers(out)
	return out, err
}
