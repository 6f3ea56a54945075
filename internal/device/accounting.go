package device

import "time"

const (
	wattsPerKilowatt = 1000.0
	minutesPerHour   = 60.0
)

// OnStateChange moves d to newState at now and advances its counters.
//
//   - OFF→ON records LastOnAt; counters are untouched.
//   - ON→OFF adds the elapsed session (fractional minutes, never negative)
//     to UsageMinutes and the matching kWh to EnergyKWh.
//   - A transition to the current state is a no-op.
//
// It reports whether the state actually changed.
func OnStateChange(d *Device, newState State, now time.Time) bool {
	if d.State == newState {
		return false
	}

	switch newState {
	case StateOn:
		on := now.UTC()
		d.LastOnAt = &on
	case StateOff:
		minutes := SessionMinutes(d, now)
		d.UsageMinutes += minutes
		d.EnergyKWh += EnergyForMinutes(d.PowerRatingWatts, minutes)
	default:
		return false
	}

	d.State = newState
	d.UpdatedAt = now.UTC()
	return true
}

// SessionMinutes returns the length of the running ON session, or zero
// when the device is off. A clock that has moved backwards yields zero.
func SessionMinutes(d *Device, now time.Time) float64 {
	if d.State != StateOn || d.LastOnAt == nil {
		return 0
	}
	elapsed := now.Sub(*d.LastOnAt)
	if elapsed <= 0 {
		return 0
	}
	return elapsed.Minutes()
}

// SessionEnergyKWh returns the energy drawn by the running session alone.
func SessionEnergyKWh(d *Device, now time.Time) float64 {
	return EnergyForMinutes(d.PowerRatingWatts, SessionMinutes(d, now))
}

// CurrentUsageMinutes returns stored usage plus the running session.
// d is not modified.
func CurrentUsageMinutes(d *Device, now time.Time) float64 {
	return d.UsageMinutes + SessionMinutes(d, now)
}

// CurrentEnergyKWh returns stored energy plus the running session.
// d is not modified.
func CurrentEnergyKWh(d *Device, now time.Time) float64 {
	return d.EnergyKWh + SessionEnergyKWh(d, now)
}

// EnergyForMinutes converts a run time at the given rating to kWh.
func EnergyForMinutes(watts, minutes float64) float64 {
	return (watts / wattsPerKilowatt) * (minutes / minutesPerHour)
}

// Rerate changes the power rating. A running session is closed at the old
// rating and reopened at now so past consumption is not repriced.
func Rerate(d *Device, watts float64, now time.Time) {
	if d.IsOn() {
		minutes := SessionMinutes(d, now)
		d.UsageMinutes += minutes
		d.EnergyKWh += EnergyForMinutes(d.PowerRatingWatts, minutes)
		on := now.UTC()
		d.LastOnAt = &on
	}
	d.PowerRatingWatts = watts
	d.UpdatedAt = now.UTC()
}
