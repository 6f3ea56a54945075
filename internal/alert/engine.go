package alert

import (
	"time"

	"github.com/nerrad567/hearth/internal/device"
)

// Evaluate reports whether a fires at now. target is the watched device, or
// nil if it no longer exists; a missing target never fires. For
// ENERGY_USAGE alerts the observed session-inclusive energy is returned.
func Evaluate(a *Alert, target *device.Device, now time.Time) (bool, float64) {
	if !a.Active || target == nil {
		return false, 0
	}

	switch a.Kind {
	case KindTimeBased:
		if a.TriggerAt == nil {
			return false, 0
		}
		return !now.Before(*a.TriggerAt), 0
	case KindEnergyUsage:
		observed := device.CurrentEnergyKWh(target, now)
		return a.Comparator.Compare(observed, a.ThresholdKWh), observed
	}
	return false, 0
}

// Fire records a firing at now and re-arms or retires the alert. It
// returns true when the alert must be removed from its registry.
//
// Kept ENERGY_USAGE alerts stay active and fire again on every pass while
// the predicate holds. Kept TIME_BASED alerts move their trigger forward
// by whole repeat intervals past now, or deactivate when no interval is set.
func (a *Alert) Fire(now time.Time) (remove bool) {
	fired := now.UTC()
	a.TriggerCount++
	a.LastTriggeredAt = &fired

	if a.AutoDelete {
		return true
	}

	if a.Kind == KindTimeBased {
		if a.RepeatSeconds <= 0 || a.TriggerAt == nil {
			a.Active = false
			return false
		}
		interval := time.Duration(a.RepeatSeconds) * time.Second
		next := *a.TriggerAt
		if !next.After(now) {
			missed := now.Sub(next)/interval + 1
			next = next.Add(missed * interval)
		}
		a.TriggerAt = &next
	}
	return false
}
