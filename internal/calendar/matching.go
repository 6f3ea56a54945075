package calendar

import (
	"time"
)

const hoursPerDay = 24

// DueAction is one automation action whose window contains now and which
// has not yet run for its occurrence.
type DueAction struct {
	EventID    string
	EventTitle string
	Occurrence time.Time
	Index      int
	Action     Action
	DueAt      time.Time
}

// DueActions lists the actions of e that are due at now, meaning
// |occurrence + offset - now| <= window, and that ledger has not recorded.
// Results are ordered by action index.
func DueActions(e *Event, now time.Time, window time.Duration, ledger *Ledger) []DueAction {
	var due []DueAction
	for i, action := range e.Actions {
		for _, occ := range e.occurrencesAround(now.Add(-action.Offset()), window) {
			dueAt := occ.Add(action.Offset())
			if !withinWindow(dueAt, now, window) {
				continue
			}
			if ledger != nil && ledger.Executed(e.ID, occ, i) {
				continue
			}
			due = append(due, DueAction{
				EventID:    e.ID,
				EventTitle: e.Title,
				Occurrence: occ,
				Index:      i,
				Action:     action,
				DueAt:      dueAt,
			})
		}
	}
	return due
}

func withinWindow(dueAt, now time.Time, window time.Duration) bool {
	d := now.Sub(dueAt)
	if d < 0 {
		d = -d
	}
	return d <= window
}

// occurrencesAround returns the occurrence starts that may lie within
// window of t.
func (e *Event) occurrencesAround(t time.Time, window time.Duration) []time.Time {
	start := e.Start.UTC()
	days := e.Recurrence.periodDays()
	if days == 0 {
		return []time.Time{start}
	}

	period := time.Duration(days*hoursPerDay) * time.Hour
	if t.Before(start.Add(-window)) {
		return nil
	}

	k := int(t.Sub(start) / period)
	var out []time.Time
	for _, n := range []int{k - 1, k, k + 1} {
		if n < 0 {
			continue
		}
		out = append(out, start.AddDate(0, 0, n*days))
	}
	return out
}

// LastDue returns the latest instant any action of the occurrence starting
// at occ can still be due.
func (e *Event) LastDue(occ time.Time, window time.Duration) time.Time {
	latest := occ
	for _, a := range e.Actions {
		if due := occ.Add(a.Offset()); due.After(latest) {
			latest = due
		}
	}
	return latest.Add(window)
}

// NextOccurrence returns the first occurrence start at or after now, and
// false when a non-recurring event has already started.
func (e *Event) NextOccurrence(now time.Time) (time.Time, bool) {
	start := e.Start.UTC()
	if !start.Before(now) {
		return start, true
	}
	days := e.Recurrence.periodDays()
	if days == 0 {
		return time.Time{}, false
	}
	period := time.Duration(days*hoursPerDay) * time.Hour
	n := int(now.Sub(start)/period) + 1
	next := start.AddDate(0, 0, n*days)
	for next.Before(now) {
		n++
		next = start.AddDate(0, 0, n*days)
	}
	return next, true
}
