package calendar

import (
	"sort"
	"time"
)

// OccurrenceKey identifies one occurrence of one event.
type OccurrenceKey struct {
	EventID string
	Start   int64 // unix seconds
}

// NewOccurrenceKey builds the key for the occurrence starting at start.
func NewOccurrenceKey(eventID string, start time.Time) OccurrenceKey {
	return OccurrenceKey{EventID: eventID, Start: start.Unix()}
}

// Marker records which actions of an occurrence have run.
type Marker struct {
	EventID         string    `json:"event_id"`
	OccurrenceStart time.Time `json:"occurrence_start"`
	Executed        []int     `json:"executed"`
}

// Ledger tracks executed automation actions per occurrence so an action
// runs at most once while now stays inside its window.
//
// Ledger is not safe for concurrent use; it lives inside a household
// aggregate guarded by the aggregate's lock.
type Ledger struct {
	entries map[OccurrenceKey]map[int]struct{}
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[OccurrenceKey]map[int]struct{})}
}

// LoadLedger rebuilds a ledger from persisted markers.
func LoadLedger(markers []Marker) *Ledger {
	l := NewLedger()
	for _, m := range markers {
		for _, idx := range m.Executed {
			l.MarkExecuted(m.EventID, m.OccurrenceStart, idx)
		}
	}
	return l
}

// Executed reports whether action index of the occurrence has run.
func (l *Ledger) Executed(eventID string, occ time.Time, index int) bool {
	set, ok := l.entries[NewOccurrenceKey(eventID, occ)]
	if !ok {
		return false
	}
	_, done := set[index]
	return done
}

// MarkExecuted records that action index of the occurrence has run.
func (l *Ledger) MarkExecuted(eventID string, occ time.Time, index int) {
	key := NewOccurrenceKey(eventID, occ)
	set, ok := l.entries[key]
	if !ok {
		set = make(map[int]struct{})
		l.entries[key] = set
	}
	set[index] = struct{}{}
}

// ClearEvent drops every marker of eventID.
func (l *Ledger) ClearEvent(eventID string) {
	for key := range l.entries {
		if key.EventID == eventID {
			delete(l.entries, key)
		}
	}
}

// Prune drops markers whose event is gone or whose last due window closed
// before now. It returns the number of markers removed.
func (l *Ledger) Prune(events map[string]*Event, now time.Time, window time.Duration) int {
	removed := 0
	for key := range l.entries {
		e, ok := events[key.EventID]
		if !ok || e.LastDue(time.Unix(key.Start, 0).UTC(), window).Before(now) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of occurrences tracked.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Markers returns the ledger contents in a stable order.
func (l *Ledger) Markers() []Marker {
	out := make([]Marker, 0, len(l.entries))
	for key, set := range l.entries {
		m := Marker{EventID: key.EventID, OccurrenceStart: time.Unix(key.Start, 0).UTC()}
		for idx := range set {
			m.Executed = append(m.Executed, idx)
		}
		sort.Ints(m.Executed)
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventID != out[j].EventID {
			return out[i].EventID < out[j].EventID
		}
		return out[i].OccurrenceStart.Before(out[j].OccurrenceStart)
	})
	return out
}

// DeepCopy returns an independent copy of the ledger.
func (l *Ledger) DeepCopy() *Ledger {
	cp := NewLedger()
	for key, set := range l.entries {
		dst := make(map[int]struct{}, len(set))
		for idx := range set {
			dst[idx] = struct{}{}
		}
		cp.entries[key] = dst
	}
	return cp
}
