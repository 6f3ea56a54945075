package household

import (
	"sort"
	"time"

	"github.com/nerrad567/hearth/internal/alert"
	"github.com/nerrad567/hearth/internal/calendar"
	"github.com/nerrad567/hearth/internal/device"
)

// Household is everything one user owns. It is the unit of locking and
// persistence: callers must serialise access to a Household themselves.
type Household struct {
	UserID string

	// Version increases on every mutation. Stores use it to drop
	// out-of-order writes.
	Version int64

	Devices        map[device.Key]*device.Device
	Alerts         map[string]*alert.Alert
	Events         map[string]*calendar.Event // keyed by calendar.TitleKey
	Ledger         *calendar.Ledger
	DeletedDevices []device.DeletedEnergyRecord

	UpdatedAt time.Time
}

// New returns an empty household for userID.
func New(userID string) *Household {
	return &Household{
		UserID:  userID,
		Devices: make(map[device.Key]*device.Device),
		Alerts:  make(map[string]*alert.Alert),
		Events:  make(map[string]*calendar.Event),
		Ledger:  calendar.NewLedger(),
	}
}

// Touch records a mutation at now.
func (h *Household) Touch(now time.Time) {
	h.Version++
	h.UpdatedAt = now.UTC()
}

// Device returns the device at key, or nil.
func (h *Household) Device(key device.Key) *device.Device {
	return h.Devices[key]
}

// Event returns the event with the given title, or nil.
func (h *Household) Event(title string) *calendar.Event {
	return h.Events[calendar.TitleKey(title)]
}

// EventsByID indexes events by ID.
func (h *Household) EventsByID() map[string]*calendar.Event {
	out := make(map[string]*calendar.Event, len(h.Events))
	for _, e := range h.Events {
		out[e.ID] = e
	}
	return out
}

// SortedDevices returns devices ordered by room then kind.
func (h *Household) SortedDevices() []*device.Device {
	out := make([]*device.Device, 0, len(h.Devices))
	for _, d := range h.Devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := out[i].Key(), out[j].Key()
		if ki.Room != kj.Room {
			return ki.Room < kj.Room
		}
		return ki.Kind < kj.Kind
	})
	return out
}

// SortedAlerts returns alerts ordered by creation time then ID.
func (h *Household) SortedAlerts() []*alert.Alert {
	out := make([]*alert.Alert, 0, len(h.Alerts))
	for _, a := range h.Alerts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SortedEvents returns events ordered by start time then title.
func (h *Household) SortedEvents() []*calendar.Event {
	out := make([]*calendar.Event, 0, len(h.Events))
	for _, e := range h.Events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].Title < out[j].Title
	})
	return out
}

// AlertsFor returns IDs of alerts watching key.
func (h *Household) AlertsFor(key device.Key) []string {
	var ids []string
	for id, a := range h.Alerts {
		if a.Target() == key {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// DeepCopy returns a snapshot that shares no mutable state with h.
func (h *Household) DeepCopy() *Household {
	if h == nil {
		return nil
	}
	cp := &Household{
		UserID:    h.UserID,
		Version:   h.Version,
		Devices:   make(map[device.Key]*device.Device, len(h.Devices)),
		Alerts:    make(map[string]*alert.Alert, len(h.Alerts)),
		Events:    make(map[string]*calendar.Event, len(h.Events)),
		UpdatedAt: h.UpdatedAt,
	}
	for k, d := range h.Devices {
		cp.Devices[k] = d.DeepCopy()
	}
	for id, a := range h.Alerts {
		cp.Alerts[id] = a.DeepCopy()
	}
	for k, e := range h.Events {
		cp.Events[k] = e.DeepCopy()
	}
	if h.Ledger != nil {
		cp.Ledger = h.Ledger.DeepCopy()
	} else {
		cp.Ledger = calendar.NewLedger()
	}
	if h.DeletedDevices != nil {
		cp.DeletedDevices = make([]device.DeletedEnergyRecord, len(h.DeletedDevices))
		copy(cp.DeletedDevices, h.DeletedDevices)
	}
	return cp
}
