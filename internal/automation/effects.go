package automation

import (
	"fmt"
	"time"

	"github.com/nerrad567/hearth/internal/alert"
	"github.com/nerrad567/hearth/internal/audit"
	"github.com/nerrad567/hearth/internal/device"
	"github.com/nerrad567/hearth/internal/notify"
)

// session is a closed ON period, exported after the save.
type session struct {
	device  *device.Device
	minutes float64
	kwh     float64
	at      time.Time
}

type alertFiring struct {
	alert    *alert.Alert
	observed float64
	at       time.Time
}

// effects collects what a critical section changed and what must happen
// once the lock is released.
type effects struct {
	userID string
	source string

	changed       bool
	notifications []notify.Notification
	sessions      []session
	states        []*device.Device
	history       []audit.Entry
	firings       []alertFiring
}

func newEffects(userID, source string) *effects {
	return &effects{userID: userID, source: source}
}

// setState is the single path every state change goes through.
func (fx *effects) setState(d *device.Device, st device.State, now time.Time) bool {
	wasOn := d.IsOn()
	minutes := device.SessionMinutes(d, now)
	kwh := device.SessionEnergyKWh(d, now)

	if !device.OnStateChange(d, st, now) {
		return false
	}

	fx.changed = true
	if wasOn {
		fx.sessions = append(fx.sessions, session{device: d.DeepCopy(), minutes: minutes, kwh: kwh, at: now})
	}
	fx.states = append(fx.states, d.DeepCopy())
	fx.record(string(st), d.Kind, d.Room, "", now)
	return true
}

// closeSession exports the running session of d without changing state.
// Used when a device is rerated or deleted while on.
func (fx *effects) closeSession(d *device.Device, now time.Time) {
	if !d.IsOn() {
		return
	}
	fx.sessions = append(fx.sessions, session{
		device:  d.DeepCopy(),
		minutes: device.SessionMinutes(d, now),
		kwh:     device.SessionEnergyKWh(d, now),
		at:      now,
	})
}

func (fx *effects) record(action string, kind device.Kind, room, detail string, now time.Time) {
	fx.history = append(fx.history, audit.Entry{
		UserID:     fx.userID,
		Action:     action,
		Source:     fx.source,
		DeviceKind: string(kind),
		Room:       room,
		Detail:     detail,
		OccurredAt: now,
	})
}

func (fx *effects) notify(n notify.Notification) {
	fx.notifications = append(fx.notifications, n)
}

func (fx *effects) fired(a *alert.Alert, observed float64, now time.Time) {
	fx.changed = true
	fx.firings = append(fx.firings, alertFiring{alert: a.DeepCopy(), observed: observed, at: now})
	fx.record("ALERT", a.DeviceKind, a.Room, a.Name, now)
	fx.notify(notify.Notification{
		Kind:       notify.KindAlert,
		Title:      a.Name,
		Message:    a.Text(observed),
		DeviceKind: string(a.DeviceKind),
		Room:       a.Room,
		AlertID:    a.ID,
		At:         now,
	})
}

func deviceNotification(kind notify.Kind, title string, d *device.Device, now time.Time) notify.Notification {
	return notify.Notification{
		Kind:       kind,
		Title:      title,
		Message:    fmt.Sprintf("%s in %s turned %s", d.Kind, d.Room, d.State),
		DeviceKind: string(d.Kind),
		Room:       d.Room,
		At:         now,
	}
}
