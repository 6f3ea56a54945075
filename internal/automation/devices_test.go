package automation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/nerrad567/hearth/internal/alert"
	"github.com/nerrad567/hearth/internal/audit"
	"github.com/nerrad567/hearth/internal/device"
	"github.com/nerrad567/hearth/internal/notify"
)

const epsilon = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) < epsilon }

func TestAddDevice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d, err := h.svc.AddDevice(ctx, user, device.KindTV, "  Living   Room ", 150)
	if err != nil {
		t.Fatalf("AddDevice() error = %v", err)
	}
	if d.Room != "Living Room" || d.State != device.StateOff {
		t.Errorf("AddDevice() = room %q state %s, want Living Room OFF", d.Room, d.State)
	}

	_, err = h.svc.AddDevice(ctx, user, device.KindTV, "living room", 90)
	if !errors.Is(err, device.ErrDeviceExists) || !IsConflict(err) {
		t.Errorf("duplicate AddDevice() error = %v, want ErrDeviceExists", err)
	}

	_, err = h.svc.AddDevice(ctx, user, device.KindTV, "Den", 0)
	if !IsValidation(err) {
		t.Errorf("zero watts AddDevice() error = %v, want validation error", err)
	}

	if h.store.Saves() != 1 {
		t.Errorf("Saves() = %d, want 1 (failed calls must not save)", h.store.Saves())
	}
}

func TestSetDeviceState_EnergyAccounting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addDevice(t, device.KindTV, "Living Room", 150)
	key := device.NewKey(device.KindTV, "Living Room")

	_, changed, err := h.svc.SetDeviceState(ctx, user, key, device.StateOn)
	if err != nil || !changed {
		t.Fatalf("SetDeviceState(ON) = changed %v, err %v", changed, err)
	}
	_, changed, _ = h.svc.SetDeviceState(ctx, user, key, device.StateOn)
	if changed {
		t.Error("SetDeviceState(ON) twice reported a change")
	}

	h.clock.Advance(2 * time.Hour)
	d, changed, err := h.svc.SetDeviceState(ctx, user, key, device.StateOff)
	if err != nil || !changed {
		t.Fatalf("SetDeviceState(OFF) = changed %v, err %v", changed, err)
	}
	if !approx(d.UsageMinutes, 120) {
		t.Errorf("UsageMinutes = %v, want 120", d.UsageMinutes)
	}
	if !approx(d.EnergyKWh, 0.3) {
		t.Errorf("EnergyKWh = %v, want 0.3", d.EnergyKWh)
	}

	h.energy.mu.Lock()
	sessions := append([]float64(nil), h.energy.sessions...)
	h.energy.mu.Unlock()
	if len(sessions) != 1 || !approx(sessions[0], 0.3) {
		t.Errorf("exported sessions = %v, want [0.3]", sessions)
	}

	if got := h.history.actions(audit.SourceUser); len(got) != 3 || got[1] != "ON" || got[2] != "OFF" {
		t.Errorf("history = %v, want [ADD ON OFF]", got)
	}
}

func TestSetDeviceState_SourceTag(t *testing.T) {
	h := newHarness(t)
	h.addDevice(t, device.KindFan, "Bedroom", 60)

	ctx := WithSource(context.Background(), audit.SourceMQTT)
	if _, _, err := h.svc.SetDeviceState(ctx, user, device.NewKey(device.KindFan, "bedroom"), device.StateOn); err != nil {
		t.Fatalf("SetDeviceState() error = %v", err)
	}
	if got := h.history.actions(audit.SourceMQTT); len(got) != 1 || got[0] != "ON" {
		t.Errorf("mqtt history = %v, want [ON]", got)
	}
}

func TestSetDeviceState_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addDevice(t, device.KindTV, "Living Room", 150)

	_, _, err := h.svc.SetDeviceState(ctx, user, device.NewKey(device.KindTV, "Attic"), device.StateOn)
	if !IsNotFound(err) {
		t.Errorf("missing device error = %v, want not found", err)
	}
	_, _, err = h.svc.SetDeviceState(ctx, user, device.NewKey(device.KindTV, "Living Room"), "DIM")
	if !IsValidation(err) {
		t.Errorf("bad state error = %v, want validation", err)
	}
}

func TestToggleDevice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addDevice(t, device.KindLight, "Hall", 10)
	key := device.NewKey(device.KindLight, "Hall")

	d, err := h.svc.ToggleDevice(ctx, user, key)
	if err != nil || d.State != device.StateOn {
		t.Fatalf("ToggleDevice() = %v, %v; want ON", d, err)
	}
	d, err = h.svc.ToggleDevice(ctx, user, key)
	if err != nil || d.State != device.StateOff {
		t.Fatalf("ToggleDevice() = %v, %v; want OFF", d, err)
	}
}

func TestEditDevice_RenameRetargetsAlerts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addDevice(t, device.KindAC, "Bedroom", 1500)
	h.addDevice(t, device.KindAC, "Study", 1500)

	a, err := h.svc.CreateEnergyUsageAlert(ctx, user, "AC hog", device.KindAC, "Bedroom", 5, alert.GreaterThan, "", alert.Options{})
	if err != nil {
		t.Fatalf("CreateEnergyUsageAlert() error = %v", err)
	}

	study := "study"
	_, err = h.svc.EditDevice(ctx, user, device.NewKey(device.KindAC, "Bedroom"), DeviceUpdate{Room: &study})
	if !errors.Is(err, device.ErrDeviceExists) {
		t.Errorf("rename onto existing device error = %v, want ErrDeviceExists", err)
	}

	guest := "Guest Room"
	d, err := h.svc.EditDevice(ctx, user, device.NewKey(device.KindAC, "Bedroom"), DeviceUpdate{Room: &guest})
	if err != nil {
		t.Fatalf("EditDevice() error = %v", err)
	}
	if d.Room != "Guest Room" {
		t.Errorf("Room = %q, want Guest Room", d.Room)
	}
	if _, err := h.svc.GetDevice(ctx, user, device.NewKey(device.KindAC, "Bedroom")); !IsNotFound(err) {
		t.Errorf("old key still resolves, err = %v", err)
	}

	alerts, _ := h.svc.ListAlerts(ctx, user)
	if len(alerts) != 1 || alerts[0].ID != a.ID || alerts[0].Room != "Guest Room" {
		t.Errorf("alerts after rename = %+v, want room Guest Room", alerts)
	}
}

func TestEditDevice_RerateClosesSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addDevice(t, device.KindHeater, "Den", 1000)
	key := device.NewKey(device.KindHeater, "Den")

	if _, _, err := h.svc.SetDeviceState(ctx, user, key, device.StateOn); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(time.Hour)

	watts := 2000.0
	d, err := h.svc.EditDevice(ctx, user, key, DeviceUpdate{PowerRatingWatts: &watts})
	if err != nil {
		t.Fatalf("EditDevice() error = %v", err)
	}
	if !approx(d.EnergyKWh, 1.0) || !d.IsOn() {
		t.Errorf("after rerate: energy %v on %v, want 1.0 and still on", d.EnergyKWh, d.IsOn())
	}

	h.clock.Advance(30 * time.Minute)
	d, _, _ = h.svc.SetDeviceState(ctx, user, key, device.StateOff)
	if !approx(d.EnergyKWh, 2.0) {
		t.Errorf("EnergyKWh = %v, want 2.0 (1h at 1kW + 30m at 2kW)", d.EnergyKWh)
	}
	if !approx(d.UsageMinutes, 90) {
		t.Errorf("UsageMinutes = %v, want 90", d.UsageMinutes)
	}
}

func TestDeleteDevice_RecordAndCascade(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addDevice(t, device.KindGeyser, "Bathroom", 3000)
	h.addDevice(t, device.KindLight, "Bathroom", 10)
	key := device.NewKey(device.KindGeyser, "Bathroom")

	_, err := h.svc.CreateEnergyUsageAlert(ctx, user, "Geyser", device.KindGeyser, "Bathroom", 10, alert.GreaterThan, "", alert.Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = h.svc.CreateEnergyUsageAlert(ctx, user, "Light", device.KindLight, "Bathroom", 10, alert.GreaterThan, "", alert.Options{})
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := h.svc.SetDeviceState(ctx, user, key, device.StateOn); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(20 * time.Minute)

	rec, err := h.svc.DeleteDevice(ctx, user, key)
	if err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if !approx(rec.EnergyKWh, 1.0) || !approx(rec.UsageMinutes, 20) {
		t.Errorf("record = %v kWh %v min, want 1.0 kWh 20 min", rec.EnergyKWh, rec.UsageMinutes)
	}
	if rec.DeletionMonth != "2026-03" {
		t.Errorf("DeletionMonth = %q, want 2026-03", rec.DeletionMonth)
	}

	alerts, _ := h.svc.ListAlerts(ctx, user)
	if len(alerts) != 1 || alerts[0].Name != "Light" {
		t.Errorf("alerts after delete = %d, want only the Light alert", len(alerts))
	}

	report, err := h.svc.EnergyReport(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Deleted) != 1 || !approx(report.DeletedEnergyKWh, 1.0) {
		t.Errorf("report deleted = %+v, want one month totalling 1.0 kWh", report.Deleted)
	}

	if _, err := h.svc.DeleteDevice(ctx, user, key); !IsNotFound(err) {
		t.Errorf("second DeleteDevice() error = %v, want not found", err)
	}
}

func TestEnergyReport_IncludesRunningSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addDevice(t, device.KindFridge, "Kitchen", 200)
	h.addDevice(t, device.KindTV, "Living Room", 100)

	if _, _, err := h.svc.SetDeviceState(ctx, user, device.NewKey(device.KindFridge, "Kitchen"), device.StateOn); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(90 * time.Minute)

	report, err := h.svc.EnergyReport(ctx, user)
	if err != nil {
		t.Fatalf("EnergyReport() error = %v", err)
	}
	if !approx(report.TotalEnergyKWh, 0.3) || !approx(report.TotalUsageMinutes, 90) {
		t.Errorf("totals = %v kWh %v min, want 0.3 kWh 90 min", report.TotalEnergyKWh, report.TotalUsageMinutes)
	}

	d := h.device(t, device.KindFridge, "Kitchen")
	if d.EnergyKWh != 0 {
		t.Errorf("report mutated stored energy: %v", d.EnergyKWh)
	}
}

func TestScheduleDeviceTimer_TVScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addDevice(t, device.KindTV, "Living Room", 150)

	at := t0.Add(2 * time.Minute)
	if err := h.svc.ScheduleDeviceTimer(ctx, user, device.KindTV, "Living Room", device.StateOn, at); err != nil {
		t.Fatalf("ScheduleDeviceTimer() error = %v", err)
	}

	h.clock.Advance(time.Minute)
	h.tick(t)
	if d := h.device(t, device.KindTV, "Living Room"); d.IsOn() {
		t.Fatal("timer fired early")
	}

	h.clock.Advance(time.Minute)
	h.tick(t)
	d := h.device(t, device.KindTV, "Living Room")
	if !d.IsOn() {
		t.Fatal("timer did not fire at its due time")
	}
	if d.ScheduledOnAt != nil {
		t.Error("fired timer was not cleared")
	}
	if d.LastOnAt == nil || !d.LastOnAt.Equal(at) {
		t.Errorf("LastOnAt = %v, want %v", d.LastOnAt, at)
	}

	if n := h.notes.byKind(notify.KindTimer); len(n) != 1 {
		t.Errorf("timer notifications = %d, want 1", len(n))
	}
	if got := h.history.actions(audit.SourceTimer); len(got) != 1 || got[0] != "ON" {
		t.Errorf("timer history = %v, want [ON]", got)
	}

	stored, err := h.store.Load(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if sd := stored.Device(device.NewKey(device.KindTV, "living room")); sd == nil || !sd.IsOn() {
		t.Error("fired timer was not persisted")
	}
}

func TestScheduleDeviceTimer_LeadTime(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addDevice(t, device.KindTV, "Living Room", 150)

	first := t0.Add(10 * time.Minute)
	if err := h.svc.ScheduleDeviceTimer(ctx, user, device.KindTV, "Living Room", device.StateOff, first); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		at   time.Time
	}{
		{"in the past", t0.Add(-time.Minute)},
		{"now", t0},
		{"exactly lead time", t0.Add(time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.svc.ScheduleDeviceTimer(ctx, user, device.KindTV, "Living Room", device.StateOff, tt.at)
			if !errors.Is(err, ErrTimerTooSoon) || !IsValidation(err) {
				t.Errorf("error = %v, want ErrTimerTooSoon", err)
			}
		})
	}

	timers, err := h.svc.ListTimers(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if len(timers) != 1 || !timers[0].At.Equal(first) {
		t.Errorf("timers = %+v, want the original timer untouched", timers)
	}
}

func TestScheduleDeviceTimer_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addDevice(t, device.KindTV, "Living Room", 150)
	at := t0.Add(time.Hour)

	if err := h.svc.ScheduleDeviceTimer(ctx, user, device.KindTV, "Garage", device.StateOn, at); !IsNotFound(err) {
		t.Errorf("missing device error = %v, want not found", err)
	}
	if err := h.svc.ScheduleDeviceTimer(ctx, user, device.KindTV, "Living Room", "TOGGLE", at); !errors.Is(err, ErrInvalidTimer) {
		t.Errorf("bad action error = %v, want ErrInvalidTimer", err)
	}
	if err := h.svc.CancelDeviceTimer(ctx, user, device.KindTV, "Living Room", device.StateOn); !errors.Is(err, ErrTimerNotSet) {
		t.Errorf("cancel unset timer error = %v, want ErrTimerNotSet", err)
	}

	if err := h.svc.ScheduleDeviceTimer(ctx, user, device.KindTV, "Living Room", device.StateOn, at); err != nil {
		t.Fatal(err)
	}
	if err := h.svc.CancelDeviceTimer(ctx, user, device.KindTV, "Living Room", device.StateOn); err != nil {
		t.Errorf("CancelDeviceTimer() error = %v", err)
	}
	if timers, _ := h.svc.ListTimers(ctx, user); len(timers) != 0 {
		t.Errorf("timers after cancel = %+v, want none", timers)
	}
}

func TestTimers_OnAndOffAtSameInstant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addDevice(t, device.KindSpeaker, "Patio", 40)

	at := t0.Add(5 * time.Minute)
	for _, action := range []device.State{device.StateOff, device.StateOn} {
		if err := h.svc.ScheduleDeviceTimer(ctx, user, device.KindSpeaker, "Patio", action, at); err != nil {
			t.Fatal(err)
		}
	}

	h.clock.Advance(5 * time.Minute)
	h.tick(t)

	d := h.device(t, device.KindSpeaker, "Patio")
	if d.IsOn() {
		t.Error("device is ON, want OFF (ON fires before OFF)")
	}
	if d.UsageMinutes != 0 || d.EnergyKWh != 0 {
		t.Errorf("counters = %v min %v kWh, want zero", d.UsageMinutes, d.EnergyKWh)
	}
	if got := h.history.actions(audit.SourceTimer); len(got) != 2 || got[0] != "ON" || got[1] != "OFF" {
		t.Errorf("timer history = %v, want [ON OFF]", got)
	}
}
