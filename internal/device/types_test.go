package device

import (
	"testing"
	"time"
)

func TestNewKey_NormalisesRoom(t *testing.T) {
	a := NewKey(KindTV, "Living Room")
	b := NewKey(KindTV, "  living   ROOM ")
	if a != b {
		t.Errorf("keys differ: %v vs %v", a, b)
	}
	if a.String() != "TV@living room" {
		t.Errorf("String() = %q", a.String())
	}
}

func TestDevice_Timers(t *testing.T) {
	d := &Device{Kind: KindLight, Room: "Porch", State: StateOff}
	at := time.Date(2026, 1, 2, 20, 0, 0, 0, time.FixedZone("X", 3600))

	d.SetTimer(StateOn, at)
	if got := d.Timer(StateOn); got == nil || !got.Equal(at) || got.Location() != time.UTC {
		t.Fatalf("Timer(ON) = %v, want %v in UTC", got, at)
	}
	if d.Timer(StateOff) != nil {
		t.Error("Timer(OFF) should be unset")
	}

	replacement := at.Add(time.Hour)
	d.SetTimer(StateOn, replacement)
	if !d.Timer(StateOn).Equal(replacement) {
		t.Errorf("SetTimer did not replace pending ON timer")
	}

	if !d.ClearTimer(StateOn) {
		t.Error("ClearTimer(ON) should report a cleared timer")
	}
	if d.ClearTimer(StateOn) {
		t.Error("second ClearTimer(ON) should report nothing cleared")
	}
	if d.ClearTimer(State("DIM")) {
		t.Error("ClearTimer with unknown action should be false")
	}
}

func TestDevice_DeepCopy(t *testing.T) {
	on := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	d := &Device{ID: "a", Kind: KindAC, Room: "Office", LastOnAt: &on, ScheduledOffAt: &on}

	cp := d.DeepCopy()
	*cp.LastOnAt = on.Add(time.Hour)
	cp.ScheduledOffAt = nil

	if !d.LastOnAt.Equal(on) {
		t.Error("mutating copy changed original LastOnAt")
	}
	if d.ScheduledOffAt == nil {
		t.Error("mutating copy cleared original timer")
	}

	var nilDevice *Device
	if nilDevice.DeepCopy() != nil {
		t.Error("DeepCopy of nil should be nil")
	}
}
