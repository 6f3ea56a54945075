package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/hearth/internal/alert"
	"github.com/nerrad567/hearth/internal/device"
	"github.com/nerrad567/hearth/internal/notify"
)

func TestEnergyAlert_MicrowaveAutoDeletes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addDevice(t, device.KindMicrowave, "Kitchen", 1200)

	a, err := h.svc.CreateEnergyUsageAlert(ctx, user, "Microwave", device.KindMicrowave, "Kitchen", 0.01, alert.GreaterThan, "", alert.Options{})
	if err != nil {
		t.Fatalf("CreateEnergyUsageAlert() error = %v", err)
	}
	if !a.AutoDelete || !a.Active {
		t.Fatalf("new alert = active %v auto-delete %v, want both true", a.Active, a.AutoDelete)
	}

	if _, _, err := h.svc.SetDeviceState(ctx, user, device.NewKey(device.KindMicrowave, "Kitchen"), device.StateOn); err != nil {
		t.Fatal(err)
	}
	h.tick(t)
	if alerts, _ := h.svc.ListAlerts(ctx, user); len(alerts) != 1 {
		t.Fatalf("alert fired before threshold, %d alerts left", len(alerts))
	}

	// 1200 W for one minute is 0.02 kWh, counted while the device is still on.
	h.clock.Advance(time.Minute)
	h.tick(t)

	if alerts, _ := h.svc.ListAlerts(ctx, user); len(alerts) != 0 {
		t.Errorf("alerts after firing = %d, want 0", len(alerts))
	}
	fired := h.notes.byKind(notify.KindAlert)
	if len(fired) != 1 || fired[0].AlertID != a.ID {
		t.Fatalf("alert notifications = %+v, want one for %s", fired, a.ID)
	}
	h.energy.mu.Lock()
	defer h.energy.mu.Unlock()
	if len(h.energy.alerts) != 1 || h.energy.alerts[0] != "Microwave" {
		t.Errorf("exported alert firings = %v, want [Microwave]", h.energy.alerts)
	}
}

func TestEnergyAlert_KeepFiresWhileHeld(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addDevice(t, device.KindAC, "Bedroom", 1000)

	_, err := h.svc.CreateEnergyUsageAlert(ctx, user, "AC", device.KindAC, "Bedroom", 0.5, alert.GreaterThanOrEqual, "AC used a lot", alert.Options{KeepAfterTrigger: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := h.svc.SetDeviceState(ctx, user, device.NewKey(device.KindAC, "Bedroom"), device.StateOn); err != nil {
		t.Fatal(err)
	}

	h.clock.Advance(30 * time.Minute)
	h.tick(t)
	h.tick(t)

	alerts, _ := h.svc.ListAlerts(ctx, user)
	if len(alerts) != 1 {
		t.Fatalf("kept alert was removed")
	}
	if alerts[0].TriggerCount != 2 {
		t.Errorf("TriggerCount = %d, want 2", alerts[0].TriggerCount)
	}
	fired := h.notes.byKind(notify.KindAlert)
	if len(fired) != 2 || fired[0].Message != "AC used a lot" {
		t.Errorf("alert notifications = %+v, want two with the user message", fired)
	}
}

func TestEnergyAlert_ComparatorAliasesFire(t *testing.T) {
	for _, cmp := range []alert.Comparator{"gt", ">", "greater_than"} {
		t.Run(string(cmp), func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			h.addDevice(t, device.KindMicrowave, "Kitchen", 1200)

			a, err := h.svc.CreateEnergyUsageAlert(ctx, user, "Microwave", device.KindMicrowave, "Kitchen", 0.01, cmp, "", alert.Options{})
			if err != nil {
				t.Fatalf("CreateEnergyUsageAlert(%q) error = %v", cmp, err)
			}
			if a.Comparator != alert.GreaterThan {
				t.Errorf("stored comparator = %q, want %q", a.Comparator, alert.GreaterThan)
			}

			if _, _, err := h.svc.SetDeviceState(ctx, user, device.NewKey(device.KindMicrowave, "Kitchen"), device.StateOn); err != nil {
				t.Fatal(err)
			}
			// 1200 W for ten minutes is 0.2 kWh.
			h.clock.Advance(10 * time.Minute)
			h.tick(t)

			if alerts, _ := h.svc.ListAlerts(ctx, user); len(alerts) != 0 {
				t.Errorf("alerts after tick = %d, want 0", len(alerts))
			}
			if fired := h.notes.byKind(notify.KindAlert); len(fired) != 1 {
				t.Errorf("alert notifications = %d, want 1", len(fired))
			}
		})
	}
}

func TestTimeBasedAlert(t *testing.T) {
	tests := []struct {
		name       string
		opts       alert.Options
		wantAlerts int
		wantActive bool
		wantNext   time.Time
	}{
		{
			name:       "auto delete",
			opts:       alert.Options{},
			wantAlerts: 0,
		},
		{
			name:       "keep without repeat deactivates",
			opts:       alert.Options{KeepAfterTrigger: true},
			wantAlerts: 1,
			wantActive: false,
			wantNext:   t0.Add(10 * time.Minute),
		},
		{
			name:       "keep with repeat re-arms",
			opts:       alert.Options{KeepAfterTrigger: true, RepeatInterval: time.Hour},
			wantAlerts: 1,
			wantActive: true,
			wantNext:   t0.Add(70 * time.Minute),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			h.addDevice(t, device.KindWashingMachine, "Laundry", 500)

			_, err := h.svc.CreateTimeBasedAlert(ctx, user, "Laundry", device.KindWashingMachine, "Laundry", t0.Add(10*time.Minute), "", tt.opts)
			if err != nil {
				t.Fatalf("CreateTimeBasedAlert() error = %v", err)
			}

			h.clock.Advance(9 * time.Minute)
			h.tick(t)
			if n := h.notes.byKind(notify.KindAlert); len(n) != 0 {
				t.Fatalf("alert fired early")
			}

			h.clock.Advance(time.Minute)
			h.tick(t)
			h.tick(t)

			if n := h.notes.byKind(notify.KindAlert); len(n) != 1 {
				t.Errorf("alert notifications = %d, want exactly 1", len(n))
			}
			alerts, _ := h.svc.ListAlerts(ctx, user)
			if len(alerts) != tt.wantAlerts {
				t.Fatalf("alerts = %d, want %d", len(alerts), tt.wantAlerts)
			}
			if tt.wantAlerts == 0 {
				return
			}
			a := alerts[0]
			if a.TriggerCount != 1 {
				t.Errorf("TriggerCount = %d, want 1", a.TriggerCount)
			}
			if a.Active != tt.wantActive {
				t.Errorf("Active = %v, want %v", a.Active, tt.wantActive)
			}
			if a.TriggerAt == nil || !a.TriggerAt.Equal(tt.wantNext) {
				t.Errorf("TriggerAt = %v, want %v", a.TriggerAt, tt.wantNext)
			}
		})
	}
}

func TestCreateAlert_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addDevice(t, device.KindTV, "Den", 100)

	_, err := h.svc.CreateTimeBasedAlert(ctx, user, "Past", device.KindTV, "Den", t0.Add(-time.Minute), "", alert.Options{})
	if !errors.Is(err, alert.ErrTriggerInPast) || !IsValidation(err) {
		t.Errorf("past trigger error = %v, want ErrTriggerInPast", err)
	}
	_, err = h.svc.CreateEnergyUsageAlert(ctx, user, "Missing", device.KindTV, "Attic", 1, alert.GreaterThan, "", alert.Options{})
	if !IsNotFound(err) {
		t.Errorf("missing device error = %v, want not found", err)
	}
	_, err = h.svc.CreateEnergyUsageAlert(ctx, user, "Bad", device.KindTV, "Den", -1, alert.GreaterThan, "", alert.Options{})
	if !errors.Is(err, alert.ErrInvalidThreshold) {
		t.Errorf("negative threshold error = %v, want ErrInvalidThreshold", err)
	}
}

func TestToggleAndDeleteAlert(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addDevice(t, device.KindHeater, "Den", 2000)

	a, err := h.svc.CreateEnergyUsageAlert(ctx, user, "Heater", device.KindHeater, "Den", 0.01, alert.GreaterThan, "", alert.Options{})
	if err != nil {
		t.Fatal(err)
	}

	active, err := h.svc.ToggleAlert(ctx, user, a.ID)
	if err != nil || active {
		t.Fatalf("ToggleAlert() = %v, %v; want inactive", active, err)
	}

	// An inactive alert never fires.
	if _, _, err := h.svc.SetDeviceState(ctx, user, device.NewKey(device.KindHeater, "Den"), device.StateOn); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(time.Hour)
	h.tick(t)
	if n := h.notes.byKind(notify.KindAlert); len(n) != 0 {
		t.Errorf("inactive alert fired %d times", len(n))
	}

	if err := h.svc.DeleteAlert(ctx, user, a.ID); err != nil {
		t.Fatalf("DeleteAlert() error = %v", err)
	}
	if err := h.svc.DeleteAlert(ctx, user, a.ID); !errors.Is(err, alert.ErrAlertNotFound) {
		t.Errorf("second DeleteAlert() error = %v, want ErrAlertNotFound", err)
	}
	if _, err := h.svc.ToggleAlert(ctx, user, "nope"); !IsNotFound(err) {
		t.Errorf("ToggleAlert(unknown) error = %v, want not found", err)
	}
}
