package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/hearth/internal/alert"
	"github.com/nerrad567/hearth/internal/device"
	"github.com/nerrad567/hearth/internal/household"
)

// CreateTimeBasedAlert adds an alert that fires once now reaches at. The
// watched device must exist and at must be in the future.
func (s *Service) CreateTimeBasedAlert(ctx context.Context, userID, name string, kind device.Kind, room string, at time.Time, message string, opts alert.Options) (*alert.Alert, error) {
	return s.addAlert(ctx, userID, kind, room, func(now time.Time) (*alert.Alert, error) {
		return alert.NewTimeBased(name, kind, room, at, message, opts, now)
	})
}

// CreateEnergyUsageAlert adds an alert comparing the device's
// session-inclusive energy against thresholdKWh.
func (s *Service) CreateEnergyUsageAlert(ctx context.Context, userID, name string, kind device.Kind, room string, thresholdKWh float64, cmp alert.Comparator, message string, opts alert.Options) (*alert.Alert, error) {
	return s.addAlert(ctx, userID, kind, room, func(now time.Time) (*alert.Alert, error) {
		return alert.NewEnergyUsage(name, kind, room, thresholdKWh, cmp, message, opts, now)
	})
}

func (s *Service) addAlert(ctx context.Context, userID string, kind device.Kind, room string, build func(now time.Time) (*alert.Alert, error)) (*alert.Alert, error) {
	var out *alert.Alert
	err := s.mutate(ctx, userID, func(h *household.Household, now time.Time, fx *effects) error {
		a, err := build(now)
		if err != nil {
			return err
		}
		if _, err := lookupDevice(h, device.NewKey(kind, room)); err != nil {
			return err
		}
		a.Room = strings.Join(strings.Fields(a.Room), " ")
		h.Alerts[a.ID] = a
		fx.changed = true
		fx.record("ALERT_CREATE", a.DeviceKind, a.Room, a.Name, now)
		out = a.DeepCopy()
		return nil
	})
	return out, err
}

// ToggleAlert flips an alert between active and inactive and returns the
// new value.
func (s *Service) ToggleAlert(ctx context.Context, userID, alertID string) (bool, error) {
	var active bool
	err := s.mutate(ctx, userID, func(h *household.Household, now time.Time, fx *effects) error {
		a, ok := h.Alerts[alertID]
		if !ok {
			return fmt.Errorf("%w: %s", alert.ErrAlertNotFound, alertID)
		}
		a.Active = !a.Active
		active = a.Active
		fx.changed = true
		fx.record("ALERT_TOGGLE", a.DeviceKind, a.Room, fmt.Sprintf("%s active=%t", a.Name, a.Active), now)
		return nil
	})
	return active, err
}

// DeleteAlert removes an alert.
func (s *Service) DeleteAlert(ctx context.Context, userID, alertID string) error {
	return s.mutate(ctx, userID, func(h *household.Household, now time.Time, fx *effects) error {
		a, ok := h.Alerts[alertID]
		if !ok {
			return fmt.Errorf("%w: %s", alert.ErrAlertNotFound, alertID)
		}
		delete(h.Alerts, alertID)
		fx.changed = true
		fx.record("ALERT_DELETE", a.DeviceKind, a.Room, a.Name, now)
		return nil
	})
}

// ListAlerts returns copies of the user's alerts ordered by creation.
func (s *Service) ListAlerts(ctx context.Context, userID string) ([]*alert.Alert, error) {
	var out []*alert.Alert
	err := s.view(ctx, userID, func(h *household.Household, _ time.Time) error {
		for _, a := range h.SortedAlerts() {
			out = append(out, a.DeepCopy())
		}
		return nil
	})
	return out, err
}
