package automation

import (
	"context"
	"sort"
	"time"

	"github.com/nerrad567/hearth/internal/audit"
	"github.com/nerrad567/hearth/internal/device"
	"github.com/nerrad567/hearth/internal/household"
)

// DeviceUsage is one live device's session-inclusive totals.
type DeviceUsage struct {
	DeviceKind       device.Kind  `json:"device_kind"`
	Room             string       `json:"room"`
	State            device.State `json:"state"`
	PowerRatingWatts float64      `json:"power_rating_watts"`
	UsageMinutes     float64      `json:"usage_minutes"`
	EnergyKWh        float64      `json:"energy_kwh"`
}

// MonthlyDeleted sums deleted devices by deletion month.
type MonthlyDeleted struct {
	Month        string  `json:"month"`
	Devices      int     `json:"devices"`
	UsageMinutes float64 `json:"usage_minutes"`
	EnergyKWh    float64 `json:"energy_kwh"`
}

// EnergyReport summarises a household's consumption at GeneratedAt.
type EnergyReport struct {
	GeneratedAt       time.Time        `json:"generated_at"`
	Devices           []DeviceUsage    `json:"devices"`
	TotalUsageMinutes float64          `json:"total_usage_minutes"`
	TotalEnergyKWh    float64          `json:"total_energy_kwh"`
	Deleted           []MonthlyDeleted `json:"deleted"`
	DeletedEnergyKWh  float64          `json:"deleted_energy_kwh"`
}

// EnergyReport computes per-device totals including running sessions.
// Nothing is mutated.
func (s *Service) EnergyReport(ctx context.Context, userID string) (*EnergyReport, error) {
	var r *EnergyReport
	err := s.view(ctx, userID, func(h *household.Household, now time.Time) error {
		r = buildReport(h, now)
		return nil
	})
	return r, err
}

func buildReport(h *household.Household, now time.Time) *EnergyReport {
	r := &EnergyReport{GeneratedAt: now.UTC(), Devices: []DeviceUsage{}, Deleted: []MonthlyDeleted{}}

	for _, d := range h.SortedDevices() {
		u := DeviceUsage{
			DeviceKind:       d.Kind,
			Room:             d.Room,
			State:            d.State,
			PowerRatingWatts: d.PowerRatingWatts,
			UsageMinutes:     device.CurrentUsageMinutes(d, now),
			EnergyKWh:        device.CurrentEnergyKWh(d, now),
		}
		r.Devices = append(r.Devices, u)
		r.TotalUsageMinutes += u.UsageMinutes
		r.TotalEnergyKWh += u.EnergyKWh
	}

	byMonth := make(map[string]*MonthlyDeleted)
	for _, rec := range h.DeletedDevices {
		m, ok := byMonth[rec.DeletionMonth]
		if !ok {
			m = &MonthlyDeleted{Month: rec.DeletionMonth}
			byMonth[rec.DeletionMonth] = m
		}
		m.Devices++
		m.UsageMinutes += rec.UsageMinutes
		m.EnergyKWh += rec.EnergyKWh
		r.DeletedEnergyKWh += rec.EnergyKWh
	}
	for _, m := range byMonth {
		r.Deleted = append(r.Deleted, *m)
	}
	sort.Slice(r.Deleted, func(i, j int) bool { return r.Deleted[i].Month < r.Deleted[j].Month })

	return r
}

// History returns the user's most recent automation history, newest
// first. Without a history recorder it returns an empty list.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]audit.Entry, error) {
	if s.deps.History == nil {
		return []audit.Entry{}, nil
	}
	return s.deps.History.List(ctx, userID, limit)
}

func sortTimers(ts []Timer) {
	sort.SliceStable(ts, func(i, j int) bool {
		return ts[i].At.Before(ts[j].At)
	})
}
