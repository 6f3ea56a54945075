package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/hearth/internal/device"
)

// Measurement names.
const (
	MeasurementEnergy = "energy"
	MeasurementAlerts = "alerts"
)

// WriteSession records one closed device session. Sessions of zero
// length are skipped.
func (c *Client) WriteSession(userID string, d *device.Device, minutes, energyKWh float64, at time.Time) {
	if !c.IsConnected() || minutes <= 0 {
		return
	}
	c.writeAPI.WritePoint(sessionPoint(userID, d, minutes, energyKWh, at))
}

// WriteAlertFired records one alert firing.
func (c *Client) WriteAlertFired(userID, alertName string, kind device.Kind, room string, observedKWh float64, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(alertPoint(userID, alertName, kind, room, observedKWh, at))
}

func sessionPoint(userID string, d *device.Device, minutes, energyKWh float64, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementEnergy,
		map[string]string{
			"user_id": userID,
			"kind":    string(d.Kind),
			"room":    device.NormalizeRoom(d.Room),
		},
		map[string]interface{}{
			"power_watts":      d.PowerRatingWatts,
			"session_minutes":  minutes,
			"session_kwh":      energyKWh,
			"total_energy_kwh": d.EnergyKWh,
		},
		at,
	)
}

func alertPoint(userID, alertName string, kind device.Kind, room string, observedKWh float64, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementAlerts,
		map[string]string{
			"user_id": userID,
			"kind":    string(kind),
			"room":    device.NormalizeRoom(room),
		},
		map[string]interface{}{
			"name":         alertName,
			"observed_kwh": observedKWh,
		},
		at,
	)
}
