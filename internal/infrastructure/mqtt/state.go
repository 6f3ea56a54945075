package mqtt

import (
	"time"

	"github.com/nerrad567/hearth/internal/device"
)

// DeviceStatePayload is the retained message on a device state topic.
type DeviceStatePayload struct {
	UserID           string       `json:"user_id"`
	Kind             device.Kind  `json:"kind"`
	Room             string       `json:"room"`
	State            device.State `json:"state"`
	PowerRatingWatts float64      `json:"power_rating_watts"`
	UsageMinutes     float64      `json:"usage_minutes"`
	EnergyKWh        float64      `json:"energy_kwh"`
	Timestamp        string       `json:"timestamp"`
}

// NewDeviceStatePayload builds the state message for d.
func NewDeviceStatePayload(userID string, d *device.Device) DeviceStatePayload {
	return DeviceStatePayload{
		UserID:           userID,
		Kind:             d.Kind,
		Room:             d.Room,
		State:            d.State,
		PowerRatingWatts: d.PowerRatingWatts,
		UsageMinutes:     d.UsageMinutes,
		EnergyKWh:        d.EnergyKWh,
		Timestamp:        d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// PublishDeviceState publishes d as a retained message so late subscribers
// see the current state. Failures are logged, never returned: state is
// republished on the next change.
func (c *Client) PublishDeviceState(userID string, d *device.Device) {
	topic := Topics{}.DeviceState(userID, d.Kind, d.Room)
	if err := c.PublishJSON(topic, NewDeviceStatePayload(userID, d), true); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("publishing device state failed", "topic", topic, "error", err)
		}
	}
}
