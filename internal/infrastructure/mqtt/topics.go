package mqtt

import (
	"fmt"
	"strings"

	"github.com/nerrad567/hearth/internal/device"
)

// TopicPrefix is the root of every hearth topic.
const TopicPrefix = "hearth"

// Topics provides builders for hearth MQTT topics.
//
//	mqtt.Topics{}.DeviceState("alice", device.KindTV, "Living Room")
//	// "hearth/state/alice/TV/living_room"
type Topics struct{}

// Notify returns the topic carrying a user's notifications.
func (Topics) Notify(userID string) string {
	return fmt.Sprintf("%s/notify/%s", TopicPrefix, userID)
}

// DeviceState returns the retained state topic for one device.
func (Topics) DeviceState(userID string, kind device.Kind, room string) string {
	return fmt.Sprintf("%s/state/%s/%s/%s", TopicPrefix, userID, kind, RoomSegment(room))
}

// Command returns the inbound command topic for one device.
func (Topics) Command(userID string, kind device.Kind, room string) string {
	return fmt.Sprintf("%s/command/%s/%s/%s", TopicPrefix, userID, kind, RoomSegment(room))
}

// AllCommands matches every device command topic.
func (Topics) AllCommands() string {
	return TopicPrefix + "/command/+/+/+"
}

// SystemStatus returns the retained online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

var roomSegmentReplacer = strings.NewReplacer(" ", "_", "/", "_", "+", "_", "#", "_")

// RoomSegment encodes a room name as one topic level.
func RoomSegment(room string) string {
	return roomSegmentReplacer.Replace(device.NormalizeRoom(room))
}

// ParseCommandTopic splits hearth/command/{user}/{kind}/{room}. The room
// comes back with underscores turned into spaces and can be passed to
// device.NewKey directly.
func ParseCommandTopic(topic string) (userID string, kind device.Kind, room string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != TopicPrefix || parts[1] != "command" {
		return "", "", "", fmt.Errorf("%w: %q is not a command topic", ErrInvalidTopic, topic)
	}
	if parts[2] == "" || parts[3] == "" || parts[4] == "" {
		return "", "", "", fmt.Errorf("%w: %q has an empty level", ErrInvalidTopic, topic)
	}
	kind, err = device.ParseKind(parts[3])
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %w", ErrInvalidTopic, err)
	}
	return parts[2], kind, strings.ReplaceAll(parts[4], "_", " "), nil
}
