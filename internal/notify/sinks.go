package notify

import "github.com/nerrad567/hearth/internal/infrastructure/mqtt"

// HubChannel is the WebSocket channel notifications are broadcast on.
const HubChannel = "notification"

// LogSink writes every notification to the structured log.
type LogSink struct {
	logger Logger
}

// NewLogSink creates a sink that logs at info level.
func NewLogSink(logger Logger) *LogSink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LogSink{logger: logger}
}

// Notify implements Sink.
func (s *LogSink) Notify(userID string, n Notification) {
	s.logger.Info("notification",
		"user_id", userID,
		"kind", n.Kind,
		"title", n.Title,
		"message", n.Message,
	)
}

// JSONPublisher is the part of the MQTT client the MQTT sink needs.
type JSONPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// MQTTSink publishes notifications to hearth/notify/{user}.
type MQTTSink struct {
	pub    JSONPublisher
	logger Logger
}

// NewMQTTSink creates a sink publishing through pub.
func NewMQTTSink(pub JSONPublisher, logger Logger) *MQTTSink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTSink{pub: pub, logger: logger}
}

// Notify implements Sink. Publish failures are logged.
func (s *MQTTSink) Notify(userID string, n Notification) {
	if err := s.pub.PublishJSON(mqtt.Topics{}.Notify(userID), n, false); err != nil {
		s.logger.Warn("publishing notification failed", "user_id", userID, "error", err)
	}
}

// UserBroadcaster sends a WebSocket event to one user's connections.
type UserBroadcaster interface {
	BroadcastToUser(userID, channel string, payload any)
}

// HubSink forwards notifications to a user's live WebSocket sessions.
type HubSink struct {
	hub UserBroadcaster
}

// NewHubSink creates a sink broadcasting on HubChannel.
func NewHubSink(hub UserBroadcaster) *HubSink {
	return &HubSink{hub: hub}
}

// Notify implements Sink.
func (s *HubSink) Notify(userID string, n Notification) {
	s.hub.BroadcastToUser(userID, HubChannel, n)
}
