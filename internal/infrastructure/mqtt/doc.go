// Package mqtt connects hearth to an MQTT broker.
//
// The broker is an optional side channel. When enabled, hearth:
//   - publishes user notifications to hearth/notify/{user}
//   - publishes retained device state to hearth/state/{user}/{kind}/{room}
//   - accepts device commands on hearth/command/{user}/{kind}/{room}
//   - announces its own status on hearth/system/status (with LWT)
//
// Room names travel in topics as a single segment: normalised, with
// spaces and MQTT-reserved characters replaced by underscores. See
// RoomSegment and ParseCommandTopic.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        user, kind, room, err := mqtt.ParseCommandTopic(topic)
//	        ...
//	    })
//
// Reconnection uses paho's auto-reconnect; subscriptions are restored on
// every reconnect.
package mqtt
