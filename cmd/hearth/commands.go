package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/hearth/internal/audit"
	"github.com/nerrad567/hearth/internal/automation"
	"github.com/nerrad567/hearth/internal/device"
	"github.com/nerrad567/hearth/internal/infrastructure/mqtt"
)

// commandTimeout bounds one MQTT-originated device command.
const commandTimeout = 5 * time.Second

// errUnknownCommand is returned for a payload other than ON, OFF or TOGGLE.
var errUnknownCommand = errors.New("unknown device command")

// deviceCommander is the part of the automation service that MQTT
// commands drive.
type deviceCommander interface {
	SetDeviceState(ctx context.Context, userID string, key device.Key, state device.State) (*device.Device, bool, error)
	ToggleDevice(ctx context.Context, userID string, key device.Key) (*device.Device, error)
}

type commandLogger interface {
	Info(msg string, args ...any)
}

// newCommandHandler returns the handler for hearth/command/{user}/{kind}/{room}.
// The payload is ON, OFF or TOGGLE in any case.
func newCommandHandler(ctx context.Context, svc deviceCommander, log commandLogger) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		userID, kind, room, err := mqtt.ParseCommandTopic(topic)
		if err != nil {
			return err
		}
		key := device.NewKey(kind, room)

		cmdCtx, cancel := context.WithTimeout(automation.WithSource(ctx, audit.SourceMQTT), commandTimeout)
		defer cancel()

		command := strings.ToUpper(strings.TrimSpace(string(payload)))
		switch command {
		case "TOGGLE":
			d, err := svc.ToggleDevice(cmdCtx, userID, key)
			if err != nil {
				return fmt.Errorf("toggling %s for %s: %w", key, userID, err)
			}
			log.Info("device toggled via MQTT", "user_id", userID, "device", key.String(), "state", d.State)
		case string(device.StateOn), string(device.StateOff):
			_, changed, err := svc.SetDeviceState(cmdCtx, userID, key, device.State(command))
			if err != nil {
				return fmt.Errorf("switching %s for %s: %w", key, userID, err)
			}
			log.Info("device switched via MQTT", "user_id", userID, "device", key.String(), "state", command, "changed", changed)
		default:
			return fmt.Errorf("%w: %q", errUnknownCommand, command)
		}
		return nil
	}
}
