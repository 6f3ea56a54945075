package automation

import (
	"context"
	"time"

	"github.com/nerrad567/hearth/internal/audit"
	"github.com/nerrad567/hearth/internal/device"
	"github.com/nerrad567/hearth/internal/notify"
	"github.com/nerrad567/hearth/internal/store"
)

// Clock supplies the current time. Tests substitute a fake.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// EnergyRecorder exports closed sessions and alert firings.
// Implemented by *influxdb.Client.
type EnergyRecorder interface {
	WriteSession(userID string, d *device.Device, minutes, energyKWh float64, at time.Time)
	WriteAlertFired(userID, alertName string, kind device.Kind, room string, observedKWh float64, at time.Time)
}

// StatePublisher announces device state after every change.
type StatePublisher interface {
	PublishDeviceState(userID string, d *device.Device)
}

// StatePublishers fans a state change out to several publishers.
type StatePublishers []StatePublisher

// PublishDeviceState implements StatePublisher.
func (ps StatePublishers) PublishDeviceState(userID string, d *device.Device) {
	for _, p := range ps {
		p.PublishDeviceState(userID, d)
	}
}

// HistoryRecorder stores automation history. Implemented by
// *audit.SQLiteRepository.
type HistoryRecorder interface {
	Create(ctx context.Context, e *audit.Entry) error
	List(ctx context.Context, userID string, limit int) ([]audit.Entry, error)
}

// Deps are the collaborators of a Service. Only Store is required.
type Deps struct {
	Store    store.Gateway
	Notifier notify.Sink
	Energy   EnergyRecorder
	State    StatePublisher
	History  HistoryRecorder
	Clock    Clock
	Logger   Logger
}

// Config tunes the scheduler.
type Config struct {
	// Interval between ticks.
	Interval time.Duration
	// LeadTime is the minimum distance between now and a new timer.
	LeadTime time.Duration
	// Window is the tolerance either side of a calendar action's due instant.
	Window time.Duration
	// PersistTimeout bounds each store save.
	PersistTimeout time.Duration
}

// Scheduler defaults.
const (
	DefaultInterval       = 10 * time.Second
	DefaultLeadTime       = time.Minute
	DefaultWindow         = time.Minute
	DefaultPersistTimeout = 5 * time.Second
)

// DefaultConfig returns the scheduler defaults.
func DefaultConfig() Config {
	return Config{
		Interval:       DefaultInterval,
		LeadTime:       DefaultLeadTime,
		Window:         DefaultWindow,
		PersistTimeout: DefaultPersistTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.LeadTime < 0 {
		c.LeadTime = 0
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = DefaultPersistTimeout
	}
	return c
}
