package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validJWTSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
household:
  id: "flat-7"
  timezone: "Europe/London"
database:
  path: "/tmp/hearth.db"
mqtt:
  broker:
    host: "broker.local"
  qos: 1
scheduler:
  interval: "5s"
  lead_time: "2m"
  automation_window: "30s"
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Household.ID != "flat-7" {
		t.Errorf("Household.ID = %q, want %q", cfg.Household.ID, "flat-7")
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if cfg.Scheduler.Interval != 5*time.Second {
		t.Errorf("Scheduler.Interval = %v, want 5s", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.LeadTime != 2*time.Minute {
		t.Errorf("Scheduler.LeadTime = %v, want 2m", cfg.Scheduler.LeadTime)
	}
	if cfg.Scheduler.AutomationWindow != 30*time.Second {
		t.Errorf("Scheduler.AutomationWindow = %v, want 30s", cfg.Scheduler.AutomationWindow)
	}
	// Untouched keys keep their defaults.
	if cfg.Scheduler.NotifyBuffer != 256 {
		t.Errorf("Scheduler.NotifyBuffer = %d, want 256", cfg.Scheduler.NotifyBuffer)
	}
	if cfg.Location().String() != "Europe/London" {
		t.Errorf("Location() = %v, want Europe/London", cfg.Location())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
household:
  id: "flat-7"
`)
	t.Setenv("HEARTH_JWT_SECRET", validJWTSecret)
	t.Setenv("HEARTH_DATABASE_PATH", "/var/lib/hearth/env.db")
	t.Setenv("HEARTH_SCHEDULER_INTERVAL", "1s")
	t.Setenv("HEARTH_API_PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/var/lib/hearth/env.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.Scheduler.Interval != time.Second {
		t.Errorf("Scheduler.Interval = %v, want 1s", cfg.Scheduler.Interval)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
}

func TestLoad_BadEnvInterval(t *testing.T) {
	path := writeConfig(t, "household:\n  id: x\n")
	t.Setenv("HEARTH_JWT_SECRET", validJWTSecret)
	t.Setenv("HEARTH_SCHEDULER_INTERVAL", "soon")

	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for unparsable interval, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Security.JWT.Secret = validJWTSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing household ID", mutate: func(c *Config) { c.Household.ID = "" }, wantErr: "household.id"},
		{name: "unknown timezone", mutate: func(c *Config) { c.Household.Timezone = "Mars/Olympus" }, wantErr: "household.timezone"},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: "database.path"},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: "mqtt.qos"},
		{name: "invalid port", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: "api.port"},
		{name: "influx without url", mutate: func(c *Config) { c.InfluxDB.Enabled = true }, wantErr: "influxdb.url"},
		{name: "missing jwt secret", mutate: func(c *Config) { c.Security.JWT.Secret = "" }, wantErr: "security.jwt.secret is required"},
		{name: "short jwt secret", mutate: func(c *Config) { c.Security.JWT.Secret = "short" }, wantErr: "at least 32"},
		{name: "zero interval", mutate: func(c *Config) { c.Scheduler.Interval = 0 }, wantErr: "scheduler.interval"},
		{name: "negative lead time", mutate: func(c *Config) { c.Scheduler.LeadTime = -time.Second }, wantErr: "scheduler.lead_time"},
		{name: "zero window", mutate: func(c *Config) { c.Scheduler.AutomationWindow = 0 }, wantErr: "scheduler.automation_window"},
		{name: "zero notify buffer", mutate: func(c *Config) { c.Scheduler.NotifyBuffer = 0 }, wantErr: "scheduler.notify_buffer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Timeouts(t *testing.T) {
	cfg := Default()
	if cfg.GetReadTimeout() != 30*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 30s", cfg.GetReadTimeout())
	}
	if cfg.GetWriteTimeout() != 30*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want 30s", cfg.GetWriteTimeout())
	}
	if cfg.GetIdleTimeout() != 60*time.Second {
		t.Errorf("GetIdleTimeout() = %v, want 60s", cfg.GetIdleTimeout())
	}
}
