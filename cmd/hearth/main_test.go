package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/hearth/internal/audit"
	"github.com/nerrad567/hearth/internal/auth"
	"github.com/nerrad567/hearth/internal/automation"
	"github.com/nerrad567/hearth/internal/device"
	"github.com/nerrad567/hearth/internal/infrastructure/mqtt"
	"github.com/nerrad567/hearth/internal/store"
)

const testJWTSecret = "test-secret-key-at-least-32-characters-long"

func writeConfig(t *testing.T, dbPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
household:
  id: test-home
  timezone: UTC

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: 18089

security:
  jwt:
    secret: "` + testJWTSecret + `"

scheduler:
  interval: 50ms
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with a missing config file.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("HEARTH_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingSecret verifies configuration validation runs before startup.
func TestRun_MissingSecret(t *testing.T) {
	path := writeConfig(t, filepath.Join(t.TempDir(), "hearth.db"))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	stripped := strings.Replace(string(data), testJWTSecret, "short", 1)
	if err := os.WriteFile(path, []byte(stripped), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HEARTH_CONFIG", path)
	t.Setenv("HEARTH_JWT_SECRET", "")

	err = run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "jwt.secret") {
		t.Fatalf("run() error = %v, want jwt secret validation error", err)
	}
}

// TestRun_StartupAndShutdown runs the full stack without MQTT or InfluxDB
// and stops it by cancelling the context.
func TestRun_StartupAndShutdown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "hearth.db")
	t.Setenv("HEARTH_CONFIG", writeConfig(t, dbPath))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("HEARTH_CONFIG", "")
	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("HEARTH_CONFIG", expected)
	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// ─── MQTT command handler ───────────────────────────────────────────

type commandCall struct {
	method string
	userID string
	key    device.Key
	state  device.State
}

type fakeCommander struct {
	calls []commandCall
	err   error
}

func (f *fakeCommander) SetDeviceState(_ context.Context, userID string, key device.Key, state device.State) (*device.Device, bool, error) {
	f.calls = append(f.calls, commandCall{"set", userID, key, state})
	if f.err != nil {
		return nil, false, f.err
	}
	return &device.Device{Kind: key.Kind, Room: key.Room, State: state}, true, nil
}

func (f *fakeCommander) ToggleDevice(_ context.Context, userID string, key device.Key) (*device.Device, error) {
	f.calls = append(f.calls, commandCall{"toggle", userID, key, ""})
	if f.err != nil {
		return nil, f.err
	}
	return &device.Device{Kind: key.Kind, Room: key.Room, State: device.StateOn}, nil
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any) {}

func TestCommandHandler(t *testing.T) {
	topic := mqtt.Topics{}.Command("alice", device.KindTV, "Living Room")

	tests := []struct {
		name    string
		payload string
		method  string
		state   device.State
	}{
		{"on", "ON", "set", device.StateOn},
		{"off lowercase", " off\n", "set", device.StateOff},
		{"toggle", "toggle", "toggle", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCommander{}
			h := newCommandHandler(context.Background(), fc, nopLogger{})
			if err := h(topic, []byte(tt.payload)); err != nil {
				t.Fatalf("handler error = %v", err)
			}
			if len(fc.calls) != 1 {
				t.Fatalf("calls = %d, want 1", len(fc.calls))
			}
			c := fc.calls[0]
			if c.method != tt.method || c.userID != "alice" || c.state != tt.state {
				t.Errorf("call = %+v", c)
			}
			if c.key != device.NewKey(device.KindTV, "living room") {
				t.Errorf("key = %v", c.key)
			}
		})
	}
}

func TestCommandHandler_Errors(t *testing.T) {
	fc := &fakeCommander{}
	h := newCommandHandler(context.Background(), fc, nopLogger{})

	if err := h("hearth/command/alice/TOASTER/kitchen", []byte("ON")); !errors.Is(err, mqtt.ErrInvalidTopic) {
		t.Errorf("bad kind error = %v, want ErrInvalidTopic", err)
	}
	if err := h(mqtt.Topics{}.Command("alice", device.KindFan, "Study"), []byte("DIM")); !errors.Is(err, errUnknownCommand) {
		t.Errorf("bad payload error = %v, want errUnknownCommand", err)
	}
	if len(fc.calls) != 0 {
		t.Errorf("invalid commands reached the service: %+v", fc.calls)
	}

	fc.err = device.ErrDeviceNotFound
	if err := h(mqtt.Topics{}.Command("alice", device.KindFan, "Study"), []byte("ON")); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("service error = %v, want ErrDeviceNotFound", err)
	}
}

// TestCommandHandler_RecordsMQTTSource drives a real service and checks the
// history entry is attributed to MQTT.
func TestCommandHandler_RecordsMQTTSource(t *testing.T) {
	hist := &historyStub{}
	svc := automation.New(automation.DefaultConfig(), automation.Deps{
		Store:   store.NewMemoryGateway(),
		History: hist,
	})
	defer svc.Shutdown()

	ctx := context.Background()
	if _, err := svc.AddDevice(ctx, "alice", device.KindFan, "Study", 60); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	h := newCommandHandler(ctx, svc, nopLogger{})
	if err := h(mqtt.Topics{}.Command("alice", device.KindFan, "Study"), []byte("ON")); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	d, err := svc.GetDevice(ctx, "alice", device.NewKey(device.KindFan, "study"))
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if d.State != device.StateOn {
		t.Errorf("state = %s, want ON", d.State)
	}

	last := hist.entries[len(hist.entries)-1]
	if last.Source != audit.SourceMQTT {
		t.Errorf("source = %q, want %q", last.Source, audit.SourceMQTT)
	}
}

type historyStub struct {
	entries []audit.Entry
}

func (h *historyStub) Create(_ context.Context, e *audit.Entry) error {
	h.entries = append(h.entries, *e)
	return nil
}

func (h *historyStub) List(_ context.Context, _ string, _ int) ([]audit.Entry, error) {
	return h.entries, nil
}

// ─── token command ──────────────────────────────────────────────────

func TestRunToken(t *testing.T) {
	t.Setenv("HEARTH_CONFIG", writeConfig(t, filepath.Join(t.TempDir(), "hearth.db")))
	t.Setenv("HEARTH_JWT_SECRET", "")

	var out strings.Builder
	if err := runToken([]string{"-ttl", "1h", "alice"}, &out); err != nil {
		t.Fatalf("runToken() error = %v", err)
	}
	claims, err := auth.ParseToken(strings.TrimSpace(out.String()), testJWTSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID() != "alice" {
		t.Errorf("UserID() = %q, want alice", claims.UserID())
	}
}

func TestRunToken_Usage(t *testing.T) {
	var out strings.Builder
	if err := runToken(nil, &out); err == nil {
		t.Error("runToken() without a user should fail")
	}
}
