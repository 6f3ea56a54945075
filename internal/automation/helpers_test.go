package automation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/hearth/internal/audit"
	"github.com/nerrad567/hearth/internal/device"
	"github.com/nerrad567/hearth/internal/household"
	"github.com/nerrad567/hearth/internal/notify"
	"github.com/nerrad567/hearth/internal/store"
)

var t0 = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

const user = "alice"

// ─── Mock Dependencies ──────────────────────────────────────────────────────

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// flakyGateway wraps the in-memory store and fails the next failSaves saves.
type flakyGateway struct {
	*store.MemoryGateway
	failSaves atomic.Int32
	panicUser string
}

func newFlakyGateway() *flakyGateway {
	return &flakyGateway{MemoryGateway: store.NewMemoryGateway()}
}

func (g *flakyGateway) Load(ctx context.Context, userID string) (*household.Household, error) {
	if userID == g.panicUser && userID != "" {
		panic("corrupt household")
	}
	return g.MemoryGateway.Load(ctx, userID)
}

func (g *flakyGateway) Save(ctx context.Context, h *household.Household) error {
	if g.failSaves.Load() > 0 {
		g.failSaves.Add(-1)
		return store.ErrPersistence
	}
	return g.MemoryGateway.Save(ctx, h)
}

type captureNotifier struct {
	mu    sync.Mutex
	notes []notify.Notification
	users []string
}

func (c *captureNotifier) Notify(userID string, n notify.Notification) {
	c.mu.Lock()
	c.notes = append(c.notes, n)
	c.users = append(c.users, userID)
	c.mu.Unlock()
}

func (c *captureNotifier) byKind(k notify.Kind) []notify.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []notify.Notification
	for _, n := range c.notes {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

type captureEnergy struct {
	mu       sync.Mutex
	sessions []float64 // kWh per session
	alerts   []string
}

func (c *captureEnergy) WriteSession(_ string, _ *device.Device, _, kwh float64, _ time.Time) {
	c.mu.Lock()
	c.sessions = append(c.sessions, kwh)
	c.mu.Unlock()
}

func (c *captureEnergy) WriteAlertFired(_, name string, _ device.Kind, _ string, _ float64, _ time.Time) {
	c.mu.Lock()
	c.alerts = append(c.alerts, name)
	c.mu.Unlock()
}

type captureState struct {
	mu     sync.Mutex
	states []device.State
}

func (c *captureState) PublishDeviceState(_ string, d *device.Device) {
	c.mu.Lock()
	c.states = append(c.states, d.State)
	c.mu.Unlock()
}

type memHistory struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *memHistory) Create(_ context.Context, e *audit.Entry) error {
	m.mu.Lock()
	m.entries = append(m.entries, *e)
	m.mu.Unlock()
	return nil
}

func (m *memHistory) List(_ context.Context, userID string, limit int) ([]audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []audit.Entry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].UserID == userID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *memHistory) actions(source string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.entries {
		if e.Source == source {
			out = append(out, e.Action)
		}
	}
	return out
}

type harness struct {
	svc     *Service
	clock   *fakeClock
	store   *flakyGateway
	notes   *captureNotifier
	energy  *captureEnergy
	state   *captureState
	history *memHistory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithConfig(t, DefaultConfig())
}

func newHarnessWithConfig(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		clock:   newFakeClock(t0),
		store:   newFlakyGateway(),
		notes:   &captureNotifier{},
		energy:  &captureEnergy{},
		state:   &captureState{},
		history: &memHistory{},
	}
	h.svc = New(cfg, Deps{
		Store:    h.store,
		Notifier: h.notes,
		Energy:   h.energy,
		State:    h.state,
		History:  h.history,
		Clock:    h.clock,
	})
	t.Cleanup(h.svc.Shutdown)
	return h
}

func (h *harness) addDevice(t *testing.T, kind device.Kind, room string, watts float64) {
	t.Helper()
	if _, err := h.svc.AddDevice(context.Background(), user, kind, room, watts); err != nil {
		t.Fatalf("AddDevice(%s, %s) error = %v", kind, room, err)
	}
}

func (h *harness) device(t *testing.T, kind device.Kind, room string) *device.Device {
	t.Helper()
	d, err := h.svc.GetDevice(context.Background(), user, device.NewKey(kind, room))
	if err != nil {
		t.Fatalf("GetDevice(%s, %s) error = %v", kind, room, err)
	}
	return d
}

func (h *harness) tick(t *testing.T) {
	t.Helper()
	if err := h.svc.ForceTick(context.Background()); err != nil {
		t.Fatalf("ForceTick() error = %v", err)
	}
}
