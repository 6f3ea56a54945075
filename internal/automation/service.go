package automation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nerrad567/hearth/internal/audit"
	"github.com/nerrad567/hearth/internal/household"
	"github.com/nerrad567/hearth/internal/store"
)

type sourceKey struct{}

// WithSource tags foreground calls made with ctx so their history entries
// name where the command came from (audit.SourceUser by default).
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceFrom(ctx context.Context) string {
	if v, ok := ctx.Value(sourceKey{}).(string); ok && v != "" {
		return v
	}
	return audit.SourceUser
}

// slot holds one resident household.
type slot struct {
	mu    sync.Mutex
	h     *household.Household
	dirty bool // in-memory state newer than the last successful save

	saveMu       sync.Mutex
	savedVersion int64
}

// Service is the automation engine and the foreground command surface.
// All methods are safe for concurrent use.
type Service struct {
	cfg    Config
	store  store.Gateway
	deps   Deps
	clock  Clock
	logger Logger

	slotsMu sync.Mutex
	slots   map[string]*slot
	loads   singleflight.Group

	// tickMu serialises periodic and forced ticks.
	tickMu sync.Mutex

	lifeMu  sync.Mutex
	closed  bool
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Service. The scheduler does not run until Start.
func New(cfg Config, deps Deps) *Service {
	if deps.Clock == nil {
		deps.Clock = systemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	return &Service{
		cfg:    cfg.withDefaults(),
		store:  deps.Store,
		deps:   deps,
		clock:  deps.Clock,
		logger: deps.Logger,
		slots:  make(map[string]*slot),
	}
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// begin registers an in-flight operation so Shutdown can wait for it.
// The returned func must be called when the operation finishes.
func (s *Service) begin() (func(), error) {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.closed {
		return nil, ErrShutdown
	}
	s.wg.Add(1)
	return s.wg.Done, nil
}

// acquire returns the resident slot for userID, loading it first if
// needed. An unknown user gets an empty household.
func (s *Service) acquire(ctx context.Context, userID string) (*slot, error) {
	s.slotsMu.Lock()
	sl, ok := s.slots[userID]
	s.slotsMu.Unlock()
	if ok {
		return sl, nil
	}

	v, err, _ := s.loads.Do(userID, func() (any, error) {
		s.slotsMu.Lock()
		existing, ok := s.slots[userID]
		s.slotsMu.Unlock()
		if ok {
			return existing, nil
		}

		h, err := s.store.Load(ctx, userID)
		var saved int64
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			h = household.New(userID)
		case err != nil:
			return nil, err
		default:
			saved = h.Version
		}

		s.slotsMu.Lock()
		defer s.slotsMu.Unlock()
		if existing, ok := s.slots[userID]; ok {
			return existing, nil
		}
		sl := &slot{h: h, savedVersion: saved}
		s.slots[userID] = sl
		s.logger.Debug("household loaded", "user_id", userID, "version", h.Version)
		return sl, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*slot), nil //nolint:forcetypeassert // singleflight only returns *slot
}

// residentUsers lists users with a loaded household.
func (s *Service) residentUsers() []string {
	s.slotsMu.Lock()
	defer s.slotsMu.Unlock()
	out := make([]string, 0, len(s.slots))
	for id := range s.slots {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// mutate runs fn on userID's household under its lock. If fn reports a
// change, the household version is bumped, a snapshot is saved after the
// lock is released, and the collected effects are delivered.
func (s *Service) mutate(ctx context.Context, userID string, fn func(h *household.Household, now time.Time, fx *effects) error) error {
	done, err := s.begin()
	if err != nil {
		return err
	}
	defer done()

	sl, err := s.acquire(ctx, userID)
	if err != nil {
		return err
	}

	fx := newEffects(userID, sourceFrom(ctx))
	now := s.clock.Now()

	snap, err := func() (*household.Household, error) {
		sl.mu.Lock()
		defer sl.mu.Unlock()
		if err := fn(sl.h, now, fx); err != nil {
			return nil, err
		}
		if !fx.changed {
			return nil, nil
		}
		sl.h.Touch(now)
		sl.dirty = true
		return sl.h.DeepCopy(), nil
	}()
	if err != nil {
		return err
	}

	if snap != nil {
		s.persist(ctx, sl, snap)
	}
	s.deliver(ctx, fx)
	return nil
}

// view runs fn on userID's household under its lock without marking it
// changed. fn must copy anything it returns.
func (s *Service) view(ctx context.Context, userID string, fn func(h *household.Household, now time.Time) error) error {
	sl, err := s.acquire(ctx, userID)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return fn(sl.h, now)
}

// persist saves snap unless a newer version has already been saved.
// Failures leave the slot dirty for the next tick.
func (s *Service) persist(ctx context.Context, sl *slot, snap *household.Household) {
	sl.saveMu.Lock()
	defer sl.saveMu.Unlock()

	if snap.Version < sl.savedVersion {
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PersistTimeout)
	defer cancel()

	err := s.store.Save(saveCtx, snap)
	switch {
	case errors.Is(err, store.ErrStaleVersion):
		s.logger.Debug("dropping stale household snapshot", "user_id", snap.UserID, "version", snap.Version)
		return
	case err != nil:
		s.logger.Warn("saving household failed, will retry next tick",
			"user_id", snap.UserID, "version", snap.Version, "error", err)
		return
	}

	sl.savedVersion = snap.Version
	sl.mu.Lock()
	if sl.h.Version == snap.Version {
		sl.dirty = false
	}
	sl.mu.Unlock()
}

// deliver hands effects to the optional collaborators. It runs outside
// every household lock.
func (s *Service) deliver(ctx context.Context, fx *effects) {
	if n := s.deps.Notifier; n != nil {
		for _, note := range fx.notifications {
			n.Notify(fx.userID, note)
		}
	}
	if e := s.deps.Energy; e != nil {
		for _, ses := range fx.sessions {
			e.WriteSession(fx.userID, ses.device, ses.minutes, ses.kwh, ses.at)
		}
		for _, f := range fx.firings {
			e.WriteAlertFired(fx.userID, f.alert.Name, f.alert.DeviceKind, f.alert.Room, f.observed, f.at)
		}
	}
	if p := s.deps.State; p != nil {
		for _, d := range fx.states {
			p.PublishDeviceState(fx.userID, d)
		}
	}
	if hr := s.deps.History; hr != nil && len(fx.history) > 0 {
		histCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PersistTimeout)
		defer cancel()
		for i := range fx.history {
			if err := hr.Create(histCtx, &fx.history[i]); err != nil {
				s.logger.Warn("recording automation history failed", "user_id", fx.userID, "error", err)
			}
		}
	}
}
