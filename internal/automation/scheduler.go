package automation

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/nerrad567/hearth/internal/alert"
	"github.com/nerrad567/hearth/internal/audit"
	"github.com/nerrad567/hearth/internal/calendar"
	"github.com/nerrad567/hearth/internal/device"
	"github.com/nerrad567/hearth/internal/household"
	"github.com/nerrad567/hearth/internal/notify"
)

// Start launches the periodic worker. It returns immediately; the worker
// stops when ctx is cancelled or Shutdown is called.
func (s *Service) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.closed {
		return ErrShutdown
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("automation scheduler started",
		"interval", s.cfg.Interval, "lead_time", s.cfg.LeadTime, "window", s.cfg.Window)
	return nil
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// ForceTick runs one evaluation pass synchronously. It waits for a
// periodic tick already in progress.
func (s *Service) ForceTick(ctx context.Context) error {
	done, err := s.begin()
	if err != nil {
		return err
	}
	defer done()

	s.tick(ctx)
	return nil
}

// Shutdown stops the worker and waits for the in-flight tick and any
// in-flight foreground mutation. Later mutating calls fail with
// ErrShutdown. It is safe to call more than once.
func (s *Service) Shutdown() {
	s.lifeMu.Lock()
	first := !s.closed
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.lifeMu.Unlock()

	s.wg.Wait()
	if first {
		s.logger.Info("automation scheduler stopped")
	}
}

// tick evaluates every known user once.
func (s *Service) tick(ctx context.Context) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	now := s.clock.Now()
	for _, userID := range s.knownUsers(ctx) {
		if ctx.Err() != nil {
			return
		}
		s.tickUser(ctx, userID, now)
	}
}

// knownUsers merges the store's users with those already resident.
func (s *Service) knownUsers(ctx context.Context) []string {
	seen := make(map[string]struct{})
	for _, id := range s.residentUsers() {
		seen[id] = struct{}{}
	}

	stored, err := s.store.ListUsers(ctx)
	if err != nil {
		s.logger.Warn("listing users failed, ticking resident users only", "error", err)
	}
	for _, id := range stored {
		seen[id] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// tickUser runs the due work for one user. Panics are contained here.
func (s *Service) tickUser(ctx context.Context, userID string, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("automation tick panic recovered",
				"user_id", userID, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()

	sl, err := s.acquire(ctx, userID)
	if err != nil {
		s.logger.Warn("loading household failed, skipping this tick", "user_id", userID, "error", err)
		return
	}

	fx := newEffects(userID, "")
	snap := func() *household.Household {
		sl.mu.Lock()
		defer sl.mu.Unlock()

		s.runDue(sl.h, now, fx)

		if fx.changed {
			sl.h.Touch(now)
			sl.dirty = true
		}
		if !sl.dirty {
			return nil
		}
		return sl.h.DeepCopy()
	}()

	if snap != nil {
		s.persist(ctx, sl, snap)
	}
	s.deliver(ctx, fx)
}

// runDue applies timers, then calendar actions, then alerts. The caller
// holds the household lock.
func (s *Service) runDue(h *household.Household, now time.Time, fx *effects) {
	s.fireTimers(h, now, fx)
	s.runCalendar(h, now, fx)
	s.evaluateAlerts(h, now, fx)
}

func (s *Service) fireTimers(h *household.Household, now time.Time, fx *effects) {
	devices := h.SortedDevices()
	fx.source = audit.SourceTimer
	for _, action := range []device.State{device.StateOn, device.StateOff} {
		for _, d := range devices {
			at := d.Timer(action)
			if at == nil || at.After(now) {
				continue
			}
			d.ClearTimer(action)
			d.UpdatedAt = now.UTC()
			fx.changed = true

			if fx.setState(d, action, now) {
				fx.notify(deviceNotification(notify.KindTimer, "Timer fired", d, now))
			}
			s.logger.Debug("timer fired", "user_id", h.UserID, "device", d.Key().String(), "action", action)
		}
	}
}

func (s *Service) runCalendar(h *household.Household, now time.Time, fx *effects) {
	fx.source = audit.SourceCalendar
	for _, e := range h.SortedEvents() {
		for _, due := range calendar.DueActions(e, now, s.cfg.Window, h.Ledger) {
			h.Ledger.MarkExecuted(due.EventID, due.Occurrence, due.Index)
			fx.changed = true

			d := h.Device(due.Action.Target())
			if d == nil {
				s.logger.Warn("calendar action skipped, device not found",
					"user_id", h.UserID, "event", e.Title, "index", due.Index,
					"device", due.Action.Target().String())
				continue
			}
			if fx.setState(d, due.Action.DesiredState, now) {
				n := deviceNotification(notify.KindCalendar, e.Title, d, now)
				n.EventID = e.ID
				fx.notify(n)
			}
		}
	}

	if pruned := h.Ledger.Prune(h.EventsByID(), now, s.cfg.Window); pruned > 0 {
		fx.changed = true
	}
}

func (s *Service) evaluateAlerts(h *household.Household, now time.Time, fx *effects) {
	fx.source = audit.SourceAlert
	for _, a := range h.SortedAlerts() {
		if !a.Active {
			continue
		}
		fired, observed := alert.Evaluate(a, h.Device(a.Target()), now)
		if !fired {
			continue
		}
		remove := a.Fire(now)
		fx.fired(a, observed, now)
		if remove {
			delete(h.Alerts, a.ID)
		}
		s.logger.Info("alert fired",
			"user_id", h.UserID, "alert_id", a.ID, "name", a.Name, "removed", remove)
	}
}
