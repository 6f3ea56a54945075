package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/hearth/internal/calendar"
	"github.com/nerrad567/hearth/internal/device"
	"github.com/nerrad567/hearth/internal/household"
)

// EventInput describes a new calendar event.
type EventInput struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Type        calendar.EventType
	Recurrence  calendar.Recurrence
}

// EventUpdate holds the editable fields of an event. Nil fields are left
// unchanged.
type EventUpdate struct {
	Title       *string
	Description *string
	Start       *time.Time
	End         *time.Time
	Type        *calendar.EventType
	Recurrence  *calendar.Recurrence
}

func lookupEvent(h *household.Household, title string) (*calendar.Event, error) {
	e := h.Event(title)
	if e == nil {
		return nil, fmt.Errorf("%w: %q", calendar.ErrEventNotFound, strings.TrimSpace(title))
	}
	return e, nil
}

// CreateCalendarEvent adds an event. Titles are unique per user,
// ignoring case.
func (s *Service) CreateCalendarEvent(ctx context.Context, userID string, in EventInput) (*calendar.Event, error) {
	var out *calendar.Event
	err := s.mutate(ctx, userID, func(h *household.Household, now time.Time, fx *effects) error {
		e, err := calendar.NewEvent(in.Title, in.Description, in.Start, in.End, in.Type, in.Recurrence, now)
		if err != nil {
			return err
		}
		if h.Event(e.Title) != nil {
			return fmt.Errorf("%w: %q", calendar.ErrEventExists, e.Title)
		}
		h.Events[calendar.TitleKey(e.Title)] = e
		fx.changed = true
		fx.record("EVENT_CREATE", "", "", e.Title, now)
		out = e.DeepCopy()
		return nil
	})
	return out, err
}

// EditCalendarEvent updates the event with the given title. Execution
// markers of the event are cleared so the new schedule starts fresh.
func (s *Service) EditCalendarEvent(ctx context.Context, userID, title string, upd EventUpdate) (*calendar.Event, error) {
	var out *calendar.Event
	err := s.mutate(ctx, userID, func(h *household.Household, now time.Time, fx *effects) error {
		cur, err := lookupEvent(h, title)
		if err != nil {
			return err
		}

		next := cur.DeepCopy()
		if upd.Title != nil {
			next.Title = strings.TrimSpace(*upd.Title)
		}
		if upd.Description != nil {
			next.Description = strings.TrimSpace(*upd.Description)
		}
		if upd.Start != nil {
			next.Start = upd.Start.UTC()
		}
		if upd.End != nil {
			next.End = upd.End.UTC()
		}
		if upd.Type != nil {
			next.Type = calendar.EventType(strings.ToUpper(string(*upd.Type)))
		}
		if upd.Recurrence != nil {
			next.Recurrence = calendar.Recurrence(strings.ToUpper(string(*upd.Recurrence)))
		}
		if err := calendar.ValidateEvent(next); err != nil {
			return err
		}

		oldKey, newKey := calendar.TitleKey(cur.Title), calendar.TitleKey(next.Title)
		if newKey != oldKey && h.Events[newKey] != nil {
			return fmt.Errorf("%w: %q", calendar.ErrEventExists, next.Title)
		}

		next.UpdatedAt = now.UTC()
		delete(h.Events, oldKey)
		h.Events[newKey] = next
		h.Ledger.ClearEvent(next.ID)

		fx.changed = true
		fx.record("EVENT_EDIT", "", "", next.Title, now)
		out = next.DeepCopy()
		return nil
	})
	return out, err
}

// DeleteCalendarEvent removes an event and its execution markers.
func (s *Service) DeleteCalendarEvent(ctx context.Context, userID, title string) error {
	return s.mutate(ctx, userID, func(h *household.Household, now time.Time, fx *effects) error {
		e, err := lookupEvent(h, title)
		if err != nil {
			return err
		}
		delete(h.Events, calendar.TitleKey(e.Title))
		h.Ledger.ClearEvent(e.ID)
		fx.changed = true
		fx.record("EVENT_DELETE", "", "", e.Title, now)
		return nil
	})
}

// ListCalendarEvents returns copies of the user's events ordered by start.
func (s *Service) ListCalendarEvents(ctx context.Context, userID string) ([]*calendar.Event, error) {
	var out []*calendar.Event
	err := s.view(ctx, userID, func(h *household.Household, _ time.Time) error {
		for _, e := range h.SortedEvents() {
			out = append(out, e.DeepCopy())
		}
		return nil
	})
	return out, err
}

// AddEventAutomation appends a device action to an event. Markers are
// kept: existing action indices do not move.
func (s *Service) AddEventAutomation(ctx context.Context, userID, title string, action calendar.Action) (*calendar.Event, error) {
	var out *calendar.Event
	err := s.mutate(ctx, userID, func(h *household.Household, now time.Time, fx *effects) error {
		e, err := lookupEvent(h, title)
		if err != nil {
			return err
		}
		action.Room = strings.Join(strings.Fields(action.Room), " ")
		action.DesiredState = normalizeState(action.DesiredState)
		if err := calendar.ValidateAction(action); err != nil {
			return err
		}
		if err := calendar.CanAddAction(e); err != nil {
			return err
		}
		e.Actions = append(e.Actions, action)
		e.UpdatedAt = now.UTC()

		fx.changed = true
		fx.record("EVENT_AUTOMATION_ADD", action.DeviceKind, action.Room, e.Title, now)
		out = e.DeepCopy()
		return nil
	})
	return out, err
}

// RemoveEventAutomation deletes the action at index. Indices after it
// shift down, so the event's markers are cleared.
func (s *Service) RemoveEventAutomation(ctx context.Context, userID, title string, index int) (*calendar.Event, error) {
	var out *calendar.Event
	err := s.mutate(ctx, userID, func(h *household.Household, now time.Time, fx *effects) error {
		e, err := lookupEvent(h, title)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(e.Actions) {
			return fmt.Errorf("%w: index %d of %d", calendar.ErrActionNotFound, index, len(e.Actions))
		}
		removed := e.Actions[index]
		e.Actions = append(e.Actions[:index:index], e.Actions[index+1:]...)
		e.UpdatedAt = now.UTC()
		h.Ledger.ClearEvent(e.ID)

		fx.changed = true
		fx.record("EVENT_AUTOMATION_REMOVE", removed.DeviceKind, removed.Room, e.Title, now)
		out = e.DeepCopy()
		return nil
	})
	return out, err
}

func normalizeState(st device.State) device.State {
	return device.State(strings.ToUpper(strings.TrimSpace(string(st))))
}
