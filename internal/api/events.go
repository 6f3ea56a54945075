package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/hearth/internal/automation"
	"github.com/nerrad567/hearth/internal/calendar"
	"github.com/nerrad567/hearth/internal/device"
)

type createEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Type        string    `json:"type"`
	Recurrence  string    `json:"recurrence"`
}

type updateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Start       *time.Time `json:"start"`
	End         *time.Time `json:"end"`
	Type        *string    `json:"type"`
	Recurrence  *string    `json:"recurrence"`
}

type eventActionRequest struct {
	DeviceKind    string `json:"device_kind"`
	Room          string `json:"room"`
	DesiredState  string `json:"desired_state"`
	OffsetMinutes int    `json:"offset_minutes"`
}

// handleListEvents returns the caller's calendar events.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.ListCalendarEvents(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list events")
		return
	}
	if events == nil {
		events = []*calendar.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

// handleCreateEvent adds a calendar event.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e, err := s.svc.CreateCalendarEvent(r.Context(), userIDFrom(r.Context()), automation.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Start:       req.Start,
		End:         req.End,
		Type:        calendar.EventType(req.Type),
		Recurrence:  calendar.Recurrence(req.Recurrence),
	})
	if err != nil {
		s.writeServiceError(w, r, err, "failed to create event")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// handleUpdateEvent edits the event named by {title}.
func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req updateEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	upd := automation.EventUpdate{
		Title:       req.Title,
		Description: req.Description,
		Start:       req.Start,
		End:         req.End,
	}
	if req.Type != nil {
		t := calendar.EventType(*req.Type)
		upd.Type = &t
	}
	if req.Recurrence != nil {
		rec := calendar.Recurrence(*req.Recurrence)
		upd.Recurrence = &rec
	}

	e, err := s.svc.EditCalendarEvent(r.Context(), userIDFrom(r.Context()), pathParam(r, "title"), upd)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to update event")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleDeleteEvent removes the event named by {title}.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteCalendarEvent(r.Context(), userIDFrom(r.Context()), pathParam(r, "title")); err != nil {
		s.writeServiceError(w, r, err, "failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddEventAction appends a device automation to an event.
func (s *Server) handleAddEventAction(w http.ResponseWriter, r *http.Request) {
	var req eventActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kind, err := device.ParseKind(req.DeviceKind)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to add event action")
		return
	}

	e, err := s.svc.AddEventAutomation(r.Context(), userIDFrom(r.Context()), pathParam(r, "title"), calendar.Action{
		DeviceKind:    kind,
		Room:          req.Room,
		DesiredState:  normalizeAction(device.State(req.DesiredState)),
		OffsetMinutes: req.OffsetMinutes,
	})
	if err != nil {
		s.writeServiceError(w, r, err, "failed to add event action")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// handleRemoveEventAction deletes the action at {index}.
func (s *Server) handleRemoveEventAction(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(pathParam(r, "index"))
	if err != nil {
		writeBadRequest(w, "index must be an integer")
		return
	}
	e, err := s.svc.RemoveEventAutomation(r.Context(), userIDFrom(r.Context()), pathParam(r, "title"), index)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to remove event action")
		return
	}
	writeJSON(w, http.StatusOK, e)
}
