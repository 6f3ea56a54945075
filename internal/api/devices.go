package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/hearth/internal/automation"
	"github.com/nerrad567/hearth/internal/device"
)

// createDeviceRequest is the body of POST /devices.
type createDeviceRequest struct {
	Kind             string  `json:"kind"`
	Room             string  `json:"room"`
	PowerRatingWatts float64 `json:"power_rating_watts"`
}

// updateDeviceRequest is the body of PATCH /devices/{kind}/{room}.
type updateDeviceRequest struct {
	Room             *string  `json:"room"`
	PowerRatingWatts *float64 `json:"power_rating_watts"`
}

type setStateRequest struct {
	State string `json:"state"`
}

type scheduleTimerRequest struct {
	At time.Time `json:"at"`
}

// decodeJSON reads the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

// pathParam returns a URL parameter with percent-escapes removed.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// deviceKey resolves the {kind}/{room} path parameters.
func deviceKey(r *http.Request) (device.Key, error) {
	kind, err := device.ParseKind(pathParam(r, "kind"))
	if err != nil {
		return device.Key{}, err
	}
	return device.NewKey(kind, pathParam(r, "room")), nil
}

// handleListDevices returns the caller's devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.svc.ListDevices(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list devices")
		return
	}
	if devices == nil {
		devices = []*device.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleCreateDevice registers a new device.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kind, err := device.ParseKind(req.Kind)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to create device")
		return
	}

	dev, err := s.svc.AddDevice(r.Context(), userIDFrom(r.Context()), kind, req.Room, req.PowerRatingWatts)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to create device")
		return
	}
	writeJSON(w, http.StatusCreated, dev)
}

// handleGetDevice returns a single device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	key, err := deviceKey(r)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to get device")
		return
	}
	dev, err := s.svc.GetDevice(r.Context(), userIDFrom(r.Context()), key)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to get device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleUpdateDevice renames and/or rerates a device.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	key, err := deviceKey(r)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to update device")
		return
	}
	var req updateDeviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Room == nil && req.PowerRatingWatts == nil {
		writeBadRequest(w, "nothing to update")
		return
	}

	dev, err := s.svc.EditDevice(r.Context(), userIDFrom(r.Context()), key, automation.DeviceUpdate{
		Room:             req.Room,
		PowerRatingWatts: req.PowerRatingWatts,
	})
	if err != nil {
		s.writeServiceError(w, r, err, "failed to update device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleDeleteDevice removes a device and returns its final energy record.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	key, err := deviceKey(r)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to delete device")
		return
	}
	rec, err := s.svc.DeleteDevice(r.Context(), userIDFrom(r.Context()), key)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to delete device")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleSetDeviceState switches a device ON or OFF.
func (s *Server) handleSetDeviceState(w http.ResponseWriter, r *http.Request) {
	key, err := deviceKey(r)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to set device state")
		return
	}
	var req setStateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	state, err := device.ParseState(req.State)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to set device state")
		return
	}

	dev, changed, err := s.svc.SetDeviceState(r.Context(), userIDFrom(r.Context()), key, state)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to set device state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"device": dev, "changed": changed})
}

// handleToggleDevice flips a device.
func (s *Server) handleToggleDevice(w http.ResponseWriter, r *http.Request) {
	key, err := deviceKey(r)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to toggle device")
		return
	}
	dev, err := s.svc.ToggleDevice(r.Context(), userIDFrom(r.Context()), key)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to toggle device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleScheduleTimer sets the ON or OFF timer named by {action}.
func (s *Server) handleScheduleTimer(w http.ResponseWriter, r *http.Request) {
	key, err := deviceKey(r)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to schedule timer")
		return
	}
	var req scheduleTimerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.At.IsZero() {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "at is required")
		return
	}

	action := device.State(pathParam(r, "action"))
	if err := s.svc.ScheduleDeviceTimer(r.Context(), userIDFrom(r.Context()), key.Kind, key.Room, normalizeAction(action), req.At); err != nil {
		s.writeServiceError(w, r, err, "failed to schedule timer")
		return
	}
	writeJSON(w, http.StatusOK, automation.Timer{
		DeviceKind: key.Kind,
		Room:       key.Room,
		Action:     normalizeAction(action),
		At:         req.At.UTC(),
	})
}

// handleCancelTimer clears a pending timer.
func (s *Server) handleCancelTimer(w http.ResponseWriter, r *http.Request) {
	key, err := deviceKey(r)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to cancel timer")
		return
	}
	action := normalizeAction(device.State(pathParam(r, "action")))
	if err := s.svc.CancelDeviceTimer(r.Context(), userIDFrom(r.Context()), key.Kind, key.Room, action); err != nil {
		s.writeServiceError(w, r, err, "failed to cancel timer")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListTimers returns every pending timer of the caller.
func (s *Server) handleListTimers(w http.ResponseWriter, r *http.Request) {
	timers, err := s.svc.ListTimers(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list timers")
		return
	}
	if timers == nil {
		timers = []automation.Timer{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"timers": timers, "count": len(timers)})
}

// normalizeAction accepts "on"/"off" in any case.
func normalizeAction(a device.State) device.State {
	if st, err := device.ParseState(string(a)); err == nil {
		return st
	}
	return a
}
