package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/nerrad567/hearth/internal/alert"
	"github.com/nerrad567/hearth/internal/device"
)

// createAlertRequest is the body of POST /alerts. TriggerAt applies to
// TIME_BASED alerts; ThresholdKWh and Comparator to ENERGY_USAGE alerts.
type createAlertRequest struct {
	Type             string     `json:"type"`
	Name             string     `json:"name"`
	DeviceKind       string     `json:"device_kind"`
	Room             string     `json:"room"`
	Message          string     `json:"message"`
	TriggerAt        *time.Time `json:"trigger_at"`
	RepeatSeconds    int64      `json:"repeat_seconds"`
	ThresholdKWh     float64    `json:"threshold_kwh"`
	Comparator       string     `json:"comparator"`
	KeepAfterTrigger bool       `json:"keep_after_trigger"`
}

// handleListAlerts returns the caller's alerts.
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.svc.ListAlerts(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []*alert.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts, "count": len(alerts)})
}

// handleCreateAlert creates a TIME_BASED or ENERGY_USAGE alert.
func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kind, err := device.ParseKind(req.DeviceKind)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to create alert")
		return
	}
	if req.RepeatSeconds < 0 {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "repeat_seconds must not be negative")
		return
	}

	opts := alert.Options{
		KeepAfterTrigger: req.KeepAfterTrigger,
		RepeatInterval:   time.Duration(req.RepeatSeconds) * time.Second,
	}
	ctx := r.Context()
	userID := userIDFrom(ctx)

	var a *alert.Alert
	switch alert.Kind(strings.ToUpper(strings.TrimSpace(req.Type))) {
	case alert.KindTimeBased:
		if req.TriggerAt == nil {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "trigger_at is required")
			return
		}
		a, err = s.svc.CreateTimeBasedAlert(ctx, userID, req.Name, kind, req.Room, *req.TriggerAt, req.Message, opts)
	case alert.KindEnergyUsage:
		cmp, cerr := alert.ParseComparator(req.Comparator)
		if cerr != nil {
			s.writeServiceError(w, r, cerr, "failed to create alert")
			return
		}
		a, err = s.svc.CreateEnergyUsageAlert(ctx, userID, req.Name, kind, req.Room, req.ThresholdKWh, cmp, req.Message, opts)
	default:
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "type must be TIME_BASED or ENERGY_USAGE")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err, "failed to create alert")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// handleToggleAlert flips an alert between active and inactive.
func (s *Server) handleToggleAlert(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	active, err := s.svc.ToggleAlert(r.Context(), userIDFrom(r.Context()), id)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to toggle alert")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "active": active})
}

// handleDeleteAlert removes an alert.
func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteAlert(r.Context(), userIDFrom(r.Context()), pathParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err, "failed to delete alert")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
