package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	Notifications *NotifyMetrics `json:"notifications,omitempty"`
	Scheduler     SchedulerInfo  `json:"scheduler"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// NotifyMetrics contains notification queue counters.
type NotifyMetrics struct {
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
}

// SchedulerInfo reports the effective scheduler settings.
type SchedulerInfo struct {
	IntervalSeconds float64 `json:"interval_seconds"`
	LeadTimeSeconds float64 `json:"lead_time_seconds"`
	WindowSeconds   float64 `json:"window_seconds"`
}

// handleMetrics returns process and scheduler metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	cfg := s.svc.Config()
	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Scheduler: SchedulerInfo{
			IntervalSeconds: cfg.Interval.Seconds(),
			LeadTimeSeconds: cfg.LeadTime.Seconds(),
			WindowSeconds:   cfg.Window.Seconds(),
		},
	}

	if s.hub != nil {
		metrics.WebSocket.ConnectedClients = s.hub.ClientCount()
	}
	if s.notify != nil {
		metrics.Notifications = &NotifyMetrics{
			Delivered: s.notify.Delivered(),
			Dropped:   s.notify.Dropped(),
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
