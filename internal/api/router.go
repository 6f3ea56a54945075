package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component check made by /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health and metrics (no auth required for basic monitoring)
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Post("/", s.handleCreateDevice)

				r.Route("/{kind}/{room}", func(r chi.Router) {
					r.Get("/", s.handleGetDevice)
					r.Patch("/", s.handleUpdateDevice)
					r.Delete("/", s.handleDeleteDevice)
					r.Put("/state", s.handleSetDeviceState)
					r.Post("/toggle", s.handleToggleDevice)
					r.Put("/timers/{action}", s.handleScheduleTimer)
					r.Delete("/timers/{action}", s.handleCancelTimer)
				})
			})

			r.Get("/timers", s.handleListTimers)

			r.Route("/events", func(r chi.Router) {
				r.Get("/", s.handleListEvents)
				r.Post("/", s.handleCreateEvent)

				r.Route("/{title}", func(r chi.Router) {
					r.Patch("/", s.handleUpdateEvent)
					r.Delete("/", s.handleDeleteEvent)
					r.Post("/actions", s.handleAddEventAction)
					r.Delete("/actions/{index}", s.handleRemoveEventAction)
				})
			})

			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", s.handleListAlerts)
				r.Post("/", s.handleCreateAlert)
				r.Post("/{id}/toggle", s.handleToggleAlert)
				r.Delete("/{id}", s.handleDeleteAlert)
			})

			r.Get("/report/energy", s.handleEnergyReport)
			r.Get("/history", s.handleListHistory)
			r.Post("/tick", s.handleForceTick)
		})
	})

	return r
}

// handleHealth returns the server health status. Any failing component
// degrades the status but the endpoint still answers 200 so load balancers
// can distinguish "up but degraded" from "down".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	components := make(map[string]string, len(s.health))
	for name, hc := range s.health {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := hc.HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}
