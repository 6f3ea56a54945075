// Package api implements the HTTP REST API and WebSocket server for Hearth.
//
// This package provides:
//   - REST endpoints for devices, timers, calendar events, alerts, and reports
//   - WebSocket hub pushing notifications and device state to their owner
//   - JWT bearer authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// Every handler resolves the caller from the token's subject and calls
// automation.Service for that user. The service owns locking, persistence,
// and the background scheduler; the API never touches a household directly.
//
// # Security
//
// Tokens are issued by the external account service and verified here with
// the shared HS256 secret. WebSocket connections use single-use tickets so
// the token never appears in a URL.
package api
