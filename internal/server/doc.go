// Package server implements the HTTP server using Echo framework.
//
// Routes: channel/page/rotation API (handlers_api.go), the viewer WebSocket
// endpoint (handlers_ws.go), health and metrics (handlers_health.go,
// routes.go). Handlers translate domain sentinel errors to HTTP status codes
// and otherwise stay thin over the app service.
package server
