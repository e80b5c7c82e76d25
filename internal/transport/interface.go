package transport

import (
	"context"
	"net/http"
)

// Server exposes the session websocket and the HTTP side routes.
type Server interface {
	// Handler serves /ws, /api/sessions/..., /health and /metrics.
	Handler() http.Handler
	// Start begins listening and runs the liveness sweep. It does not block.
	Start() error
	// Shutdown closes every connection, stops the sweep and the HTTP server.
	Shutdown(ctx context.Context) error
}
