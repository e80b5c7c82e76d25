package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Jasonwill2004/ScribeAI/internal/export"
	"github.com/Jasonwill2004/ScribeAI/internal/models"
)

func (s *implServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", s.handleWebsocket)
	mux.HandleFunc("GET /health", s.withMetrics("/health", s.handleHealth))
	mux.HandleFunc("GET /api/sessions/{id}/transcript", s.withMetrics("/api/sessions/{id}/transcript", s.handleTranscript))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.withMetrics("/api/sessions/{id}", s.handleDelete))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	return mux
}

func (s *implServer) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server and the liveness sweep
func (s *implServer) Start() error {
	s.server = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.startSweep()

	s.logger.Info(context.Background(), "HTTP server listening on %s", s.cfg.Address)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "HTTP server error: %v", err)
		}
	}()
	return nil
}

// Shutdown closes websocket connections first, then drains HTTP requests.
func (s *implServer) Shutdown(ctx context.Context) error {
	s.stopSweep()

	s.mu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
	s.logger.Info(ctx, "Closed %d websocket connection(s)", len(conns))

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// withMetrics wraps an HTTP handler with metrics collection
func (s *implServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(ww, r)

		s.metrics.RecordHTTPRequest(r.Method, endpoint, fmt.Sprintf("%d", ww.statusCode), time.Since(startTime).Seconds())
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *implServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	open := len(s.conns)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": open,
		"time":        time.Now().UTC().Format(time.RFC3339),
	})
}

// handleTranscript renders the export of a session on demand, as text or docx.
func (s *implServer) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := s.pipeline.Export(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "txt":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="transcript-%s.txt"`, id))
		if err := export.WriteText(w, doc); err != nil {
			s.logger.Warn(r.Context(), "Failed to write transcript session=%s: %v", id, err)
		}
	case "docx":
		s.serveDocx(w, r, doc)
	default:
		s.writeError(w, r, fmt.Errorf("%w: unsupported format %q", models.ErrValidation, format))
	}
}

func (s *implServer) serveDocx(w http.ResponseWriter, r *http.Request, doc export.Document) {
	if err := os.MkdirAll(s.cfg.TempDir, 0755); err != nil {
		s.writeError(w, r, err)
		return
	}
	tmp, err := os.CreateTemp(s.cfg.TempDir, "export-*.docx")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := export.WriteDocx(doc, path); err != nil {
		s.writeError(w, r, fmt.Errorf("render docx: %w", err))
		return
	}

	f, err := os.Open(path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="transcript-%s.docx"`, doc.Session.ID))
	if _, err := io.Copy(w, f); err != nil {
		s.logger.Warn(r.Context(), "Failed to send docx session=%s: %v", doc.Session.ID, err)
	}
}

func (s *implServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *implServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrStateConflict), errors.Is(err, models.ErrInvalidTransition):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
