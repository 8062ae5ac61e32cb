package web

import (
	"fmt"
	"html"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attend/internal/gallery"
	"github.com/kozaktomas/face-attend/internal/ledger"
	"github.com/kozaktomas/face-attend/internal/web/handlers"
)

func (s *Server) setupRoutes(store *gallery.Store, led *ledger.Ledger, engine handlers.Pinger, sync handlers.SyncRunner) {
	// Create handlers
	statusHandler := handlers.NewStatusHandler(s.config, store, led, engine)
	galleryHandler := handlers.NewGalleryHandler(store)
	syncHandler := handlers.NewSyncHandler(sync)
	attendanceHandler := handlers.NewAttendanceHandler(led)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", statusHandler.Get)
		r.Post("/gallery/reload", galleryHandler.Reload)
		r.Post("/sync", syncHandler.Trigger)
		r.Get("/attendance/recent", attendanceHandler.Recent)
	})

	// Operator landing page
	s.router.Get("/", s.serveIndex)
}

// serveIndex serves a minimal operator page for the device.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Face Attend</title>
    <style>
        body { font-family: system-ui, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #1a1a2e; color: #eee; }
        .container { text-align: center; }
        h1 { color: #00d9ff; }
        p { color: #aaa; }
        a { color: #00d9ff; }
        code { background: #2a2a3e; padding: 2px 8px; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Face Attend</h1>
        <p>Attendance device <code>%s</code></p>
        <p>Device state is at <a href="/api/v1/status">/api/v1/status</a>,
           recent check-ins at <a href="/api/v1/attendance/recent">/api/v1/attendance/recent</a></p>
    </div>
</body>
</html>`, html.EscapeString(s.config.Device.ID))
}
