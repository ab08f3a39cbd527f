package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the route tree.
//
// Root-level routes replicate the paths of the gateway this service
// replaces and must not move: door stations POST to /notify and the
// deployed frontend consumes /notifications, /control-relay, /cameras,
// /camera-stream-url, /auth/login, /observations and /uploads. The
// /api/v1 tree carries the same operations for new clients plus the
// endpoints the old gateway never had.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Legacy surface.
	r.Post("/notify", s.handleNotify)
	r.Get("/notifications", s.handleNotificationStream)
	r.Get("/camera-stream-url", s.handleCameraStreamURL)
	r.Post("/auth/login", s.handleLogin)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(s.ingestor.UploadDir()))))

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/control-relay", s.handleControlRelay)
		r.Get("/cameras", s.handleListCameras)
		r.Post("/observations", s.handleCreateObservation)
		r.Get("/observations", s.handleListObservations)
	})

	// Versioned surface.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)
		r.Get("/camera-stream-url", s.handleCameraStreamURL)
		r.Post("/notifications", s.handleNotify)
		r.Get("/notifications/stream", s.handleNotificationStream)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)
			r.Get("/auth/me", s.handleMe)
			r.Get("/notifications", s.handleListNotifications)
			r.Post("/relay/forward", s.handleControlRelay)
			r.Get("/cameras", s.handleListCameras)
			r.Post("/observations", s.handleCreateObservation)
			r.Get("/observations", s.handleListObservations)

			r.Route("/users", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)
				r.Get("/{id}", s.handleGetUser)
				r.Put("/{id}", s.handleUpdateUser)
				r.Delete("/{id}", s.handleDeleteUser)
			})
		})
	})

	return r
}

// handleHealth reports service liveness and optional integration state.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}
	if s.mqtt != nil {
		resp["mqtt_connected"] = s.mqtt.IsConnected()
	}
	if s.influx != nil {
		resp["influxdb_connected"] = s.influx.IsConnected()
	}
	writeJSON(w, http.StatusOK, resp)
}
