package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/controlportero/portero-core/internal/notification"
)

// handleNotify ingests a notification posted by a door station. The
// body is multipart form data: text fields name, time, message,
// location and alert_type, plus an optional image file part. All text
// fields are optional; stations in the field send wildly varying
// subsets and rejecting them would drop real visitor events.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxBodySize); err != nil {
		writeBadRequest(w, "expected multipart form data")
		return
	}

	fields := notification.Fields{
		Name:      r.FormValue("name"),
		Time:      r.FormValue("time"),
		Message:   r.FormValue("message"),
		Location:  r.FormValue("location"),
		AlertType: r.FormValue("alert_type"),
	}

	var attachment []byte
	file, _, err := r.FormFile("image")
	if err == nil {
		attachment, err = io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			writeBadRequest(w, "reading image upload")
			return
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		writeBadRequest(w, "reading image upload")
		return
	}

	id, err := s.ingestor.Ingest(r.Context(), fields, attachment)
	if err != nil {
		s.logger.Error("notification ingest failed", "error", err)
		writeInternalError(w)
		return
	}

	if s.influx != nil {
		s.influx.WriteNotificationIngest(fields.AlertType, len(attachment) > 0)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"id":     id,
	})
}

// handleListNotifications returns the full notification collection.
func (s *Server) handleListNotifications(w http.ResponseWriter, _ *http.Request) {
	records := s.store.ReadAll()
	if records == nil {
		records = []notification.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleNotificationStream serves the live notification feed as
// Server-Sent Events. Each snapshot from the distributor is written as
// one event per record; the full collection repeats every poll
// interval, which is the resync contract existing clients rely on.
func (s *Server) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeInternalError(w)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.distributor.Subscribe(r.Context())
	defer sub.Close()

	for snapshot := range sub.Snapshots() {
		for _, rec := range snapshot {
			payload, err := json.Marshal(rec)
			if err != nil {
				// Terminal error event; only this subscription ends.
				_, _ = w.Write([]byte("event: error\ndata: {\"error\": \"stream failure\"}\n\n"))
				flusher.Flush()
				return
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(payload); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

// publishNotificationEvent forwards an appended record to the MQTT
// event topic when a broker is connected. Failures are logged and
// dropped; the broker is an optional integration and must never block
// or fail ingestion.
func (s *Server) publishNotificationEvent(rec notification.Record) {
	if s.mqtt == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := s.mqtt.PublishEvent("notification_created", payload); err != nil {
		s.logger.Warn("mqtt event publish failed", "error", err, "id", rec.ID)
	}
}
