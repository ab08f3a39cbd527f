package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/controlportero/portero-core/internal/audit"
)

type observationRequest struct {
	Observation string `json:"observation"`
}

// handleCreateObservation records an operator's free-form observation
// in the audit log. The entry is buffered by the recorder and flushed
// to the database in the background.
func (s *Server) handleCreateObservation(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	var req observationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	text := strings.TrimSpace(req.Observation)
	if text == "" {
		writeBadRequest(w, "observation must not be empty")
		return
	}

	if s.recorder == nil {
		writeInternalError(w)
		return
	}
	s.recorder.Info(claims.Subject, "recorded observation: "+text)

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleListObservations returns audit log entries, newest first.
// Query parameters: level, user_id, limit, offset.
func (s *Server) handleListObservations(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeInternalError(w)
		return
	}

	filter := audit.Filter{
		Level:  r.URL.Query().Get("level"),
		UserID: r.URL.Query().Get("user_id"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing observations failed", "error", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
