package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/controlportero/portero-core/internal/relay"
)

type controlRelayRequest struct {
	IP    string          `json:"ip"`
	Relay json.RawMessage `json:"relay"`
	State json.RawMessage `json:"state"`
}

// handleControlRelay forwards an actuator command to the remote relay
// controller at the requested address. The gateway is a transparent
// pass-through: whatever status and body the controller answers with is
// returned to the caller with a success envelope; only parameter errors
// and transport failures are mapped locally.
func (s *Server) handleControlRelay(w http.ResponseWriter, r *http.Request) {
	if s.relay == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUpstreamFailed, "relay forwarding is not configured")
		return
	}

	var req controlRelayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	start := time.Now()
	resp, err := s.relay.Forward(r.Context(), relay.Command{
		IP:    req.IP,
		Relay: req.Relay,
		State: req.State,
	})
	if err != nil {
		switch {
		case errors.Is(err, relay.ErrMissingParameters):
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "missing parameters: ip, relay and state are required",
			})
		case errors.Is(err, relay.ErrUpstreamUnreachable):
			s.logger.Warn("relay controller unreachable", "ip", req.IP, "error", err)
			if s.influx != nil {
				s.influx.WriteRelayForward(0, false, time.Since(start))
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "relay controller unreachable",
				"details": err.Error(),
			})
		default:
			s.logger.Error("relay forward failed", "error", err)
			writeInternalError(w)
		}
		return
	}

	if s.influx != nil {
		s.influx.WriteRelayForward(resp.StatusCode, true, time.Since(start))
	}
	if claims := claimsFrom(r); claims != nil && s.recorder != nil {
		s.recorder.Info(claims.Subject, "forwarded relay command to "+req.IP)
	}

	// Remote status and body pass through verbatim inside the envelope.
	writeJSON(w, resp.StatusCode, map[string]string{
		"status":  "success",
		"message": resp.Body,
	})
}
