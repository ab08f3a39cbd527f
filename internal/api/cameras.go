package api

import (
	"net/http"

	"github.com/controlportero/portero-core/internal/camera"
)

// handleListCameras returns the camera descriptor list. The repository
// is a pass-through collaborator; a missing or unreadable descriptor
// file yields an empty list, never an error.
func (s *Server) handleListCameras(w http.ResponseWriter, _ *http.Request) {
	var cams []camera.Camera
	if s.cameras != nil {
		cams = s.cameras.List()
	}
	if cams == nil {
		cams = []camera.Camera{}
	}
	writeJSON(w, http.StatusOK, cams)
}

// handleCameraStreamURL returns the externally-hosted camera stream
// endpoint. Video transport is not handled by this service; clients
// connect to the returned URL directly.
func (s *Server) handleCameraStreamURL(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"wsUrl": s.camCfg.StreamURL,
	})
}
