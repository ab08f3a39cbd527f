package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/controlportero/portero-core/internal/camera"
)

func TestListCameras_EmptyWhenFileMissing(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/cameras", nil)
	req.Header.Set("Authorization", "Bearer "+env.tokenFor(t, env.operator))
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want empty JSON array", got)
	}
}

func TestListCameras_ReturnsDescriptors(t *testing.T) {
	env := newTestEnv(t)

	descriptors := `[{"id": 1, "name": "Camera 1", "ip": "http://192.168.10.13:3000"}]`
	if err := os.WriteFile(env.server.cameras.Path(), []byte(descriptors), 0644); err != nil {
		t.Fatalf("writing cameras file: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/cameras", nil)
	req.Header.Set("Authorization", "Bearer "+env.tokenFor(t, env.operator))
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var cams []camera.Camera
	if err := json.Unmarshal(rec.Body.Bytes(), &cams); err != nil {
		t.Fatalf("decoding cameras: %v", err)
	}
	if len(cams) != 1 || cams[0].ID != 1 || cams[0].Name != "Camera 1" {
		t.Errorf("unexpected cameras: %+v", cams)
	}
}

func TestListCameras_EmptyAfterExternalDelete(t *testing.T) {
	env := newTestEnv(t)

	descriptors := `[{"id": 1, "name": "Camera 1", "ip": "http://192.168.10.13:3000"}]`
	if err := os.WriteFile(env.server.cameras.Path(), []byte(descriptors), 0644); err != nil {
		t.Fatalf("writing cameras file: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/cameras", nil)
	req.Header.Set("Authorization", "Bearer "+env.tokenFor(t, env.operator))
	if rec := env.do(req); !strings.Contains(rec.Body.String(), "Camera 1") {
		t.Fatalf("expected camera before delete, got %s", rec.Body.String())
	}

	if err := os.Remove(env.server.cameras.Path()); err != nil {
		t.Fatalf("deleting cameras file: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/cameras", nil)
	req.Header.Set("Authorization", "Bearer "+env.tokenFor(t, env.operator))
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want empty JSON array after external delete", got)
	}
}

func TestCameraStreamURL_IsPublic(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/camera-stream-url", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		WSURL string `json:"wsUrl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.WSURL != "ws://stream.example:9999" {
		t.Errorf("wsUrl = %q, want configured stream url", resp.WSURL)
	}
}
