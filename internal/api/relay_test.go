package api

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/controlportero/portero-core/internal/relay"
)

// pointRelayAt rewires the server's relay gateway at a fake controller
// and returns the address to use as the request's ip field.
func pointRelayAt(t *testing.T, env *testEnv, controller *httptest.Server) string {
	t.Helper()

	u, err := url.Parse(controller.URL)
	if err != nil {
		t.Fatalf("parsing controller url: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("splitting controller addr: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parsing controller port: %v", err)
	}

	env.server.relay = relay.NewGateway(port, 2*time.Second)
	return host
}

// postControlRelay sends an authenticated control-relay request.
func postControlRelay(t *testing.T, env *testEnv, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/control-relay", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+env.tokenFor(t, env.operator))
	return env.do(req)
}

func TestControlRelay_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	body := `{"ip": "10.0.0.5", "relay": 1, "state": "on"}`
	rec := env.do(httptest.NewRequest(http.MethodPost, "/control-relay", strings.NewReader(body)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestControlRelay_Success(t *testing.T) {
	env := newTestEnv(t)

	var gotBody []byte
	controller := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("relay 1 on"))
	}))
	defer controller.Close()
	ip := pointRelayAt(t, env, controller)

	body := `{"ip": "` + ip + `", "relay": 1, "state": "on"}`
	rec := postControlRelay(t, env, body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("status = %q, want success", resp.Status)
	}
	if resp.Message != "relay 1 on" {
		t.Errorf("message = %q, want controller body verbatim", resp.Message)
	}

	var forwarded struct {
		Relay json.RawMessage `json:"relay"`
		State json.RawMessage `json:"state"`
	}
	if err := json.Unmarshal(gotBody, &forwarded); err != nil {
		t.Fatalf("decoding forwarded body: %v", err)
	}
	if string(forwarded.Relay) != "1" || string(forwarded.State) != `"on"` {
		t.Errorf("forwarded relay=%s state=%s, want raw values preserved", forwarded.Relay, forwarded.State)
	}
}

func TestControlRelay_PropagatesRemoteStatus(t *testing.T) {
	env := newTestEnv(t)

	controller := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("busy"))
	}))
	defer controller.Close()
	ip := pointRelayAt(t, env, controller)

	body := `{"ip": "` + ip + `", "relay": 2, "state": "off"}`
	rec := postControlRelay(t, env, body)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 passed through", rec.Code)
	}

	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Message != "busy" {
		t.Errorf("message = %q, want busy", resp.Message)
	}
}

func TestControlRelay_MissingParameters(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body string
	}{
		{"no ip", `{"relay": 1, "state": "on"}`},
		{"no relay", `{"ip": "10.0.0.5", "state": "on"}`},
		{"no state", `{"ip": "10.0.0.5", "relay": 1}`},
		{"empty body", `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postControlRelay(t, env, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}

			var resp struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if resp.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestControlRelay_UpstreamUnreachable(t *testing.T) {
	env := newTestEnv(t)

	// Grab a port nothing is listening on.
	controller := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	ip := pointRelayAt(t, env, controller)
	controller.Close()

	body := `{"ip": "` + ip + `", "relay": 1, "state": "on"}`
	rec := postControlRelay(t, env, body)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var resp struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Error == "" || resp.Details == "" {
		t.Error("expected error and details fields")
	}
}

func TestControlRelay_InvalidJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := postControlRelay(t, env, "not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
