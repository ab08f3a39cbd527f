package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Gateway defaults.
const (
	// DefaultControllerPort is the fixed control port relay controllers
	// listen on.
	DefaultControllerPort = 3000

	// DefaultTimeout bounds one forwarding round trip.
	DefaultTimeout = 10 * time.Second

	// maxResponseBody caps how much of a controller response is read back.
	maxResponseBody = 64 * 1024
)

// Command is one relay switching request.
//
// Relay and State are raw JSON so whatever encoding the caller supplied
// reaches the controller byte for byte.
type Command struct {
	// IP is the controller's address. Required.
	IP string

	// Relay identifies the output channel on the controller. Required.
	Relay json.RawMessage

	// State is the desired output state. Required.
	State json.RawMessage
}

// Response is the controller's reply, passed back to the caller as-is.
type Response struct {
	// StatusCode is the controller's HTTP status.
	StatusCode int

	// Body is the controller's response body, truncated at a sane limit.
	Body string
}

// controllerPayload is the wire body posted to the controller.
type controllerPayload struct {
	Relay json.RawMessage `json:"relay"`
	State json.RawMessage `json:"state"`
}

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Gateway forwards relay commands to edge controllers over HTTP.
type Gateway struct {
	port   int
	client *http.Client
	logger Logger
}

// NewGateway creates a forwarding gateway.
// port or timeout values <= 0 fall back to the defaults.
func NewGateway(port int, timeout time.Duration) *Gateway {
	if port <= 0 {
		port = DefaultControllerPort
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{
		port: port,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the gateway.
func (g *Gateway) SetLogger(logger Logger) {
	g.logger = logger
}

// Forward posts the command to the target controller and returns its
// response verbatim.
//
// Validation happens before any network activity: an incomplete command
// returns ErrMissingParameters without touching the controller. A
// controller that responds, with any status, yields a Response and a nil
// error; the caller decides what a 503 "busy" means. Only transport
// failures return ErrUpstreamUnreachable.
//
// Parameters:
//   - ctx: Context for cancellation, combined with the gateway timeout
//   - cmd: The command to forward
//
// Returns:
//   - *Response: The controller's status and body, nil on error
//   - error: ErrMissingParameters or ErrUpstreamUnreachable wrapping the cause
func (g *Gateway) Forward(ctx context.Context, cmd Command) (*Response, error) {
	if cmd.IP == "" || len(cmd.Relay) == 0 || len(cmd.State) == 0 {
		return nil, ErrMissingParameters
	}

	body, err := json.Marshal(controllerPayload{
		Relay: cmd.Relay,
		State: cmd.State,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding relay command: %w", err)
	}

	url := fmt.Sprintf("http://%s:%d/control-relay", cmd.IP, g.port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("relay controller unreachable",
			"ip", cmd.IP,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrUpstreamUnreachable, err)
	}

	g.logger.Info("relay command forwarded",
		"ip", cmd.IP,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
	}, nil
}

// Port returns the controller port commands are forwarded to.
func (g *Gateway) Port() int {
	return g.port
}
