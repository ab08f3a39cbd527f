package doorbell

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/controlportero/portero-core/internal/infrastructure/mqtt"
	"github.com/controlportero/portero-core/internal/notification"
)

// subscribeQoS is the QoS level for device event subscriptions.
// At-least-once: a duplicated doorbell press beats a lost one.
const subscribeQoS = 1

// MQTTClient is the interface for MQTT operations the bridge needs.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Ingestor accepts decoded device events. Satisfied by *notification.Service.
type Ingestor interface {
	Ingest(ctx context.Context, fields notification.Fields, attachment []byte) (string, error)
}

// Event is the JSON payload a door station publishes on its notify topic.
type Event struct {
	Name      string `json:"name"`
	Time      string `json:"time"`
	Message   string `json:"message"`
	Location  string `json:"location"`
	AlertType string `json:"alert_type"`

	// Image is an optional base64-encoded JPEG snapshot.
	Image string `json:"image,omitempty"`
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

// Bridge subscribes to door station events and feeds them into the
// notification pipeline.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	client   MQTTClient
	ingestor Ingestor
	logger   Logger

	mu      sync.Mutex
	running bool

	// ctx is the bridge lifetime context, used for ingestion calls made
	// from MQTT handler goroutines.
	ctx       context.Context
	ctxCancel context.CancelFunc
}

// New creates a doorbell bridge over the given MQTT client and ingestor.
func New(client MQTTClient, ingestor Ingestor) *Bridge {
	return &Bridge{
		client:   client,
		ingestor: ingestor,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.logger = logger
}

// Start subscribes to the device notify wildcard.
//
// The subscription survives broker reconnects (the MQTT client restores
// it); Start itself fails if the broker is unreachable at startup.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return nil
	}

	b.ctx, b.ctxCancel = context.WithCancel(ctx)

	topic := mqtt.Topics{}.AllDeviceNotify()
	if err := b.client.Subscribe(topic, subscribeQoS, b.handleNotify); err != nil {
		b.ctxCancel()
		return fmt.Errorf("subscribing to device events: %w", err)
	}

	b.running = true
	b.logger.Info("doorbell bridge started", "topic", topic)
	return nil
}

// Stop unsubscribes and cancels in-flight ingestion.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return
	}
	b.running = false
	b.ctxCancel()

	if b.client.IsConnected() {
		topic := mqtt.Topics{}.AllDeviceNotify()
		if err := b.client.Unsubscribe(topic); err != nil {
			b.logger.Warn("unsubscribe failed during shutdown", "error", err)
		}
	}

	b.logger.Info("doorbell bridge stopped")
}

// handleNotify decodes one device event and ingests it.
// Invoked by the MQTT client on its own goroutine per message.
func (b *Bridge) handleNotify(topic string, payload []byte) error {
	deviceID := mqtt.DeviceIDFromNotifyTopic(topic)
	if deviceID == "" {
		return fmt.Errorf("unexpected notify topic %q", topic)
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("decoding event from %s: %w", deviceID, err)
	}

	var attachment []byte
	if event.Image != "" {
		decoded, err := base64.StdEncoding.DecodeString(event.Image)
		if err != nil {
			// A bad image does not void the event; keep the text fields.
			b.logger.Warn("discarding undecodable event image", "device", deviceID, "error", err)
		} else {
			attachment = decoded
		}
	}

	fields := notification.Fields{
		Name:      event.Name,
		Time:      event.Time,
		Message:   event.Message,
		Location:  locationOrDevice(event.Location, deviceID),
		AlertType: event.AlertType,
	}

	id, err := b.ingestor.Ingest(b.ctx, fields, attachment)
	if err != nil {
		return fmt.Errorf("ingesting event from %s: %w", deviceID, err)
	}

	b.logger.Debug("device event ingested", "device", deviceID, "id", id)
	return nil
}

// locationOrDevice falls back to the device id when the event carries no
// location, so the record always says where it came from.
func locationOrDevice(location, deviceID string) string {
	if location != "" {
		return location
	}
	return deviceID
}
