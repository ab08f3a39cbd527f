package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteNotificationIngest records one notification ingestion.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - alertType: The notification's alert type ("info", "warning", "emergency")
//   - hasImage: Whether the notification carried an image attachment
func (c *Client) WriteNotificationIngest(alertType string, hasImage bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"notifications",
		map[string]string{
			"alert_type": alertType,
		},
		map[string]interface{}{
			"count":     1,
			"has_image": hasImage,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRelayForward records the outcome of one relay command forward.
//
// Parameters:
//   - statusCode: The controller's HTTP status (0 when unreachable)
//   - success: Whether the controller was reached at all
//   - duration: Round-trip time of the forward
func (c *Client) WriteRelayForward(statusCode int, success bool, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"relay_commands",
		map[string]string{
			"outcome": relayOutcome(success),
		},
		map[string]interface{}{
			"status_code": statusCode,
			"duration_ms": duration.Milliseconds(),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

func relayOutcome(success bool) string {
	if success {
		return "forwarded"
	}
	return "unreachable"
}

// WriteStreamSessions records the current number of live notification
// stream sessions. Sampled periodically by the server.
func (c *Client) WriteStreamSessions(count int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"stream_sessions",
		nil,
		map[string]interface{}{
			"count": count,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
