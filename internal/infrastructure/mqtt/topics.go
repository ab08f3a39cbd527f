package mqtt

import "fmt"

// Topic prefixes for the portero MQTT hierarchy.
const (
	// TopicPrefix is the root of all portero topics.
	TopicPrefix = "portero"

	// TopicPrefixDevice is the base for edge device topics.
	TopicPrefixDevice = "portero/device"

	// TopicPrefixEvent is the base for gateway event topics.
	TopicPrefixEvent = "portero/event"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "portero/system"
)

// Topics provides builders for portero MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	notifyTopic := topics.DeviceNotify("doorbell-front")
//	// Returns: "portero/device/doorbell-front/notify"
type Topics struct{}

// DeviceNotify returns the topic a device publishes notification events on.
//
// Example: portero/device/doorbell-front/notify
func (Topics) DeviceNotify(deviceID string) string {
	return fmt.Sprintf("%s/%s/notify", TopicPrefixDevice, deviceID)
}

// AllDeviceNotify returns the wildcard pattern matching notification
// events from every device.
//
// Example: portero/device/+/notify
func (Topics) AllDeviceNotify() string {
	return TopicPrefixDevice + "/+/notify"
}

// DeviceStatus returns the topic for a device's availability (retained).
//
// Example: portero/device/doorbell-front/status
func (Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixDevice, deviceID)
}

// Event returns the topic for gateway events consumed by other services.
//
// Example: portero/event/notification_created
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvent, eventType)
}

// SystemStatus returns the gateway's own online/offline topic (retained, LWT).
//
// Example: portero/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// DeviceIDFromNotifyTopic extracts the device id from a notify topic.
// Returns an empty string if the topic does not match the pattern.
func DeviceIDFromNotifyTopic(topic string) string {
	// portero/device/{id}/notify
	const prefix = TopicPrefixDevice + "/"
	const suffix = "/notify"
	if len(topic) <= len(prefix)+len(suffix) {
		return ""
	}
	if topic[:len(prefix)] != prefix || topic[len(topic)-len(suffix):] != suffix {
		return ""
	}
	id := topic[len(prefix) : len(topic)-len(suffix)]
	for i := 0; i < len(id); i++ {
		if id[i] == '/' {
			return ""
		}
	}
	return id
}
