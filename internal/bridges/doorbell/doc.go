// Package doorbell bridges MQTT-connected door stations into the
// notification pipeline.
//
// Newer door stations publish events to portero/device/{id}/notify
// instead of posting multipart HTTP. The bridge subscribes to the
// wildcard topic, decodes each event, and hands it to the same
// ingestion service the HTTP endpoint uses, so both paths produce
// identical records.
//
// Image payloads ride inside the JSON event as base64; they are small
// doorbell snapshots, well under the broker's payload cap.
package doorbell
