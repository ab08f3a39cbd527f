// Package mqtt wraps paho.mqtt.golang for the portero gateway.
//
// Doorbell stations and other edge devices publish notification events
// to the broker; this package provides the connection, subscription
// tracking, and publish helpers the doorbell bridge builds on.
//
// Features:
//   - Connection management with automatic reconnection
//   - Subscriptions restored after reconnect
//   - Last Will and Testament on portero/system/status for offline detection
//   - Panic recovery around message handlers
//
// The topic hierarchy is rooted at "portero":
//
//	portero/device/{device_id}/notify   incoming notification events
//	portero/device/{device_id}/status   device availability (retained)
//	portero/event/{event_type}          gateway events for other services
//	portero/system/status               gateway online/offline (retained, LWT)
package mqtt
