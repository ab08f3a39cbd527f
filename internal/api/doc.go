// Package api implements the HTTP API server for Portero Core.
//
// The server exposes two route surfaces:
//
//   - Legacy paths at the root (/notify, /notifications, /control-relay,
//     /cameras, /camera-stream-url, /auth/login, /observations, /uploads)
//     kept byte-compatible with the gateway this service replaces, so
//     deployed door stations and frontends keep working unmodified.
//   - A versioned /api/v1 tree mirroring the same operations plus health,
//     WebSocket tickets and the live event socket.
//
// Request flow: requestID -> logging -> recovery -> CORS -> body size
// limit -> router. Protected routes additionally pass a JWT bearer-token
// middleware that places the verified claims in the request context.
//
// The notification feed at GET /notifications is a long-lived SSE
// response driven by a notification.Distributor subscription; the
// WebSocket endpoint carries push events for clients that prefer a
// bidirectional channel.
package api
