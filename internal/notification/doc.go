// Package notification implements the visitor/alert notification core:
// the durable append-only store, best-effort ingestion from edge devices,
// and the live distribution layer feeding long-lived client streams.
//
// # Store
//
// Records are held in an in-memory append-only slice guarded by a
// single-writer lock and persisted after every append as an
// externally-readable JSON document (temp file + atomic rename). A
// malformed or missing document loads as an empty collection: the
// gateway stays available and starts a fresh log rather than refusing
// to boot over a corrupt file. This availability-over-strict-durability
// tradeoff is deliberate and must not be "fixed" into a hard failure.
//
// # Ingestion
//
// Ingestion is permissive by design: edge devices are untrusted and
// field validation is limited to presence pass-through, so a doorbell
// with half-configured firmware still gets its event recorded. The
// optional image attachment is written before the record append, so a
// record never references an attachment that was not yet on disk.
//
// # Distribution
//
// Each subscriber gets an independent polling session that emits the
// full current collection every tick. Clients rely on the full-resend
// behaviour, so it is kept as the wire contract; internally sessions
// read cheap in-memory snapshots instead of re-reading the document,
// and append observers let the WebSocket hub push incremental
// notification.created events as an extension.
package notification
