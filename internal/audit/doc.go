// Package audit implements async event dispatching for session lifecycle operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zap, no-op).
//   - [Dispatcher]: buffered async relay. Drops or blocks when full; retained event types
//     always wait for space, and Flush waits for queued events to reach the sink.
//   - [Event]: structured audit record with timestamp, type, subject, token fingerprint, metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; that responsibility belongs to the root Client.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import authclient or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
