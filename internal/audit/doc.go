// Package audit implements async event dispatching for security-relevant
// operations.
//
// # Components
//
//   - [Sink] - interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher] - buffered async relay with drop-if-full / block-if-full
//     semantics and drain-on-close.
//   - [Event] - structured audit record with timestamp, type, account, IP,
//     and metadata.
//
// This package owns event buffering and sink delivery only. Which events get
// emitted, and with what metadata, is decided by the engine flows.
package audit
