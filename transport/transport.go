// Package transport defines the socket transport abstraction the
// Async Message Socket wraps. It is the seam between the RPC client
// core and whatever concrete duplex channel carries frames to the
// relay server.
package transport

import "context"

// Transport is a raw full-duplex message channel. Implementations
// deliver inbound frames via OnMessage and report transport-level
// failures via OnError/OnClose. Transport itself does not know about
// message IDs, actions, or envelopes — that is the socket's job.
type Transport interface {
	// Open establishes the connection. It blocks until the transport
	// reports "open" or fails.
	Open(ctx context.Context) error
	// Close closes the connection. Idempotent: closing an
	// already-closed transport returns nil immediately.
	Close() error
	// Send writes one frame. Callers must check IsOpen first if they
	// want to fail fast instead of getting a write error.
	Send(data []byte) error
	// IsOpen reports the current open/closed state.
	IsOpen() bool
	// OnMessage registers the single callback invoked for each
	// inbound frame.
	OnMessage(func([]byte))
	// OnError registers the callback invoked when the transport
	// observes an asynchronous error after Open succeeded.
	OnError(func(error))
	// OnClose registers the callback invoked when the transport
	// transitions to closed, whether by local Close or remote hangup.
	OnClose(func(error))
}
