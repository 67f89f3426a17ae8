// Package session holds the immutable session configuration value the
// RPC client is constructed with. It does not load configuration from
// files, environment variables, or flags; that is a caller concern.
package session

import (
	"errors"
	"time"
)

// Config is the tester<->app session's configuration, provided by the
// caller at construction time and never mutated afterward.
type Config struct {
	// Server is the relay server's transport endpoint (a URL-like
	// string, e.g. "ws://localhost:8099/ws").
	Server string
	// SessionID is the opaque token identifying the tester<->app pair.
	SessionID string
	// DebugSynchronization is the liveness-probe interval. Zero
	// disables the probe entirely.
	DebugSynchronization time.Duration
}

// Validate checks the session config contract: a non-empty server
// endpoint and session ID, and a non-negative probe interval.
func (c Config) Validate() error {
	if c.Server == "" {
		return errors.New("session: server endpoint must not be empty")
	}
	if c.SessionID == "" {
		return errors.New("session: sessionId must not be empty")
	}
	if c.DebugSynchronization < 0 {
		return errors.New("session: debugSynchronization must not be negative")
	}
	return nil
}

// ProbeEnabled reports whether the liveness probe should run for this
// session.
func (c Config) ProbeEnabled() bool {
	return c.DebugSynchronization > 0
}
