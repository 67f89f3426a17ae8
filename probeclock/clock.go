// Package probeclock supplies the testable time source used to drive
// the RPC client's liveness-probe scheduler. Production code runs on
// the real wall clock; tests substitute a fake clock so probe timing
// can be advanced deterministically instead of sleeping for real.
package probeclock

import (
	"time"

	"github.com/juju/clock"
)

// Clock is the time source the probe scheduler depends on.
type Clock = clock.Clock

// Timer is a single armed callback, returned by Clock.AfterFunc.
// Stop is idempotent: stopping an already-fired or already-stopped
// timer is a no-op that returns false.
type Timer = clock.Timer

// WallClock is the production clock.
var WallClock Clock = clock.WallClock

// Duration re-exports time.Duration for callers that only import this
// package.
type Duration = time.Duration
