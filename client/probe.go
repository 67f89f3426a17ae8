package client

import "testerpc/actions"

// armProbe starts (or restarts) the singleton probe timer for
// whichever action is now in flight. gen is bumped so that any
// callback tied to a previous arming becomes a no-op.
func (c *Client) armProbe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelTimerLocked()
	c.probeGen++
	gen := c.probeGen
	c.probeState = probeArmed
	c.probeTimer = c.clock.AfterFunc(c.cfg.DebugSynchronization, func() {
		c.onProbeFire(gen)
	})
}

// disarmProbe cancels any pending timer and returns the state machine
// to IDLE. Safe to call when no probe is armed.
func (c *Client) disarmProbe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelTimerLocked()
	c.probeGen++
	c.probeState = probeIdle
}

func (c *Client) cancelTimerLocked() {
	if c.probeTimer != nil {
		c.probeTimer.Stop()
		c.probeTimer = nil
	}
}

// onProbeFire runs when the armed timer elapses. It is a no-op if the
// originating action already resolved (gen mismatch) or the state
// machine moved on for any other reason. If a currentStatus request
// happens to already be in flight, the probe re-arms without sending
// a second one.
func (c *Client) onProbeFire(gen int64) {
	c.mu.Lock()
	if gen != c.probeGen || c.probeState != probeArmed {
		c.mu.Unlock()
		return
	}
	if c.currentStatusInFlight {
		c.probeTimer = c.clock.AfterFunc(c.cfg.DebugSynchronization, func() {
			c.onProbeFire(gen)
		})
		c.mu.Unlock()
		return
	}
	c.probeState = probeProbing
	c.mu.Unlock()

	go c.runProbe(gen)
}

// runProbe sends the currentStatus action. On a successful reply, if
// the originating action is still in flight (gen unchanged), it
// re-arms the timer for another round.
func (c *Client) runProbe(gen int64) {
	_, err := c.sendAction(actions.CurrentStatus())

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.probeGen || c.probeState != probeProbing {
		return
	}
	if err != nil {
		return
	}
	c.probeState = probeArmed
	c.probeTimer = c.clock.AfterFunc(c.cfg.DebugSynchronization, func() {
		c.onProbeFire(gen)
	})
}
