// Package client implements the RPC Client: connection and login
// handshake, action dispatch with response-type verification, the
// current-status liveness-probe scheduler, crash-capture event hooks,
// and cleanup. It owns one socket and consults the action registry.
package client

import (
	"context"
	"encoding/json"
	"sync"

	uuid "github.com/satori/go.uuid"

	"testerpc/actions"
	"testerpc/diagnostics"
	"testerpc/events"
	"testerpc/logging"
	"testerpc/probeclock"
	"testerpc/protocol"
	"testerpc/rpcerr"
	"testerpc/session"
	"testerpc/socket"
	"testerpc/transport"
)

type probeState int

const (
	probeIdle probeState = iota
	probeArmed
	probeProbing
)

// Client is the tester-side RPC client for one session against one
// instrumented application.
type Client struct {
	cfg   session.Config
	sock  *socket.Socket
	clock probeclock.Clock
	log   *logging.Logger

	instanceID string

	mu                    sync.Mutex
	appConnected          bool
	appCrashing           bool
	pendingCrash          error
	currentStatusInFlight bool
	nonresponsiveListener func(json.RawMessage)

	probeState probeState
	probeTimer probeclock.Timer
	probeGen   int64
}

// New constructs a Client bound to t, using clk to schedule the
// liveness probe (probeclock.WallClock in production, a fake clock in
// tests). cfg must already be valid (see session.Config.Validate).
func New(cfg session.Config, t transport.Transport, clk probeclock.Clock, log *logging.Logger) *Client {
	id := uuid.NewV4()
	instanceID := id.String()
	l := log.WithPrefix("[" + instanceID + "]")
	bus := events.New()
	c := &Client{
		cfg:        cfg,
		sock:       socket.New(t, bus, l),
		clock:      clk,
		log:        l,
		instanceID: instanceID,
	}
	return c
}

// InstanceID returns the client's log-correlation identifier.
func (c *Client) InstanceID() string { return c.instanceID }

// IsConnected reports whether the socket is open and an appConnected
// event has been observed since the last Connect.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appConnected && c.sock.IsOpen()
}

// Connect opens the socket, performs the login handshake, and wires
// the crash/connection event listeners. The liveness probe is not
// armed for the login exchange itself.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.sock.Open(ctx); err != nil {
		return err
	}

	c.sock.OnEvent(actions.EventAppConnected, c.onAppConnected)
	c.sock.OnEvent(actions.EventAppWillTerminateWithError, c.onAppCrash)
	c.sock.OnEvent(actions.EventAppNonresponsiveDetected, c.onAppNonresponsive)

	login := actions.Login(c.cfg.SessionID)
	_, err := c.sendRaw(login)
	return err
}

func (c *Client) onAppConnected(protocol.Envelope) {
	c.mu.Lock()
	c.appConnected = true
	c.mu.Unlock()
}

type crashParams struct {
	Message string `json:"message"`
}

func (c *Client) onAppCrash(env protocol.Envelope) {
	var p crashParams
	if len(env.Params) > 0 {
		_ = json.Unmarshal(env.Params, &p)
	}
	c.mu.Lock()
	c.appCrashing = true
	c.pendingCrash = rpcerr.NewAppCrashError(p.Message)
	c.mu.Unlock()
}

func (c *Client) onAppNonresponsive(env protocol.Envelope) {
	c.mu.Lock()
	cb := c.nonresponsiveListener
	c.mu.Unlock()
	if cb != nil {
		cb(env.Params)
	}
}

// SetNonresponsivenessListener registers cb to be invoked with an
// AppNonresponsiveDetected event's params.
func (c *Client) SetNonresponsivenessListener(cb func(json.RawMessage)) {
	c.mu.Lock()
	c.nonresponsiveListener = cb
	c.mu.Unlock()
}

// GetPendingCrashAndReset returns and clears any stored crash error.
func (c *Client) GetPendingCrashAndReset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.pendingCrash
	c.pendingCrash = nil
	return err
}

// sendRaw writes action and waits for its matching response, without
// touching the liveness probe. Used for the login handshake, which is
// explicitly excluded from probe scheduling.
func (c *Client) sendRaw(action actions.Action) (protocol.Envelope, error) {
	_, ch := c.sock.Send(action.RequestType, action.Params)
	res := <-ch
	if res.Err != nil {
		return protocol.Envelope{}, res.Err
	}
	if res.Env.IsError() {
		detail, derr := res.Env.DecodeError()
		if derr != nil {
			return protocol.Envelope{}, derr
		}
		return protocol.Envelope{}, rpcerr.NewServerError(detail)
	}
	if !action.IsExpected(res.Env.Type) {
		return protocol.Envelope{}, rpcerr.NewUnexpectedResponseError(action.ExpectedTypes, res.Env.Type)
	}
	return res.Env, nil
}

// sendAction is the general action-dispatch path: it requires an
// established connection, arms/disarms the liveness probe around
// every non-probe action, and enforces the single-outstanding-probe
// invariant for currentStatus itself.
func (c *Client) sendAction(action actions.Action) (interface{}, error) {
	if !c.IsConnected() {
		return nil, rpcerr.NewClosedSocketError()
	}

	isProbe := action.RequestType == actions.TypeCurrentStatus
	if isProbe {
		c.mu.Lock()
		if c.currentStatusInFlight {
			c.mu.Unlock()
			return nil, rpcerr.NewDomainError("currentStatus request already in flight")
		}
		c.currentStatusInFlight = true
		c.mu.Unlock()
	} else if c.cfg.ProbeEnabled() {
		c.armProbe()
	}

	env, err := c.sendRaw(action)

	if isProbe {
		c.mu.Lock()
		c.currentStatusInFlight = false
		c.mu.Unlock()
	} else {
		c.disarmProbe()
	}

	if err != nil {
		return nil, err
	}
	if action.Handle != nil {
		return action.Handle(env)
	}
	return env.Params, nil
}

// DumpPendingRequests logs a warning summarising outstanding requests
// and resets the in-flight table, unless every outstanding request is
// a currentStatus probe. testName, if non-empty, is included in the
// log line.
func (c *Client) DumpPendingRequests(testName string) {
	types := c.sock.PendingRequestTypes()
	if len(types) == 0 {
		return
	}
	onlyProbes := true
	for _, t := range types {
		if t != actions.TypeCurrentStatus {
			onlyProbes = false
			break
		}
	}
	if onlyProbes {
		return
	}
	snap, diagErr := diagnostics.Capture()
	if testName != "" {
		c.log.Warnf("dumping %d pending request(s) for test %q: %v", len(types), testName, types)
	} else {
		c.log.Warnf("dumping %d pending request(s): %v", len(types), types)
	}
	if diagErr == nil {
		c.log.Warnf("host snapshot at dump time: %s", snap.String())
	} else {
		c.log.Debugf("host snapshot unavailable: %v", diagErr)
	}
	c.sock.ResetInFlightPromises()
}

// Cleanup cancels any pending probe timer, sends the terminal cleanup
// action if the client is connected and the app has not crashed, and
// closes the socket. permanent is forwarded to the app so it can tell
// a runner shutdown from an inter-test teardown. A never-connected or
// crashed client resolves immediately without sending or closing.
func (c *Client) Cleanup(permanent bool) error {
	c.disarmProbe()

	c.mu.Lock()
	crashing := c.appCrashing
	c.mu.Unlock()
	if !c.IsConnected() || crashing {
		return nil
	}

	if _, err := c.sendAction(actions.Cleanup(permanent)); err != nil {
		return err
	}
	return c.sock.Close()
}
