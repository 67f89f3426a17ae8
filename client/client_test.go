package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"

	"testerpc/actions"
	"testerpc/logging"
	"testerpc/protocol"
	"testerpc/rpcerr"
	"testerpc/session"
)

// fakeTransport is an in-memory transport.Transport double, grounded on
// the one used to exercise the socket package: writes are recorded for
// assertion, injectMessage/injectError feed frames back the way a real
// read loop would.
type fakeTransport struct {
	mu      sync.Mutex
	open    bool
	writes  []protocol.Envelope
	onMsg   func([]byte)
	onErr   func(error)
	onClose func(error)
	sendErr func(protocol.Envelope) error
}

func newFakeTransport() *fakeTransport { return &fakeTransport{} }

func (f *fakeTransport) Open(ctx context.Context) error {
	f.mu.Lock()
	f.open = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.open = false
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Send(data []byte) error {
	env, err := protocol.Decode(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		if err := f.sendErr(env); err != nil {
			return err
		}
	}
	f.writes = append(f.writes, env)
	return nil
}

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeTransport) OnMessage(cb func([]byte)) { f.onMsg = cb }
func (f *fakeTransport) OnError(cb func(error))    { f.onErr = cb }
func (f *fakeTransport) OnClose(cb func(error))    { f.onClose = cb }

func (f *fakeTransport) injectMessage(env protocol.Envelope) {
	data, _ := protocol.Encode(env)
	f.onMsg(data)
}

func (f *fakeTransport) injectError(err error) {
	f.onErr(err)
}

func (f *fakeTransport) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeTransport) writeAt(i int) protocol.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[i]
}

func waitForWrites(t *testing.T, ft *fakeTransport, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ft.writeCount() >= n {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d write(s), got %d", n, ft.writeCount())
}

func newTestClient(debugSync time.Duration) (*Client, *fakeTransport, *testclock.Clock) {
	ft := newFakeTransport()
	clk := testclock.NewClock(time.Unix(0, 0))
	cfg := session.Config{Server: "ws://example.invalid", SessionID: "s1", DebugSynchronization: debugSync}
	c := New(cfg, ft, clk, logging.New(nil, "[test]", false))
	return c, ft, clk
}

// connectClient drives a full connect(): login handshake plus the
// server's appConnected notification, leaving c.IsConnected() true.
func connectClient(t *testing.T, c *Client, ft *fakeTransport) {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- c.Connect(context.Background()) }()
	waitForWrites(t, ft, 1)
	login := ft.writeAt(0)
	if login.Type != actions.TypeLogin {
		t.Fatalf("expected first write to be login, got %q", login.Type)
	}
	ft.injectMessage(protocol.Envelope{Type: actions.RespLoginSuccess, MessageID: login.MessageID})
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("connect failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for connect")
	}
	ft.injectMessage(protocol.Envelope{Type: actions.EventAppConnected, MessageID: -1})
	if !c.IsConnected() {
		t.Fatal("expected client connected after appConnected event")
	}
}

func TestConnectSendsLoginWithSessionIDAndNoProbe(t *testing.T) {
	c, ft, clk := newTestClient(10 * time.Second)
	connectClient(t, c, ft)

	var params struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(ft.writeAt(0).Params, &params); err != nil {
		t.Fatalf("bad login params: %v", err)
	}
	if params.SessionID != "s1" {
		t.Fatalf("expected sessionId s1, got %q", params.SessionID)
	}

	// Advancing the clock must not produce any further writes: the
	// login exchange never arms the probe.
	clk.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if ft.writeCount() != 1 {
		t.Fatalf("expected exactly 1 write after login, got %d", ft.writeCount())
	}
}

func TestSlowResponseArmsProbeThenRearmsOnProbeReply(t *testing.T) {
	c, ft, clk := newTestClient(10 * time.Second)
	connectClient(t, c, ft)

	resultCh := make(chan error, 1)
	go func() { resultCh <- c.WaitUntilReady() }()
	waitForWrites(t, ft, 2)
	if ft.writeAt(1).Type != actions.TypeIsReady {
		t.Fatalf("expected isReady write, got %q", ft.writeAt(1).Type)
	}

	clk.Advance(10 * time.Second)
	waitForWrites(t, ft, 3)
	probe := ft.writeAt(2)
	if probe.Type != actions.TypeCurrentStatus {
		t.Fatalf("expected currentStatus probe, got %q", probe.Type)
	}

	// S3: the probe answer re-arms the timer instead of resolving the
	// original request.
	ft.injectMessage(protocol.Envelope{Type: actions.RespCurrentStatusResult, MessageID: probe.MessageID})
	// The re-arm happens on the probe goroutine once it sees the reply,
	// so wait for exactly one pending timer before advancing.
	if err := clk.WaitAdvance(10*time.Second, time.Second, 1); err != nil {
		t.Fatalf("expected the probe timer to be re-armed: %v", err)
	}
	waitForWrites(t, ft, 4)
	if ft.writeAt(3).Type != actions.TypeCurrentStatus {
		t.Fatalf("expected a second currentStatus probe after re-arm, got %q", ft.writeAt(3).Type)
	}

	// Finally resolve the original action so the goroutine exits clean.
	ready := ft.writeAt(1)
	ft.injectMessage(protocol.Envelope{Type: actions.RespReady, MessageID: ready.MessageID})
	select {
	case err := <-resultCh:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for WaitUntilReady to resolve")
	}
}

func TestResponseCancelsProbeTimer(t *testing.T) {
	c, ft, clk := newTestClient(10 * time.Second)
	connectClient(t, c, ft)

	resultCh := make(chan error, 1)
	go func() { resultCh <- c.WaitUntilReady() }()
	waitForWrites(t, ft, 2)

	ready := ft.writeAt(1)
	ft.injectMessage(protocol.Envelope{Type: actions.RespReady, MessageID: ready.MessageID})
	select {
	case err := <-resultCh:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}

	clk.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if ft.writeCount() != 2 {
		t.Fatalf("expected no probe after the action resolved, got %d writes", ft.writeCount())
	}
}

func TestSynchronousSendFailureCancelsTimer(t *testing.T) {
	c, ft, clk := newTestClient(10 * time.Second)
	connectClient(t, c, ft)

	boom := errors.New("socket error")
	ft.mu.Lock()
	ft.sendErr = func(env protocol.Envelope) error {
		if env.Type == actions.TypeShakeDevice {
			return boom
		}
		return nil
	}
	ft.mu.Unlock()

	err := c.Shake()
	if err == nil {
		t.Fatal("expected an error from Shake")
	}

	clk.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if ft.writeCount() != 1 {
		t.Fatalf("expected no probe after synchronous send failure, got %d writes", ft.writeCount())
	}
}

func TestAsyncTransportErrorRejectsInFlightActionAndCancelsTimer(t *testing.T) {
	c, ft, clk := newTestClient(10 * time.Second)
	connectClient(t, c, ft)

	resultCh := make(chan error, 1)
	go func() { resultCh <- c.WaitUntilReady() }()
	waitForWrites(t, ft, 2)

	boom := errors.New("connection reset")
	ft.injectError(boom)

	select {
	case err := <-resultCh:
		var transportErr *rpcerr.TransportError
		if !errors.As(err, &transportErr) {
			t.Fatalf("expected TransportError, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for WaitUntilReady to reject")
	}

	clk.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if ft.writeCount() != 2 {
		t.Fatalf("expected no probe after the async transport error, got %d writes", ft.writeCount())
	}
}

func TestCaptureViewHierarchyErrorBecomesDomainError(t *testing.T) {
	c, ft, _ := newTestClient(0)
	connectClient(t, c, ft)

	resultCh := make(chan error, 1)
	go func() {
		_, err := c.CaptureViewHierarchy(nil)
		resultCh <- err
	}()
	waitForWrites(t, ft, 2)
	req := ft.writeAt(1)
	params, _ := json.Marshal(map[string]string{"captureViewHierarchyError": "Test error to check"})
	ft.injectMessage(protocol.Envelope{Type: actions.RespCaptureViewHierarchyDone, MessageID: req.MessageID, Params: params})

	select {
	case err := <-resultCh:
		var domainErr *rpcerr.DomainError
		if !errors.As(err, &domainErr) {
			t.Fatalf("expected DomainError, got %v", err)
		}
		if domainErr.Message != "Test error to check" {
			t.Fatalf("unexpected message: %q", domainErr.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestCleanupWhenNeverConnectedSkipsSend(t *testing.T) {
	c, ft, _ := newTestClient(0)
	if err := c.Cleanup(false); err != nil {
		t.Fatalf("expected cleanup to resolve cleanly, got %v", err)
	}
	if ft.writeCount() != 0 {
		t.Fatalf("expected no writes, got %d", ft.writeCount())
	}
}

func TestCleanupSuppressedAfterCrash(t *testing.T) {
	c, ft, _ := newTestClient(0)
	connectClient(t, c, ft)

	ft.injectMessage(protocol.Envelope{
		Type:      actions.EventAppWillTerminateWithError,
		MessageID: -2,
		Params:    json.RawMessage(`{"message":"native crash"}`),
	})

	if err := c.Cleanup(false); err != nil {
		t.Fatalf("expected cleanup to resolve cleanly, got %v", err)
	}
	if ft.writeCount() != 1 {
		t.Fatalf("expected only the login write, got %d", ft.writeCount())
	}

	err := c.GetPendingCrashAndReset()
	if err == nil {
		t.Fatal("expected a stored crash error")
	}
	if err.Error() == "" {
		t.Fatal("expected a non-empty crash error message")
	}
	if again := c.GetPendingCrashAndReset(); again != nil {
		t.Fatalf("expected crash error cleared after first read, got %v", again)
	}
}
