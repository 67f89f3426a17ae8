// Package wstransport is the transport.Transport implementation backed
// by a real WebSocket connection, dialed and read the way the
// teacher's websocket/connection and websocket/wclient packages do.
package wstransport

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// Connection state for the read loop.
const (
	stateIdle = iota
	stateReading
	stateStopping
	stateStopped
	stateClosing
	stateDisconnected
)

// Transport dials a single WebSocket connection and satisfies
// transport.Transport. It is not reusable after Close.
type Transport struct {
	url    string
	header map[string][]string

	mu    sync.RWMutex
	conn  *websocket.Conn
	state int

	// writeMu serializes WriteMessage calls: gorilla/websocket allows
	// at most one concurrent writer per connection, but Send is called
	// concurrently by every simultaneously in-flight action plus the
	// liveness-probe goroutine.
	writeMu sync.Mutex

	onMessage func([]byte)
	onError   func(error)
	onClose   func(error)

	closeCh chan struct{}
}

// New returns a Transport that will dial url on Open. header carries
// any extra headers (e.g. Authorization) to send with the handshake.
func New(url string, header map[string][]string) *Transport {
	return &Transport{url: url, header: header, state: stateIdle}
}

// Open dials the server and starts the read loop. ctx governs only the
// dial itself; once connected, reads run on a background goroutine
// until Close or a transport error.
func (t *Transport) Open(ctx context.Context) error {
	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, t.url, t.header)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.conn = conn
	t.closeCh = make(chan struct{})
	t.mu.Unlock()
	t.startListening()
	return nil
}

func (t *Transport) setState(s int) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *Transport) getState() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Transport) startListening() {
	if t.getState() > stateIdle {
		return
	}
	t.setState(stateReading)
	go func() {
		for t.getState() == stateReading {
			_, data, err := t.readConn()
			if err != nil {
				break
			}
			t.mu.RLock()
			cb := t.onMessage
			t.mu.RUnlock()
			if cb != nil {
				cb(data)
			}
		}
		t.setState(stateStopped)
		t.mu.Lock()
		ch := t.closeCh
		t.mu.Unlock()
		close(ch)
	}()
}

func (t *Transport) readConn() (int, []byte, error) {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.mu.RLock()
		cb := t.onError
		t.mu.RUnlock()
		if cb != nil {
			cb(err)
		}
	}
	return msgType, data, err
}

// Close closes the underlying connection and waits for the read loop
// to exit. Idempotent: closing an already-closing/closed transport is
// a no-op.
func (t *Transport) Close() error {
	if t.getState() >= stateClosing {
		return nil
	}
	t.setState(stateClosing)
	t.mu.RLock()
	conn := t.conn
	ch := t.closeCh
	t.mu.RUnlock()
	err := conn.Close()
	t.mu.RLock()
	cb := t.onClose
	t.mu.RUnlock()
	if cb != nil {
		cb(err)
	}
	<-ch
	// Set only after the read loop has exited, since its exit path
	// writes stateStopped.
	t.setState(stateDisconnected)
	return err
}

// IsOpen reports whether the read loop is active.
func (t *Transport) IsOpen() bool {
	return t.getState() == stateReading
}

// Send writes a single text frame.
func (t *Transport) Send(data []byte) error {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("wstransport: not connected")
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// OnMessage registers the inbound-frame callback.
func (t *Transport) OnMessage(cb func([]byte)) {
	t.mu.Lock()
	t.onMessage = cb
	t.mu.Unlock()
}

// OnError registers the read/write error callback.
func (t *Transport) OnError(cb func(error)) {
	t.mu.Lock()
	t.onError = cb
	t.mu.Unlock()
}

// OnClose registers the close callback.
func (t *Transport) OnClose(cb func(error)) {
	t.mu.Lock()
	t.onClose = cb
	t.mu.Unlock()
}
