// Package socket implements the Async Message Socket: it assigns
// outgoing message IDs, tracks in-flight requests keyed by ID, parses
// inbound frames, and routes each either to the pending request it
// answers or to registered event listeners.
package socket

import (
	"context"
	"sync"

	"testerpc/events"
	"testerpc/logging"
	"testerpc/protocol"
	"testerpc/rpcerr"
	"testerpc/transport"
)

// Result is delivered at most once for every Send call: either Env is
// set (a matching response arrived) or Err is set (the socket was not
// open, the request was rejected by RejectAll or by an asynchronous
// transport error, or the send or encode failed). A request dropped by
// ResetInFlightPromises receives no Result.
type Result struct {
	Env protocol.Envelope
	Err error
}

// pending is one in-flight request's bookkeeping.
type pending struct {
	ch      chan Result
	reqType string
}

// Socket wraps a transport, assigning IDs and correlating responses.
type Socket struct {
	mu        sync.Mutex
	transport transport.Transport
	ids       *protocol.IDAllocator
	inFlight  map[int64]*pending
	bus       *events.Bus
	log       *logging.Logger
	closing   bool
}

// New wraps t. The socket registers its own OnMessage/OnError handlers
// on t; callers must not register competing ones.
func New(t transport.Transport, bus *events.Bus, log *logging.Logger) *Socket {
	s := &Socket{
		transport: t,
		ids:       protocol.NewIDAllocator(),
		inFlight:  make(map[int64]*pending),
		bus:       bus,
		log:       log,
	}
	t.OnMessage(s.onMessage)
	t.OnError(s.onError)
	return s
}

// Open establishes the transport.
func (s *Socket) Open(ctx context.Context) error {
	if err := s.transport.Open(ctx); err != nil {
		return rpcerr.NewConnectionError(err)
	}
	return nil
}

// Close closes the transport. Idempotent. The read-loop error that a
// transport's own Close typically surfaces on itself (a "use of closed
// connection" style error from the in-flight read) is not a genuine
// transport failure and must not reject unrelated in-flight requests,
// so onError is suppressed from the first Close onward.
func (s *Socket) Close() error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	return s.transport.Close()
}

// IsOpen reflects the transport's open/closed state.
func (s *Socket) IsOpen() bool {
	return s.transport.IsOpen()
}

// Send assigns a message ID from the socket's counter, records a
// pending-request entry keyed by that ID, serialises the envelope, and
// writes it. The returned channel receives at most one Result (none if
// the entry is dropped by ResetInFlightPromises). Send
// fails synchronously with ClosedSocketError if the transport is not
// open.
func (s *Socket) Send(envType string, params []byte) (id int64, resultCh <-chan Result) {
	ch := make(chan Result, 1)
	if !s.transport.IsOpen() {
		id = -1
		ch <- Result{Err: rpcerr.NewClosedSocketError()}
		return id, ch
	}
	id = s.ids.Next()
	p := &pending{ch: ch, reqType: envType}
	s.mu.Lock()
	s.inFlight[id] = p
	s.mu.Unlock()

	env := protocol.Envelope{Type: envType, Params: params, MessageID: id}
	data, err := protocol.Encode(env)
	if err != nil {
		s.removePending(id)
		ch <- Result{Err: err}
		return id, ch
	}
	if err := s.transport.Send(data); err != nil {
		s.removePending(id)
		ch <- Result{Err: err}
		return id, ch
	}
	return id, ch
}

// OnEvent registers cb for eventType, appended to the ordered listener
// list.
func (s *Socket) OnEvent(eventType string, cb events.Listener) {
	s.bus.On(eventType, cb)
}

// ResetInFlightPromises drops the in-flight table without resolving or
// rejecting any entry.
func (s *Socket) ResetInFlightPromises() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = make(map[int64]*pending)
}

// RejectAll drains the in-flight table, rejecting every entry with err.
func (s *Socket) RejectAll(err error) {
	s.mu.Lock()
	entries := s.inFlight
	s.inFlight = make(map[int64]*pending)
	s.mu.Unlock()
	for _, p := range entries {
		p.ch <- Result{Err: err}
	}
}

// PendingIDs returns the message IDs currently in flight.
func (s *Socket) PendingIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.inFlight))
	for id := range s.inFlight {
		ids = append(ids, id)
	}
	return ids
}

// PendingRequestTypes returns the request type each currently
// in-flight message ID was sent with.
func (s *Socket) PendingRequestTypes() map[int64]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make(map[int64]string, len(s.inFlight))
	for id, p := range s.inFlight {
		types[id] = p.reqType
	}
	return types
}

func (s *Socket) removePending(id int64) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

func (s *Socket) takePending(id int64) (*pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.inFlight[id]
	if ok {
		delete(s.inFlight, id)
	}
	return p, ok
}

func (s *Socket) onMessage(raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		s.log.Debugf("dropping unparsable frame: %v", err)
		return
	}
	if p, ok := s.takePending(env.MessageID); ok {
		p.ch <- Result{Env: env}
		return
	}
	if s.bus.HasListeners(env.Type) {
		s.bus.Emit(env.Type, env)
		return
	}
	s.log.Debugf("dropping unmatched frame type=%s messageId=%d", env.Type, env.MessageID)
}

func (s *Socket) onError(err error) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		s.log.Debugf("ignoring transport error during intentional close: %v", err)
		return
	}
	entries := s.inFlight
	hadInFlight := len(entries) > 0
	s.inFlight = make(map[int64]*pending)
	s.mu.Unlock()
	if !hadInFlight {
		s.log.Debugf("transport error with no in-flight requests: %v", err)
		return
	}
	wrapped := rpcerr.NewTransportError(err)
	for _, p := range entries {
		p.ch <- Result{Err: wrapped}
	}
}
