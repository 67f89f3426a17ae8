// Package rpcerr holds the typed error taxonomy the RPC client raises.
package rpcerr

import (
	"fmt"

	"github.com/pkg/errors"

	"testerpc/protocol"
)

// ConnectionError wraps a transport failure that happened during open().
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %s", e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

func NewConnectionError(cause error) *ConnectionError {
	return &ConnectionError{Cause: cause}
}

// ClosedSocketError is raised synchronously when send is attempted on a
// socket that is not open.
type ClosedSocketError struct{}

func (e *ClosedSocketError) Error() string { return "socket is not open" }

func NewClosedSocketError() *ClosedSocketError { return &ClosedSocketError{} }

// TransportError wraps an asynchronous transport failure that occurred
// while requests were in flight. Wrapped with pkg/errors so the
// original stack trace/cause survives errors.Unwrap.
type TransportError struct {
	cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s", e.cause)
}

func (e *TransportError) Unwrap() error { return e.cause }

func NewTransportError(cause error) *TransportError {
	return &TransportError{cause: errors.Wrap(cause, "transport failure")}
}

// ServerError is raised when a response envelope's type is "error".
type ServerError struct {
	Detail protocol.ErrorDetail
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s", e.Detail.Message)
}

func NewServerError(detail protocol.ErrorDetail) *ServerError {
	return &ServerError{Detail: detail}
}

// UnexpectedResponseError is raised when a response's type is not one
// of the originating action's expected types.
type UnexpectedResponseError struct {
	Expected []string
	Actual   string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response type %q, expected one of %v", e.Actual, e.Expected)
}

func NewUnexpectedResponseError(expected []string, actual string) *UnexpectedResponseError {
	return &UnexpectedResponseError{Expected: expected, Actual: actual}
}

// DomainError is raised by an action's response handler for a
// domain-specific failure embedded in an otherwise well-formed
// response, e.g. captureViewHierarchyError.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// AppCrashError records the payload of an AppWillTerminateWithError
// event. It is stored, not raised, and polled via
// Client.GetPendingCrashAndReset.
type AppCrashError struct {
	Message string
}

func (e *AppCrashError) Error() string {
	return fmt.Sprintf("app crashed: %s", e.Message)
}

func NewAppCrashError(message string) *AppCrashError {
	return &AppCrashError{Message: message}
}
