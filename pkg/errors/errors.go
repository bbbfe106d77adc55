// Package errors provides structured error reporting for the native UI bridge.
//
// Nothing in the bridge is fatal: failures are reported to the web layer as
// ordinary reply values and, in parallel, to the process-wide [ErrorHandler]
// registered here so they end up in the logs.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindNative indicates a failure returned by the native widget API.
	KindNative
	// KindParsing indicates a malformed inbound message or event payload.
	KindParsing
	// KindScript indicates a failure evaluating script in the web layer.
	KindScript
	// KindResource indicates a failed image or file load.
	KindResource
	// KindChannel indicates a platform channel or native bridge error.
	KindChannel
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindInit indicates an initialization error.
	KindInit
)

func (k ErrorKind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindParsing:
		return "parsing"
	case KindScript:
		return "script"
	case KindResource:
		return "resource"
	case KindChannel:
		return "channel"
	case KindPanic:
		return "panic"
	case KindInit:
		return "init"
	default:
		return "unknown"
	}
}

// BridgeError represents a structured error raised while bridging messages.
type BridgeError struct {
	// Op is the operation that failed (e.g., "bridge.Router.Route").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Namespace is the message namespace (NativeUI, Resource), if applicable.
	Namespace string
	// Action is the message action, if applicable.
	Action string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *BridgeError) Error() string {
	scope := ""
	if e.Namespace != "" {
		scope += " namespace=" + e.Namespace
	}
	if e.Action != "" {
		scope += " action=" + e.Action
	}
	return fmt.Sprintf("%s [%s]%s: %v", e.Op, e.Kind, scope, e.Err)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "bridge.Router.Route").
	Op string
	// Namespace and Action identify the message being handled, if any.
	Namespace string
	Action    string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("panic: %v", e.Value)
	}
	if e.Action != "" {
		return fmt.Sprintf("panic in %s (%s/%s): %v", e.Op, e.Namespace, e.Action, e.Value)
	}
	return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
}

// ParseError represents a failure to parse a message or event payload.
type ParseError struct {
	// Source names where the data came from (a channel or "message").
	Source string
	// DataType is the expected type name.
	DataType string
	// Got is the actual data received.
	Got any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from %s: got %T", e.DataType, e.Source, e.Got)
}

// ErrorHandler receives errors reported by the bridge.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *BridgeError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
