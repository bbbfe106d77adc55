// Package platform provides platform channel communication between Go and native code.
// The native widget API can live on the far side of a channel: Go invokes named
// methods on it and receives widget events back as an event stream.
package platform

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// MessageCodec encodes and decodes messages for platform channel communication.
type MessageCodec interface {
	// Encode converts a Go value to bytes for transmission to native code.
	Encode(value any) ([]byte, error)

	// Decode converts bytes received from native code to a Go value.
	Decode(data []byte) (any, error)
}

// JsonCodec implements MessageCodec using JSON encoding.
// JSON prioritizes interoperability and minimal native dependencies.
type JsonCodec struct{}

// Encode serializes the value to JSON bytes.
func (c JsonCodec) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

// Decode deserializes JSON bytes to a Go value.
func (c JsonCodec) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("platform: failed to create CBOR enc mode: %v", err))
	}
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("platform: failed to create CBOR dec mode: %v", err))
	}
	cborEncMode = em
	cborDecMode = dm
}

// CborCodec implements MessageCodec using canonical CBOR encoding.
// It is the compact option for native bridges that already speak CBOR.
type CborCodec struct{}

// Encode serializes the value to CBOR bytes.
func (c CborCodec) Encode(value any) ([]byte, error) {
	return cborEncMode.Marshal(value)
}

// Decode deserializes CBOR bytes to a Go value. Maps decode as map[string]any.
func (c CborCodec) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var result any
	if err := cborDecMode.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("platform: unmarshal cbor: %w", err)
	}
	return result, nil
}

// CodecByName returns the codec registered under name ("json" or "cbor").
// An empty name selects the default codec.
func CodecByName(name string) (MessageCodec, error) {
	switch name {
	case "", "json":
		return JsonCodec{}, nil
	case "cbor":
		return CborCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// DefaultCodec is the codec used by platform channels.
var DefaultCodec MessageCodec = JsonCodec{}

// Standard errors for platform channel operations.
var (
	// ErrChannelNotFound indicates the requested platform channel does not exist.
	ErrChannelNotFound = errors.New("platform channel not found")

	// ErrMethodNotFound indicates the method is not implemented on the native side.
	ErrMethodNotFound = errors.New("method not implemented")

	// ErrInvalidArguments indicates the arguments passed to the method were invalid.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrPlatformUnavailable indicates no native bridge has been installed.
	ErrPlatformUnavailable = errors.New("platform feature unavailable")

	// ErrClosed is returned by services used after Close.
	ErrClosed = errors.New("platform: service closed")
)

// ChannelError represents an error returned from native code.
type ChannelError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *ChannelError) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

// NewChannelError creates a new ChannelError with the given code and message.
func NewChannelError(code, message string) *ChannelError {
	return &ChannelError{Code: code, Message: message}
}
