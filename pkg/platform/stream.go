package platform

import "github.com/go-drift/nativeui/pkg/errors"

// Stream decodes the payloads of one EventChannel into typed values.
// Every Listen call opens its own subscription.
type Stream[T any] struct {
	channel *EventChannel
	name    string
	parse   func(data any) (T, error)
}

// NewStream wraps channel, decoding each payload with parse.
func NewStream[T any](name string, channel *EventChannel, parse func(data any) (T, error)) *Stream[T] {
	return &Stream[T]{channel: channel, name: name, parse: parse}
}

// Listen calls handler with each decoded value until unsubscribe is called.
// Undecodable payloads and native stream errors go to errors.Report and
// never reach handler.
func (s *Stream[T]) Listen(handler func(T)) (unsubscribe func()) {
	report := func(op string, kind errors.ErrorKind, err error) {
		errors.Report(&errors.BridgeError{Op: op, Kind: kind, Namespace: s.name, Err: err})
	}
	sub := s.channel.Listen(EventHandler{
		OnEvent: func(data any) {
			v, err := s.parse(data)
			if err != nil {
				report("stream.parse", errors.KindParsing, err)
				return
			}
			handler(v)
		},
		OnError: func(err error) { report("stream.error", errors.KindChannel, err) },
	})
	return sub.Cancel
}
