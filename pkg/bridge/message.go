// Package bridge routes messages from the hidden web layer to native widget
// calls and translates native widget events back into JavaScript calls.
//
// A message arrives as raw bytes, is parsed into a [Message], and handed to a
// [Router]. The router forwards NativeUI messages to a [Dispatcher] and
// Resource messages to a [ResourceHandler], then acknowledges the message so
// the web layer can send the next one. Native events flow the other way
// through an [EventTranslator]. Every reply is a JavaScript statement written
// to a [ScriptRunner].
package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Well-known message parameters.
const (
	ParamMessageName = "messageName"
	ParamAction      = "action"
	ParamCallbackID  = "NativeUICallbackID"
	ParamChannelID   = "callbackId"
)

// Message is an ordered, immutable set of named string parameters carried by
// one inbound call from the web layer.
type Message struct {
	keys   []string
	params map[string]string
}

// NewMessage builds a message from alternating key/value pairs. A trailing
// key without a value is given the empty string.
func NewMessage(kv ...string) Message {
	m := Message{params: make(map[string]string, (len(kv)+1)/2)}
	for i := 0; i < len(kv); i += 2 {
		value := ""
		if i+1 < len(kv) {
			value = kv[i+1]
		}
		m.set(kv[i], value)
	}
	return m
}

func (m *Message) set(key, value string) {
	if _, ok := m.params[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.params[key] = value
}

// Param returns the named parameter, or "" when absent.
func (m Message) Param(name string) string {
	return m.params[name]
}

// Lookup returns the named parameter and whether it is present.
func (m Message) Lookup(name string) (string, bool) {
	v, ok := m.params[name]
	return v, ok
}

// Keys returns parameter names in order of first appearance.
func (m Message) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of parameters.
func (m Message) Len() int {
	return len(m.keys)
}

// Name returns the namespace discriminator.
func (m Message) Name() string { return m.params[ParamMessageName] }

// Action returns the requested operation.
func (m Message) Action() string { return m.params[ParamAction] }

// CallbackID returns the id correlating the reply with the caller.
func (m Message) CallbackID() string { return m.params[ParamCallbackID] }

// ChannelID returns the message's own channel callback id, if any.
func (m Message) ChannelID() (string, bool) {
	return m.Lookup(ParamChannelID)
}

// String renders the message in query form for logs.
func (m Message) String() string {
	var sb strings.Builder
	sb.WriteString(m.Name())
	sb.WriteByte('?')
	first := true
	for _, k := range m.keys {
		if k == ParamMessageName {
			continue
		}
		if !first {
			sb.WriteByte('&')
		}
		first = false
		sb.WriteString(url.QueryEscape(k))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(m.params[k]))
	}
	return sb.String()
}

// ParseMessage decodes a raw message from the web layer.
//
// Two encodings are accepted. A JSON object such as
//
//	{"messageName":"NativeUI","action":"maWidgetCreate","widgetType":"Label"}
//
// and the URL form
//
//	NativeUI?action=maWidgetCreate&widgetType=Label
//
// where the part before '?' names the namespace. A bare word such as "close"
// is a message with only a namespace. JSON numbers and booleans are kept in
// their text form and null becomes "". Nested objects and arrays are rejected.
func ParseMessage(raw []byte) (Message, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Message{}, fmt.Errorf("bridge: empty message")
	}
	if trimmed[0] == '{' {
		return parseJSONMessage(trimmed)
	}
	return parseQueryMessage(string(trimmed))
}

func parseJSONMessage(raw []byte) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil {
		return Message{}, fmt.Errorf("bridge: parse message: %w", err)
	}
	m := Message{params: make(map[string]string)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Message{}, fmt.Errorf("bridge: parse message: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return Message{}, fmt.Errorf("bridge: parse message: unexpected key %v", tok)
		}
		tok, err = dec.Token()
		if err != nil {
			return Message{}, fmt.Errorf("bridge: parse message %q: %w", key, err)
		}
		var value string
		switch v := tok.(type) {
		case string:
			value = v
		case json.Number:
			value = v.String()
		case bool:
			if v {
				value = "true"
			} else {
				value = "false"
			}
		case nil:
			value = ""
		default:
			return Message{}, fmt.Errorf("bridge: parse message: parameter %q is not a scalar", key)
		}
		m.set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return Message{}, fmt.Errorf("bridge: parse message: %w", err)
	}
	if dec.More() {
		return Message{}, fmt.Errorf("bridge: parse message: trailing data")
	}
	return m, nil
}

func parseQueryMessage(raw string) (Message, error) {
	name, query, _ := strings.Cut(raw, "?")
	m := Message{params: make(map[string]string)}
	if name != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			return Message{}, fmt.Errorf("bridge: parse message name: %w", err)
		}
		m.set(ParamMessageName, unescaped)
	}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return Message{}, fmt.Errorf("bridge: parse message key %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return Message{}, fmt.Errorf("bridge: parse message value for %q: %w", key, err)
		}
		m.set(key, value)
	}
	if m.Len() == 0 {
		return Message{}, fmt.Errorf("bridge: empty message")
	}
	return m, nil
}
