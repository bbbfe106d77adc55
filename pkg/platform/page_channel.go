package platform

import (
	"fmt"
	"sync/atomic"

	"github.com/go-drift/nativeui/pkg/errors"
)

// PageChannelName is the channel between Go and a native web view page.
const PageChannelName = "nativeui/page"

// Page channel methods.
const (
	pageMethodSend   = "send"
	pageMethodCallJS = "callJS"
)

// PageChannel connects a page running in a native web view to the bridge.
//
// The native side calls "send" with one page message, either the raw text
// or the message object. Go answers by invoking "callJS" with
// {"script": ...} for every reply, so a PageChannel is the page's
// ScriptRunner.
type PageChannel struct {
	channel *MethodChannel
	closed  atomic.Bool
}

// NewPageChannel registers the page channel. deliver receives each message
// on the native caller's goroutine and must not block.
func NewPageChannel(codec MessageCodec, deliver func(raw []byte)) *PageChannel {
	p := &PageChannel{channel: NewMethodChannelWithCodec(PageChannelName, codec)}
	p.channel.SetHandler(func(method string, args any) (any, error) {
		if method != pageMethodSend {
			return nil, ErrMethodNotFound
		}
		raw, err := pageMessage(args)
		if err != nil {
			return nil, err
		}
		deliver(raw)
		return nil, nil
	})
	return p
}

// pageMessage turns send's argument back into message text. A message
// object is re-encoded as JSON.
func pageMessage(args any) ([]byte, error) {
	switch v := args.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	}
	if m := parseMap(args); m != nil {
		return JsonCodec{}.Encode(m)
	}
	return nil, fmt.Errorf("%w: send wants a message, got %T", ErrInvalidArguments, args)
}

// CallJS evaluates script in the native page. Failures are reported and
// otherwise ignored.
func (p *PageChannel) CallJS(script string) {
	if p.closed.Load() {
		return
	}
	if _, err := p.channel.Invoke(pageMethodCallJS, map[string]any{"script": script}); err != nil {
		errors.Report(&errors.BridgeError{
			Op:        "platform.PageChannel.CallJS",
			Kind:      errors.KindChannel,
			Namespace: PageChannelName,
			Action:    pageMethodCallJS,
			Err:       err,
		})
	}
}

// Close stops accepting messages and drops later replies.
func (p *PageChannel) Close() {
	p.closed.Store(true)
	p.channel.SetHandler(nil)
}
