// Package script runs the application's JavaScript in a headless goja
// runtime that stands in for the hidden web view.
//
// The runtime provides the web-side half of the bridge: the half-duplex
// message queue (bridge.messagehandler), the NativeUI widget wrappers and
// callback tables, and bridge.ResourceHandler. Messages sent from
// JavaScript land in the host's inbox; the application loop drains it and
// answers through CallJS.
package script

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/go-drift/nativeui/pkg/errors"
	"github.com/go-drift/nativeui/pkg/widget"
)

//go:embed js/bridge.js
var bridgeJS string

//go:embed js/nativeui.js
var nativeUIJS string

// channelIDKey is the message property carrying the channel callback id.
const channelIDKey = "callbackId"

// Host owns a JavaScript VM and the inbox of messages sent from it.
//
// All methods are safe for concurrent use; calls into the VM are
// serialized.
type Host struct {
	mu        sync.Mutex
	vm        *goja.Runtime
	stringify goja.Callable
	logger    *zap.Logger
	handle    widget.Handle
	trace     func(script string)

	inboxMu sync.Mutex
	inbox   [][]byte
	ready   chan struct{}
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger used for console output and script errors.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithWidgetHandle records the native handle of the web view the host
// stands in for.
func WithWidgetHandle(handle widget.Handle) Option {
	return func(h *Host) { h.handle = handle }
}

// WithTrace calls fn with every script passed to CallJS.
func WithTrace(fn func(script string)) Option {
	return func(h *Host) { h.trace = fn }
}

// NewHost creates a VM with the bridge runtime installed.
func NewHost(opts ...Option) (*Host, error) {
	h := &Host{
		vm:     goja.New(),
		logger: zap.NewNop(),
		ready:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named("script")

	stringify, ok := goja.AssertFunction(h.vm.Get("JSON").ToObject(h.vm).Get("stringify"))
	if !ok {
		return nil, fmt.Errorf("script: JSON.stringify unavailable")
	}
	h.stringify = stringify

	if err := h.installConsole(); err != nil {
		return nil, err
	}
	if err := h.vm.Set("__nativeSend", h.nativeSend); err != nil {
		return nil, err
	}
	for _, src := range []struct{ name, code string }{
		{"bridge.js", bridgeJS},
		{"nativeui.js", nativeUIJS},
	} {
		if _, err := h.vm.RunScript(src.name, src.code); err != nil {
			return nil, &errors.BridgeError{
				Op:   "script.NewHost",
				Kind: errors.KindInit,
				Err:  fmt.Errorf("%s: %w", src.name, err),
			}
		}
	}
	return h, nil
}

func (h *Host) installConsole() error {
	console := h.vm.NewObject()
	logAt := func(level func(string, ...zap.Field)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			level(strings.Join(parts, " "), zap.String("source", "console"))
			return goja.Undefined()
		}
	}
	for name, level := range map[string]func(string, ...zap.Field){
		"log":   h.logger.Info,
		"info":  h.logger.Info,
		"debug": h.logger.Debug,
		"warn":  h.logger.Warn,
		"error": h.logger.Error,
	} {
		if err := console.Set(name, logAt(level)); err != nil {
			return err
		}
	}
	return h.vm.Set("console", console)
}

// nativeSend is the JavaScript binding __nativeSend(message). It stamps a
// channel callback id when the message has none, queues the serialized
// message, and returns the id.
func (h *Host) nativeSend(call goja.FunctionCall) goja.Value {
	obj := call.Argument(0).ToObject(h.vm)
	id := obj.Get(channelIDKey)
	if id == nil || goja.IsUndefined(id) || goja.IsNull(id) {
		id = h.vm.ToValue(uuid.NewString())
		if err := obj.Set(channelIDKey, id); err != nil {
			panic(h.vm.NewGoError(err))
		}
	}
	raw, err := h.stringify(goja.Undefined(), obj)
	if err != nil {
		panic(h.vm.NewGoError(err))
	}

	h.inboxMu.Lock()
	h.inbox = append(h.inbox, []byte(raw.String()))
	h.inboxMu.Unlock()
	select {
	case h.ready <- struct{}{}:
	default:
	}
	return id
}

// Ready receives a value after new messages are queued.
func (h *Host) Ready() <-chan struct{} {
	return h.ready
}

// Pending returns the number of queued messages.
func (h *Host) Pending() int {
	h.inboxMu.Lock()
	defer h.inboxMu.Unlock()
	return len(h.inbox)
}

// Next removes and returns the oldest queued message.
func (h *Host) Next() ([]byte, bool) {
	h.inboxMu.Lock()
	defer h.inboxMu.Unlock()
	if len(h.inbox) == 0 {
		return nil, false
	}
	msg := h.inbox[0]
	h.inbox[0] = nil
	h.inbox = h.inbox[1:]
	return msg, true
}

// WidgetHandle returns the native handle of the hidden web view.
func (h *Host) WidgetHandle() widget.Handle {
	return h.handle
}

// CallJS evaluates script. Failures are reported through errors.Report and
// never panic.
func (h *Host) CallJS(script string) {
	if h.trace != nil {
		h.trace(script)
	}
	if _, err := h.run("callJS", script); err != nil {
		errors.Report(&errors.BridgeError{
			Op:   "script.Host.CallJS",
			Kind: errors.KindScript,
			Err:  err,
		})
	}
}

// Load runs an application script.
func (h *Host) Load(name, source string) error {
	if _, err := h.run(name, source); err != nil {
		return &errors.BridgeError{
			Op:   "script.Host.Load",
			Kind: errors.KindScript,
			Err:  err,
		}
	}
	h.logger.Debug("script loaded", zap.String("name", name))
	return nil
}

// Eval evaluates expr and returns its exported value.
func (h *Host) Eval(expr string) (any, error) {
	v, err := h.run("eval", expr)
	if err != nil {
		return nil, err
	}
	return v.Export(), nil
}

func (h *Host) run(name, source string) (v goja.Value, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script %s: panic: %v", name, r)
		}
	}()
	// An interrupt spent on this script must not stop the next one.
	defer h.vm.ClearInterrupt()
	return h.vm.RunScript(name, source)
}

// Interrupt stops the script currently running with a *goja.InterruptedError
// carrying reason. When nothing is running, the next script is stopped as
// soon as it starts.
func (h *Host) Interrupt(reason string) {
	h.vm.Interrupt(reason)
}

// ClearInterrupt drops an Interrupt that has not stopped a script yet.
func (h *Host) ClearInterrupt() {
	h.vm.ClearInterrupt()
}
