package platform

import (
	"fmt"
	"sync/atomic"

	"github.com/go-drift/nativeui/pkg/errors"
	"github.com/go-drift/nativeui/pkg/widget"
)

// Channel names used by the native widget service.
const (
	WidgetChannelName      = "nativeui/widgets"
	WidgetEventChannelName = "nativeui/widget_events"
)

// NativeWidgets forwards widget operations to the native UI subsystem over a
// method channel and delivers native widget events from an event channel.
//
// Every operation is a synchronous Invoke. A channel failure is reported
// through errors.Report and surfaces to callers as [widget.ResError], so the
// web layer still receives an ordinary error reply.
//
// Native replies are either a bare integer result, or a map with a "result"
// entry plus "handle" (create) or "value" (getProperty).
type NativeWidgets struct {
	channel *MethodChannel
	events  *Stream[widget.Event]
	closed  atomic.Bool
}

// NewNativeWidgets creates the native widget service using codec for both
// channels. A nil codec selects DefaultCodec.
func NewNativeWidgets(codec MessageCodec) *NativeWidgets {
	events := NewEventChannelWithCodec(WidgetEventChannelName, codec)
	return &NativeWidgets{
		channel: NewMethodChannelWithCodec(WidgetChannelName, codec),
		events:  NewStream(WidgetEventChannelName, events, parseWidgetEvent),
	}
}

// Close marks the service closed; later calls fail with ResError.
func (w *NativeWidgets) Close() {
	w.closed.Store(true)
}

// invoke calls method and returns the decoded reply, or ResError.
func (w *NativeWidgets) invoke(method string, args map[string]any) (map[string]any, int) {
	if w.closed.Load() {
		w.report(method, ErrClosed)
		return nil, widget.ResError
	}
	reply, err := w.channel.Invoke(method, args)
	if err != nil {
		w.report(method, err)
		return nil, widget.ResError
	}
	if n, ok := toInt64(reply); ok {
		return map[string]any{"result": n}, int(n)
	}
	m := parseMap(reply)
	if m == nil {
		w.report(method, fmt.Errorf("%w: reply %T", ErrInvalidArguments, reply))
		return nil, widget.ResError
	}
	n, ok := toInt64(m["result"])
	if !ok {
		w.report(method, fmt.Errorf("%w: missing result", ErrInvalidArguments))
		return nil, widget.ResError
	}
	return m, int(n)
}

func (w *NativeWidgets) report(method string, err error) {
	errors.Report(&errors.BridgeError{
		Op:        "platform.NativeWidgets." + method,
		Kind:      errors.KindChannel,
		Namespace: WidgetChannelName,
		Action:    method,
		Err:       err,
	})
}

func (w *NativeWidgets) call(method string, args map[string]any) int {
	_, res := w.invoke(method, args)
	return res
}

// Create creates a widget on the native side.
func (w *NativeWidgets) Create(widgetType string) widget.Handle {
	m, res := w.invoke("create", map[string]any{"widgetType": widgetType})
	if res < 0 || m == nil {
		return widget.Handle(res)
	}
	if h, ok := toInt32(m["handle"]); ok {
		return widget.Handle(h)
	}
	return widget.Handle(res)
}

// Destroy destroys a native widget.
func (w *NativeWidgets) Destroy(h widget.Handle) int {
	return w.call("destroy", map[string]any{"widget": int32(h)})
}

// AddChild appends child to parent.
func (w *NativeWidgets) AddChild(parent, child widget.Handle) int {
	return w.call("addChild", map[string]any{"parent": int32(parent), "child": int32(child)})
}

// InsertChild inserts child into parent at index.
func (w *NativeWidgets) InsertChild(parent, child widget.Handle, index int) int {
	return w.call("insertChild", map[string]any{
		"parent": int32(parent),
		"child":  int32(child),
		"index":  index,
	})
}

// RemoveChild detaches child from its parent.
func (w *NativeWidgets) RemoveChild(child widget.Handle) int {
	return w.call("removeChild", map[string]any{"child": int32(child)})
}

// ModalDialogShow shows a modal dialog.
func (w *NativeWidgets) ModalDialogShow(dialog widget.Handle) int {
	return w.call("modalDialogShow", map[string]any{"dialog": int32(dialog)})
}

// ModalDialogHide hides a modal dialog.
func (w *NativeWidgets) ModalDialogHide(dialog widget.Handle) int {
	return w.call("modalDialogHide", map[string]any{"dialog": int32(dialog)})
}

// ScreenShow shows a screen.
func (w *NativeWidgets) ScreenShow(screen widget.Handle) int {
	return w.call("screenShow", map[string]any{"screen": int32(screen)})
}

// StackScreenPush pushes screen onto stack.
func (w *NativeWidgets) StackScreenPush(stack, screen widget.Handle) int {
	return w.call("stackScreenPush", map[string]any{"stack": int32(stack), "screen": int32(screen)})
}

// StackScreenPop pops the top screen of stack.
func (w *NativeWidgets) StackScreenPop(stack widget.Handle) int {
	return w.call("stackScreenPop", map[string]any{"stack": int32(stack)})
}

// SetProperty sets a widget property.
func (w *NativeWidgets) SetProperty(h widget.Handle, name, value string) int {
	return w.call("setProperty", map[string]any{
		"widget":   int32(h),
		"property": name,
		"value":    value,
	})
}

// GetProperty reads a widget property. The native side returns the full
// value; there is no fixed-size buffer on this path.
func (w *NativeWidgets) GetProperty(h widget.Handle, name string) (string, int) {
	m, res := w.invoke("getProperty", map[string]any{
		"widget":   int32(h),
		"property": name,
	})
	if res < 0 || m == nil {
		return "", res
	}
	return parseString(m["value"]), res
}

// Subscribe delivers native widget events to fn. Delivery is posted to the
// event loop with DispatchOrRun.
func (w *NativeWidgets) Subscribe(fn func(widget.Event)) (cancel func()) {
	return w.events.Listen(func(ev widget.Event) {
		DispatchOrRun(func() { fn(ev) })
	})
}

// parseWidgetEvent decodes {"handle", "eventType", "param1".."param3"}.
func parseWidgetEvent(data any) (widget.Event, error) {
	m := parseMap(data)
	if m == nil {
		return widget.Event{}, &errors.ParseError{Source: WidgetEventChannelName, DataType: "widget.Event", Got: data}
	}
	h, ok := toInt32(m["handle"])
	if !ok {
		return widget.Event{}, &errors.ParseError{Source: WidgetEventChannelName, DataType: "widget.Handle", Got: m["handle"]}
	}
	kind, ok := toInt64(m["eventType"])
	if !ok {
		return widget.Event{}, &errors.ParseError{Source: WidgetEventChannelName, DataType: "widget.EventKind", Got: m["eventType"]}
	}
	p1, _ := toInt64(m["param1"])
	p2, _ := toInt64(m["param2"])
	p3, _ := toInt64(m["param3"])
	return widget.Event{
		Handle: widget.Handle(h),
		Kind:   widget.EventKind(kind),
		Param1: int(p1),
		Param2: int(p2),
		Param3: int(p3),
	}, nil
}

var (
	_ widget.API         = (*NativeWidgets)(nil)
	_ widget.EventSource = (*NativeWidgets)(nil)
)
