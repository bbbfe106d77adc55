package bridge

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/go-drift/nativeui/pkg/errors"
	"github.com/go-drift/nativeui/pkg/widget"
)

// Widget actions understood by the Dispatcher.
const (
	ActionCreate          = "maWidgetCreate"
	ActionDestroy         = "maWidgetDestroy"
	ActionAddChild        = "maWidgetAddChild"
	ActionInsertChild     = "maWidgetInsertChild"
	ActionRemoveChild     = "maWidgetRemoveChild"
	ActionModalDialogShow = "maWidgetModalDialogShow"
	ActionModalDialogHide = "maWidgetModalDialogHide"
	ActionScreenShow      = "maWidgetScreenShow"
	ActionStackScreenPush = "maWidgetStackScreenPush"
	ActionStackScreenPop  = "maWidgetStackScreenPop"
	ActionSetProperty     = "maWidgetSetProperty"
	ActionGetProperty     = "maWidgetGetProperty"
)

// replyKind selects how a native result is reported.
type replyKind int

const (
	replyCode     replyKind = iota // success payload is the result code
	replyCreate                    // createCallback with the new handle
	replyProperty                  // success payload is a string literal
)

// actionSpec describes one widget action: the handle parameters to parse,
// whether an index is expected, and the native call.
type actionSpec struct {
	handles []string
	index   bool
	reply   replyKind
	call    func(api widget.API, c *call) int
}

// call carries the parsed arguments of one dispatched message.
type call struct {
	msg     Message
	handles []widget.Handle
	index   int
	text    string
}

func (c *call) h(i int) widget.Handle { return c.handles[i] }

var actions = map[string]actionSpec{
	ActionCreate: {
		reply: replyCreate,
		call: func(api widget.API, c *call) int {
			return int(api.Create(c.msg.Param("widgetType")))
		},
	},
	ActionDestroy: {
		handles: []string{"widget"},
		call:    func(api widget.API, c *call) int { return api.Destroy(c.h(0)) },
	},
	ActionAddChild: {
		handles: []string{"parent", "child"},
		call:    func(api widget.API, c *call) int { return api.AddChild(c.h(0), c.h(1)) },
	},
	ActionInsertChild: {
		handles: []string{"parent", "child"},
		index:   true,
		call: func(api widget.API, c *call) int {
			return api.InsertChild(c.h(0), c.h(1), c.index)
		},
	},
	ActionRemoveChild: {
		handles: []string{"child"},
		call:    func(api widget.API, c *call) int { return api.RemoveChild(c.h(0)) },
	},
	ActionModalDialogShow: {
		handles: []string{"dialogHandle"},
		call:    func(api widget.API, c *call) int { return api.ModalDialogShow(c.h(0)) },
	},
	ActionModalDialogHide: {
		handles: []string{"dialogHandle"},
		call:    func(api widget.API, c *call) int { return api.ModalDialogHide(c.h(0)) },
	},
	ActionScreenShow: {
		handles: []string{"screenHandle"},
		call:    func(api widget.API, c *call) int { return api.ScreenShow(c.h(0)) },
	},
	ActionStackScreenPush: {
		handles: []string{"stackScreen", "newScreen"},
		call: func(api widget.API, c *call) int {
			return api.StackScreenPush(c.h(0), c.h(1))
		},
	},
	ActionStackScreenPop: {
		handles: []string{"stackScreen"},
		call:    func(api widget.API, c *call) int { return api.StackScreenPop(c.h(0)) },
	},
	ActionSetProperty: {
		handles: []string{"widget"},
		call: func(api widget.API, c *call) int {
			return api.SetProperty(c.h(0), c.msg.Param("property"), c.msg.Param("value"))
		},
	},
	ActionGetProperty: {
		handles: []string{"widget"},
		reply:   replyProperty,
		call: func(api widget.API, c *call) int {
			value, res := api.GetProperty(c.h(0), c.msg.Param("property"))
			c.text = value
			return res
		},
	},
}

// Actions returns the names of all supported widget actions.
func Actions() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	return names
}

// Dispatcher turns NativeUI messages into widget API calls and replies with
// NativeUI.success, NativeUI.error or NativeUI.createCallback.
type Dispatcher struct {
	api      widget.API
	out      ScriptRunner
	echoName bool
	logger   *zap.Logger
	metrics  *Metrics
}

// NewDispatcher creates a dispatcher calling api and replying to out.
func NewDispatcher(api widget.API, out ScriptRunner, opts ...Option) *Dispatcher {
	s := newSettings(opts)
	return &Dispatcher{
		api:      api,
		out:      out,
		echoName: s.echoPropertyName,
		logger:   s.logger.Named("dispatcher"),
		metrics:  s.metrics,
	}
}

// Handle implements Handler.
func (d *Dispatcher) Handle(msg Message) {
	d.Dispatch(msg)
}

// Dispatch performs the message's action and emits exactly one reply. It
// reports false, and emits nothing, when the action is not recognised.
func (d *Dispatcher) Dispatch(msg Message) bool {
	action := msg.Action()
	entry, ok := actions[action]
	if !ok {
		d.logger.Debug("unknown action", zap.String("action", action))
		d.metrics.widgetCall("unknown", "ignored")
		return false
	}
	cb := msg.CallbackID()

	c := &call{msg: msg, handles: make([]widget.Handle, len(entry.handles))}
	for i, name := range entry.handles {
		h, ok := parseHandle(msg.Param(name))
		if !ok {
			d.fail(action, cb, widget.ResInvalidHandle, zap.String("param", name), zap.String("value", msg.Param(name)))
			return true
		}
		c.handles[i] = h
	}
	if entry.index {
		idx, err := strconv.Atoi(msg.Param("index"))
		if err != nil {
			d.fail(action, cb, widget.ResInvalidIndex, zap.String("value", msg.Param("index")))
			return true
		}
		c.index = idx
	}

	res, ok := d.invoke(action, cb, entry, c)
	if !ok {
		return true
	}

	failed := res < 0
	if entry.reply == replyCreate {
		// Handles are strictly positive.
		failed = res <= 0
	}
	if failed {
		d.out.CallJS(errorScript(cb, res))
		d.metrics.widgetCall(action, "error")
		d.logger.Debug("widget call failed", zap.String("action", action), zap.Int("result", res))
		return true
	}

	switch entry.reply {
	case replyCreate:
		d.out.CallJS(createCallbackScript(cb, msg.Param("widgetID"), widget.Handle(res)))
	case replyProperty:
		payload := c.text
		if d.echoName {
			payload = msg.Param("property")
		}
		d.out.CallJS(successScript(cb, doubleQuoted(payload)))
	default:
		d.out.CallJS(successScript(cb, strconv.Itoa(res)))
	}
	d.metrics.widgetCall(action, "ok")
	return true
}

// invoke makes the native call and records how long it took. A panic in the
// native layer is reported and answered with ResError so the page's
// callback still fires; ok is false once that reply has been sent.
func (d *Dispatcher) invoke(action, cb string, entry actionSpec, c *call) (res int, ok bool) {
	start := time.Now()
	defer func() {
		d.metrics.widgetCallTook(action, float64(time.Since(start).Microseconds())/1000)
		if r := recover(); r != nil {
			errors.ReportPanic(&errors.PanicError{
				Op:         "bridge.Dispatcher.Dispatch",
				Namespace:  NamespaceNativeUI,
				Action:     action,
				Value:      r,
				StackTrace: errors.CaptureStack(),
			})
			d.out.CallJS(errorScript(cb, widget.ResError))
			d.metrics.widgetCall(action, "panic")
			res, ok = widget.ResError, false
		}
	}()
	return entry.call(d.api, c), true
}

// fail replies with code without calling native.
func (d *Dispatcher) fail(action, cb string, code int, fields ...zap.Field) {
	d.out.CallJS(errorScript(cb, code))
	d.metrics.widgetCall(action, "rejected")
	d.logger.Debug("rejected widget call", append([]zap.Field{zap.String("action", action), zap.Int("code", code)}, fields...)...)
}

// parseHandle parses a decimal widget handle.
func parseHandle(s string) (widget.Handle, bool) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return widget.Handle(n), true
}
