package bridge

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/go-drift/nativeui/pkg/errors"
)

// Message namespaces.
const (
	NamespaceNativeUI = "NativeUI"
	NamespaceResource = "Resource"
	CommandClose      = "close"
)

// Handler handles the messages of one namespace.
type Handler interface {
	Handle(msg Message)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(msg Message)

// Handle calls f(msg).
func (f HandlerFunc) Handle(msg Message) { f(msg) }

// Router forwards each message to the handler registered for its namespace
// and then acknowledges it.
//
// The acknowledgment is bridge.messagehandler.reply('<callbackId>') when the
// message carries a channel callback id, and
// bridge.messagehandler.processedMessage() otherwise. Exactly one is sent per
// routed message, including messages whose handler panics and messages that
// fail to parse.
type Router struct {
	out      ScriptRunner
	handlers map[string]Handler
	closer   func()
	logger   *zap.Logger
	metrics  *Metrics
}

// NewRouter creates a router acknowledging on out.
func NewRouter(out ScriptRunner, opts ...Option) *Router {
	s := newSettings(opts)
	return &Router{
		out:      out,
		handlers: make(map[string]Handler),
		logger:   s.logger.Named("router"),
		metrics:  s.metrics,
	}
}

// Handle registers h for namespace, replacing any previous handler.
func (r *Router) Handle(namespace string, h Handler) {
	if namespace == CommandClose {
		panic(fmt.Sprintf("bridge: %q is reserved", CommandClose))
	}
	r.handlers[namespace] = h
}

// OnClose sets the function run for the close command.
func (r *Router) OnClose(fn func()) {
	r.closer = fn
}

// RouteRaw parses raw and routes it. A message that does not parse is
// reported and acknowledged with processedMessage().
func (r *Router) RouteRaw(raw []byte) {
	msg, err := ParseMessage(raw)
	if err != nil {
		r.metrics.parseError()
		errors.Report(&errors.BridgeError{
			Op:   "bridge.Router.RouteRaw",
			Kind: errors.KindParsing,
			Err:  err,
		})
		r.ack(Message{})
		return
	}
	r.Route(msg)
}

// Route handles msg and acknowledges it.
func (r *Router) Route(msg Message) {
	name := msg.Name()
	defer r.ack(msg)
	defer errors.RecoverMessage("bridge.Router.Route", name, msg.Action())

	r.metrics.message(namespaceLabel(name, r.handlers))
	r.logger.Debug("route", zap.Stringer("message", msg))

	if name == CommandClose {
		if r.closer != nil {
			r.closer()
		}
		return
	}
	h, ok := r.handlers[name]
	if !ok {
		r.logger.Debug("dropped message", zap.String("namespace", name))
		return
	}
	h.Handle(msg)
}

func (r *Router) ack(msg Message) {
	if id, ok := msg.ChannelID(); ok {
		r.metrics.ack("reply")
		r.out.CallJS(replyScript(id))
		return
	}
	r.metrics.ack("processed")
	r.out.CallJS(processedMessageScript)
}

// namespaceLabel keeps metric cardinality bounded.
func namespaceLabel(name string, handlers map[string]Handler) string {
	if name == CommandClose {
		return name
	}
	if _, ok := handlers[name]; ok {
		return name
	}
	return "unknown"
}
