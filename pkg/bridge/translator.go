package bridge

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/go-drift/nativeui/pkg/widget"
)

// ErrAlreadyAttached is returned by Attach when the translator already
// listens to an event source.
var ErrAlreadyAttached = fmt.Errorf("bridge: event translator already attached")

// EventTranslator forwards native widget events to the web layer as
// NativeUI.event calls. Events from the bridge's own hidden web view are
// dropped.
type EventTranslator struct {
	out     ScriptRunner
	hidden  widget.Handle
	logger  *zap.Logger
	metrics *Metrics

	mu     sync.Mutex
	cancel func()
}

// NewEventTranslator creates a translator writing to out. Events whose
// handle equals hidden are never forwarded.
func NewEventTranslator(out ScriptRunner, hidden widget.Handle, opts ...Option) *EventTranslator {
	s := newSettings(opts)
	return &EventTranslator{
		out:     out,
		hidden:  hidden,
		logger:  s.logger.Named("events"),
		metrics: s.metrics,
	}
}

// Attach subscribes to src.
func (t *EventTranslator) Attach(src widget.EventSource) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return ErrAlreadyAttached
	}
	t.cancel = src.Subscribe(t.Translate)
	return nil
}

// Detach unsubscribes from the current source. It is a no-op when not
// attached.
func (t *EventTranslator) Detach() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Attached reports whether the translator is subscribed to a source.
func (t *EventTranslator) Attached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// Translate forwards ev unless it comes from the hidden web view.
func (t *EventTranslator) Translate(ev widget.Event) {
	if ev.Handle == t.hidden {
		t.metrics.event("filtered")
		return
	}
	if !ev.Kind.Known() {
		t.logger.Warn("unknown event kind", zap.Int("kind", int(ev.Kind)), zap.Stringer("handle", ev.Handle))
		t.metrics.event("unknown")
	} else {
		t.metrics.event("forwarded")
	}
	t.out.CallJS(eventScript(ev))
}
