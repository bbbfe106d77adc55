package errors

import (
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBridgeErrorString(t *testing.T) {
	err := &BridgeError{
		Op:   "test.operation",
		Kind: KindNative,
		Err:  &ParseError{Source: "message", DataType: "Handle", Got: "abc"},
	}
	got := err.Error()
	if !strings.HasPrefix(got, "test.operation [native]: ") {
		t.Errorf("Error() = %q, want prefix %q", got, "test.operation [native]: ")
	}
}

func TestBridgeErrorWithScope(t *testing.T) {
	err := &BridgeError{
		Op:        "bridge.Dispatcher.Dispatch",
		Kind:      KindParsing,
		Namespace: "NativeUI",
		Action:    "maWidgetDestroy",
		Err:       stderrors.New("bad handle"),
	}
	got := err.Error()
	for _, want := range []string{"namespace=NativeUI", "action=maWidgetDestroy", "bad handle"} {
		if !strings.Contains(got, want) {
			t.Errorf("error string %q should contain %q", got, want)
		}
	}
}

func TestBridgeErrorUnwrap(t *testing.T) {
	sentinel := stderrors.New("sentinel")
	err := &BridgeError{Op: "op", Err: sentinel}
	if !stderrors.Is(err, sentinel) {
		t.Error("errors.Is should see the wrapped error")
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindNative, "native"},
		{KindParsing, "parsing"},
		{KindScript, "script"},
		{KindResource, "resource"},
		{KindChannel, "channel"},
		{KindPanic, "panic"},
		{KindInit, "init"},
		{ErrorKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{Value: "test panic", Timestamp: time.Now()}
	if got, want := err.Error(), "panic: test panic"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
	err.Op = "bridge.Router.Route"
	if got, want := err.Error(), "panic in bridge.Router.Route: test panic"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestParseErrorString(t *testing.T) {
	err := &ParseError{Source: "nativeui/widget_events", DataType: "Event", Got: 123}
	want := "failed to parse Event from nativeui/widget_events: got int"
	if got := err.Error(); got != want {
		t.Errorf("ParseError.Error() = %q, want %q", got, want)
	}
}

func TestReport(t *testing.T) {
	var captured *BridgeError
	handler := &testHandler{onError: func(err *BridgeError) { captured = err }}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	Report(&BridgeError{Op: "test.op", Kind: KindInit, Err: stderrors.New("boom")})

	if captured == nil {
		t.Fatal("expected error to be captured")
	}
	if captured.Op != "test.op" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.op")
	}
	if captured.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestReportNil(t *testing.T) {
	called := false
	oldHandler := DefaultHandler
	SetHandler(&testHandler{onError: func(*BridgeError) { called = true }})
	defer SetHandler(oldHandler)

	Report(nil)
	ReportPanic(nil)
	if called {
		t.Error("nil reports should not reach the handler")
	}
}

func TestRecover(t *testing.T) {
	var captured *PanicError
	oldHandler := DefaultHandler
	SetHandler(&testHandler{onPanic: func(err *PanicError) { captured = err }})
	defer SetHandler(oldHandler)

	func() {
		defer Recover("test.recover")
		panic("intentional test panic")
	}()

	if captured == nil {
		t.Fatal("expected panic to be recovered and captured")
	}
	if captured.Value != "intentional test panic" {
		t.Errorf("Value = %v, want %q", captured.Value, "intentional test panic")
	}
	if captured.Op != "test.recover" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.recover")
	}
}

func TestRecoverMessage(t *testing.T) {
	var captured *PanicError
	oldHandler := DefaultHandler
	SetHandler(&testHandler{onPanic: func(err *PanicError) { captured = err }})
	defer SetHandler(oldHandler)

	func() {
		defer RecoverMessage("bridge.Router.Route", "NativeUI", "maWidgetCreate")
		panic(42)
	}()
	if captured == nil {
		t.Fatal("panic not reported")
	}
	if captured.Namespace != "NativeUI" || captured.Action != "maWidgetCreate" || captured.Value != 42 {
		t.Errorf("captured = %+v", captured)
	}
	want := "panic in bridge.Router.Route (NativeUI/maWidgetCreate): 42"
	if captured.Error() != want {
		t.Errorf("Error() = %q, want %q", captured.Error(), want)
	}
	if captured.Timestamp.IsZero() || captured.StackTrace == "" {
		t.Error("timestamp or stack missing")
	}
}

func TestCaptureStack(t *testing.T) {
	stack := CaptureStack()
	if stack == "" {
		t.Fatal("expected non-empty stack trace")
	}
	if !strings.Contains(stack, "testing") && !strings.Contains(stack, "runtime") {
		t.Errorf("stack trace should contain testing or runtime frames, got: %s", stack)
	}
}

func TestSetHandlerNil(t *testing.T) {
	oldHandler := DefaultHandler
	defer SetHandler(oldHandler)

	SetHandler(nil)
	if _, ok := DefaultHandler.(*LogHandler); !ok {
		t.Errorf("SetHandler(nil) should set LogHandler, got %T", DefaultHandler)
	}
}

func TestLogHandlerWritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := &LogHandler{Logger: zap.New(core), Verbose: true}

	h.HandleError(&BridgeError{
		Op:         "bridge.Dispatcher.Dispatch",
		Kind:       KindNative,
		Namespace:  "NativeUI",
		Action:     "maWidgetCreate",
		Err:        stderrors.New("failed"),
		StackTrace: "frame",
	})
	h.HandlePanic(&PanicError{Op: "bridge.Router.Route", Value: "boom"})

	if logs.Len() != 2 {
		t.Fatalf("got %d log entries, want 2", logs.Len())
	}
	entry := logs.All()[0]
	fields := entry.ContextMap()
	if fields["action"] != "maWidgetCreate" {
		t.Errorf("action field = %v, want maWidgetCreate", fields["action"])
	}
	if fields["stack"] != "frame" {
		t.Errorf("stack field = %v, want frame", fields["stack"])
	}
	if logs.All()[1].Message != "bridge panic" {
		t.Errorf("second entry = %q, want %q", logs.All()[1].Message, "bridge panic")
	}
}

type testHandler struct {
	onError func(*BridgeError)
	onPanic func(*PanicError)
}

func (h *testHandler) HandleError(err *BridgeError) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *testHandler) HandlePanic(err *PanicError) {
	if h.onPanic != nil {
		h.onPanic(err)
	}
}
