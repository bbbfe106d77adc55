package bridge

import (
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/go-drift/nativeui/pkg/widget"
)

const hiddenWebView widget.Handle = 1

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		ev   widget.Event
		want []string
	}{
		{
			name: "clicked",
			ev:   widget.Event{Handle: 42, Kind: widget.EventClicked},
			want: []string{`NativeUI.event(42, "Clicked", 0, 0, 0)`},
		},
		{
			name: "parameters relayed",
			ev:   widget.Event{Handle: 9, Kind: widget.EventDatePickerValueChanged, Param1: 17, Param2: 3, Param3: 2012},
			want: []string{`NativeUI.event(9, "DatePickerValueChanged", 17, 3, 2012)`},
		},
		{
			name: "unknown kind",
			ev:   widget.Event{Handle: 9, Kind: 77},
			want: []string{`NativeUI.event(9, "Unknown", 0, 0, 0)`},
		},
		{
			name: "hidden web view",
			ev:   widget.Event{Handle: hiddenWebView, Kind: widget.EventWebViewURLChanged},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &recorder{}
			NewEventTranslator(out, hiddenWebView).Translate(tt.ev)
			if got := out.all(); !slices.Equal(got, tt.want) {
				t.Errorf("scripts = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHiddenWebViewNeverForwarded(t *testing.T) {
	out := &recorder{}
	tr := NewEventTranslator(out, hiddenWebView)
	for _, kind := range widget.EventKinds() {
		tr.Translate(widget.Event{Handle: hiddenWebView, Kind: kind, Param1: 1})
	}
	if got := out.all(); len(got) != 0 {
		t.Errorf("hidden events forwarded: %v", got)
	}
}

func TestAttachDetach(t *testing.T) {
	out := &recorder{}
	src := &fakeSource{}
	tr := NewEventTranslator(out, hiddenWebView)

	if err := tr.Attach(src); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := tr.Attach(src); err != ErrAlreadyAttached {
		t.Errorf("second Attach = %v, want ErrAlreadyAttached", err)
	}
	if !tr.Attached() {
		t.Error("Attached() = false after Attach")
	}

	src.emit(widget.Event{Handle: 5, Kind: widget.EventClicked})
	tr.Detach()
	src.emit(widget.Event{Handle: 5, Kind: widget.EventClicked})
	tr.Detach()

	if got := out.all(); len(got) != 1 {
		t.Errorf("scripts = %v, want one event before Detach", got)
	}
	if src.canceled != 1 {
		t.Errorf("canceled = %d, want 1", src.canceled)
	}
	if tr.Attached() {
		t.Error("Attached() = true after Detach")
	}
	if err := tr.Attach(src); err != nil {
		t.Errorf("re-Attach after Detach: %v", err)
	}
}

func TestTranslatorWithTree(t *testing.T) {
	tree := widget.NewTree()
	out := &recorder{}
	web := tree.Create("WebView")
	tr := NewEventTranslator(out, web)
	if err := tr.Attach(tree); err != nil {
		t.Fatal(err)
	}
	defer tr.Detach()

	stack := tree.Create("StackScreen")
	screen := tree.Create("Screen")
	tree.StackScreenPush(stack, screen)
	tree.StackScreenPop(stack)
	tree.Emit(widget.Event{Handle: web, Kind: widget.EventContentLoaded})

	want := []string{`NativeUI.event(2, "StackScreenPopped", 3, 0, 0)`}
	if got := out.all(); !slices.Equal(got, want) {
		t.Errorf("scripts = %v, want %v", got, want)
	}
}

func TestTranslatorLogsUnknownKinds(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	reg := prometheus.NewRegistry()
	tr := NewEventTranslator(&recorder{}, hiddenWebView,
		WithLogger(zap.New(core)), WithMetrics(NewMetrics(reg)))

	tr.Translate(widget.Event{Handle: 3, Kind: 200})
	tr.Translate(widget.Event{Handle: 3, Kind: widget.EventClicked})
	tr.Translate(widget.Event{Handle: hiddenWebView, Kind: widget.EventClicked})

	entries := logs.FilterMessage("unknown event kind").All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if entries[0].ContextMap()["kind"] != int64(200) {
		t.Errorf("kind field = %v", entries[0].ContextMap()["kind"])
	}
	for outcome, want := range map[string]float64{"unknown": 1, "forwarded": 1, "filtered": 1} {
		if got := counterValue(t, reg, "nativeui_events_total", map[string]string{"outcome": outcome}); got != want {
			t.Errorf("%s = %v, want %v", outcome, got, want)
		}
	}
}
