package app

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"go.uber.org/zap"

	"github.com/go-drift/nativeui/pkg/config"
	"github.com/go-drift/nativeui/pkg/errors"
	"github.com/go-drift/nativeui/pkg/platform"
	"github.com/go-drift/nativeui/pkg/widget"
)

const entryScript = `
var log = [];
ResourceHandler.loadImage("img/logo.png", "logo", function (id, h) { log.push(id + ":" + h); });
NativeUI.maWidgetCreate("Screen", "main", function () {
	NativeUI.maWidgetCreate("Button", "ok", function () {
		NativeUI.maWidgetAddChild("main", "ok", function () {
			NativeUI.maWidgetScreenShow("main", function () {
				NativeUI.registerEventListener("ok", "Clicked", function (h, type) {
					log.push(type);
					bridge.close();
				});
				log.push("ready");
			});
		});
	});
});
`

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testConfig() *config.Resolved {
	return &config.Resolved{
		AppName:       "test",
		AppID:         "com.example.test",
		Entry:         "index.js",
		Codec:         "json",
		RemoteTimeout: time.Second,
	}
}

func newApp(t *testing.T, cfg *config.Resolved, opts ...Option) *App {
	t.Helper()
	a, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func startApp(t *testing.T, a *App) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()
	return done
}

func waitFor(t *testing.T, a *App, expr string, want any) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, err := a.Host().Eval(expr); err == nil && got == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	got, err := a.Host().Eval(expr)
	t.Fatalf("%s = %v (%v), want %v", expr, got, err, want)
}

func TestEndToEnd(t *testing.T) {
	files := fstest.MapFS{
		"index.js":     {Data: []byte(entryScript)},
		"img/logo.png": {Data: pngBytes(t)},
	}
	a := newApp(t, testConfig(), WithFiles(files))
	done := startApp(t, a)

	waitFor(t, a, "log.length", int64(2))

	tree := a.Tree()
	screen := tree.VisibleScreen()
	if !screen.Valid() || tree.TypeOf(screen) != "Screen" {
		t.Fatalf("visible screen = %v", screen)
	}
	children := tree.Children(screen)
	if len(children) != 1 || tree.TypeOf(children[0]) != "Button" {
		t.Fatalf("children = %v", children)
	}
	if _, ok := a.Images().Get(1); !ok {
		t.Error("logo not decoded into the image store")
	}

	// Events from the page's own web view never reach the page.
	tree.Emit(widget.Event{Handle: a.HiddenWebView(), Kind: widget.EventClicked})
	tree.Emit(widget.Event{Handle: children[0], Kind: widget.EventClicked})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after close")
	}

	got, _ := a.Host().Eval("log.join(',')")
	if got != "logo:1,ready,Clicked" {
		t.Errorf("log = %v", got)
	}
	if a.Host().Pending() != 0 {
		t.Errorf("pending = %d after close", a.Host().Pending())
	}
}

func TestEventAfterReply(t *testing.T) {
	files := fstest.MapFS{"index.js": {Data: []byte(`
var log = [];
NativeUI.maWidgetCreate("StackScreen", "stack", function () {
	NativeUI.maWidgetCreate("Screen", "a", function () {
		NativeUI.maWidgetCreate("Screen", "b", function () {
			NativeUI.registerEventListener("stack", "StackScreenPopped", function () { log.push("popped"); });
			NativeUI.maWidgetStackScreenPush("stack", "a", function () {
				NativeUI.maWidgetStackScreenPush("stack", "b", function () {
					NativeUI.maWidgetStackScreenPop("stack", function (res) { log.push("pop:" + res); });
				});
			});
		});
	});
});
`)}}
	a := newApp(t, testConfig(), WithFiles(files))
	startApp(t, a)

	waitFor(t, a, "log.join(',')", "pop:0,popped")
}

func TestKeyPress(t *testing.T) {
	files := fstest.MapFS{"index.js": {Data: []byte(`
var keys = [];
function keyPressEvent(k, n) { keys.push(k + "/" + n); }
`)}}
	a := newApp(t, testConfig(), WithFiles(files))
	startApp(t, a)

	if !a.KeyPress(4, 0) {
		t.Fatal("KeyPress refused")
	}
	waitFor(t, a, "keys.join(',')", "4/0")

	a.Close()
	if a.KeyPress(4, 0) {
		t.Error("KeyPress accepted after Close")
	}
}

func TestRunStopsOnContext(t *testing.T) {
	files := fstest.MapFS{"index.js": {Data: []byte(`var idle = true;`)}}
	a := newApp(t, testConfig(), WithFiles(files))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run ignored cancellation")
	}
	if err := a.Run(context.Background()); err != ErrRunning {
		t.Errorf("second Run = %v, want ErrRunning", err)
	}
}

func TestRunInterruptsRunawayScript(t *testing.T) {
	errors.SetHandler(&errors.LogHandler{Logger: zap.NewNop()})
	t.Cleanup(func() { errors.SetHandler(nil) })

	tests := []struct {
		name  string
		entry string
	}{
		{name: "entry script", entry: `while (true) {}`},
		{name: "reply callback", entry: `NativeUI.maWidgetCreate("Label", "l", function () { while (true) {} });`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := fstest.MapFS{"index.js": {Data: []byte(tt.entry)}}
			a := newApp(t, testConfig(), WithFiles(files))

			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- a.Run(ctx) }()

			select {
			case err := <-done:
				if err != context.DeadlineExceeded {
					t.Errorf("Run = %v, want context.DeadlineExceeded", err)
				}
			case <-time.After(3 * time.Second):
				t.Fatal("Run still blocked after the deadline")
			}
			// The interrupt is spent; the VM keeps working.
			if got, err := a.Host().Eval("1 + 1"); err != nil || got != int64(2) {
				t.Errorf("Eval after interrupt = %v, %v", got, err)
			}
		})
	}
}

// nativeShell is a native side hosting the page in its own web view. Widget
// calls succeed with handle 7; page scripts are recorded.
type nativeShell struct {
	mu      sync.Mutex
	scripts []string
}

func (n *nativeShell) InvokeMethod(channel, method string, args []byte) ([]byte, error) {
	codec := platform.JsonCodec{}
	if channel != platform.PageChannelName {
		return codec.Encode(map[string]any{"result": 0, "handle": 7})
	}
	decoded, err := codec.Decode(args)
	if err != nil {
		return nil, err
	}
	m, _ := decoded.(map[string]any)
	n.mu.Lock()
	n.scripts = append(n.scripts, fmt.Sprint(m["script"]))
	n.mu.Unlock()
	return codec.Encode(nil)
}

func (n *nativeShell) StartEventStream(string) error { return nil }
func (n *nativeShell) StopEventStream(string) error  { return nil }

func (n *nativeShell) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.scripts...)
}

func sendPage(t *testing.T, message string) {
	t.Helper()
	args, err := platform.JsonCodec{}.Encode(message)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := platform.HandleMethodCall(platform.PageChannelName, "send", args); err != nil {
		t.Fatalf("send %s: %v", message, err)
	}
}

func TestNativePageChannel(t *testing.T) {
	t.Cleanup(platform.ResetForTest)
	shell := &nativeShell{}
	files := fstest.MapFS{"index.js": {Data: []byte(`var idle = true;`)}}
	a := newApp(t, testConfig(), WithFiles(files), WithNativeBridge(shell))
	done := startApp(t, a)

	sendPage(t, `{"messageName":"NativeUI","action":"maWidgetCreate","widgetType":"Label","widgetID":"lbl","NativeUICallbackID":"c1","callbackId":"p1"}`)

	want := []string{
		`NativeUI.createCallback('c1', 'lbl', 7)`,
		`bridge.messagehandler.reply('p1')`,
	}
	deadline := time.Now().Add(2 * time.Second)
	for !slices.Equal(shell.all(), want) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := shell.all(); !slices.Equal(got, want) {
		t.Fatalf("page scripts = %v, want %v", got, want)
	}
	// Replies for the native page never reach the script host.
	for _, e := range a.Trace().Snapshot() {
		if strings.Contains(e.Script, "'c1'") || strings.Contains(e.Script, "'p1'") {
			t.Errorf("host received %q", e.Script)
		}
	}

	sendPage(t, "close")
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("close from the native page did not stop Run")
	}
}

func TestMissingEntry(t *testing.T) {
	a := newApp(t, testConfig(), WithFiles(fstest.MapFS{}))
	err := a.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "read entry") {
		t.Errorf("Run = %v", err)
	}
}

func TestTraceRecordsScripts(t *testing.T) {
	var out bytes.Buffer
	files := fstest.MapFS{"index.js": {Data: []byte(`bridge.close();`)}}
	a := newApp(t, testConfig(), WithFiles(files), WithTraceWriter(&out))

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	entries := a.Trace().Snapshot()
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Script, "bridge.messagehandler.reply(") {
		t.Errorf("trace = %+v", entries)
	}
	if !strings.Contains(out.String(), "bridge.messagehandler.reply(") {
		t.Errorf("trace output = %q", out.String())
	}
}

func TestProjectDirectory(t *testing.T) {
	t.Setenv(config.EnvDebugPort, "")
	dir := t.TempDir()
	page := filepath.Join(dir, config.DefaultPageRoot)
	if err := os.MkdirAll(page, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(page, config.DefaultEntry), []byte(`bridge.close();`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	a := newApp(t, cfg)
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a.DebugPort() != 0 {
		t.Errorf("DebugPort = %d without a configured port", a.DebugPort())
	}
	if a.Tree().TypeOf(a.HiddenWebView()) != "WebView" {
		t.Errorf("hidden web view type = %q", a.Tree().TypeOf(a.HiddenWebView()))
	}
}
