// Package app wires the bridge together and runs its event loop.
//
// One goroutine (Run) owns routing, widget dispatch and event translation.
// Everything that happens elsewhere (native events, finished downloads, key
// presses, messages from a native page) is posted to the loop with
// platform.Dispatch.
package app

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/go-drift/nativeui/pkg/bridge"
	"github.com/go-drift/nativeui/pkg/config"
	"github.com/go-drift/nativeui/pkg/debug"
	"github.com/go-drift/nativeui/pkg/platform"
	"github.com/go-drift/nativeui/pkg/script"
	"github.com/go-drift/nativeui/pkg/widget"
)

// hiddenWebViewType is the widget type created for the page that runs the
// application's scripts.
const hiddenWebViewType = "WebView"

// ErrRunning is returned by Run when the loop is already running or has
// already stopped.
var ErrRunning = fmt.Errorf("app: Run called twice")

// App is a running bridge: the script host, the message router and its
// handlers, and the widget subsystem they drive.
type App struct {
	cfg    *config.Resolved
	logger *zap.Logger

	api     widget.API
	events  widget.EventSource
	tree    *widget.Tree
	natives *platform.NativeWidgets
	hidden  widget.Handle
	files   fs.FS

	host       *script.Host
	router     *bridge.Router
	resources  *bridge.ResourceHandler
	translator *bridge.EventTranslator
	images     *bridge.ImageStore

	// A page in a native web view talks over its own channel and router.
	page          *platform.PageChannel
	pageRouter    *bridge.Router
	pageResources *bridge.ResourceHandler

	registry *prometheus.Registry
	trace    *debug.Trace
	debugSrv *debug.Server

	queueMu sync.Mutex
	tasks   []func()
	wake    chan struct{}

	stop      chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
	started   atomic.Bool
	closed    atomic.Bool
}

type options struct {
	logger      *zap.Logger
	bridge      platform.NativeBridge
	files       fs.FS
	registry    *prometheus.Registry
	httpClient  *http.Client
	traceWriter io.Writer
}

// Option configures an App.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithNativeBridge drives real native widgets over the platform channel
// instead of the in-memory widget tree.
func WithNativeBridge(b platform.NativeBridge) Option {
	return func(o *options) { o.bridge = b }
}

// WithFiles replaces the page directory as the source of scripts and
// images.
func WithFiles(files fs.FS) Option {
	return func(o *options) { o.files = files }
}

// WithRegistry registers metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithHTTPClient sets the client used for remote images.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTraceWriter writes every outbound script to w, one per line.
func WithTraceWriter(w io.Writer) Option {
	return func(o *options) { o.traceWriter = w }
}

// New builds an App from resolved configuration.
func New(cfg *config.Resolved, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
		o.registry.MustRegister(collectors.NewGoCollector())
	}
	if o.files == nil {
		o.files = os.DirFS(cfg.PageRoot)
	}

	a := &App{
		cfg:      cfg,
		logger:   o.logger.Named("app"),
		files:    o.files,
		registry: o.registry,
		trace:    debug.NewTrace(debug.DefaultTraceSize),
		images:   bridge.NewImageStore(),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}

	codec, err := platform.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	if o.bridge != nil {
		platform.SetNativeBridge(o.bridge)
		a.natives = platform.NewNativeWidgets(codec)
		a.api, a.events = a.natives, a.natives
	} else {
		a.tree = widget.NewTree()
		a.api, a.events = a.tree, postedSource{src: a.tree, post: a.post}
	}

	a.hidden = a.api.Create(hiddenWebViewType)
	if !a.hidden.Valid() {
		a.release()
		return nil, fmt.Errorf("app: create %s: result %d", hiddenWebViewType, a.hidden)
	}

	traceWriter := o.traceWriter
	host, err := script.NewHost(
		script.WithLogger(o.logger),
		script.WithWidgetHandle(a.hidden),
		script.WithTrace(func(s string) {
			a.trace.Record(s)
			if traceWriter != nil {
				fmt.Fprintln(traceWriter, s)
			}
		}),
	)
	if err != nil {
		a.release()
		return nil, err
	}
	a.host = host

	bopts := []bridge.Option{
		bridge.WithLogger(o.logger),
		bridge.WithMetrics(bridge.NewMetrics(o.registry)),
		bridge.WithRemoteTimeout(cfg.RemoteTimeout),
	}
	if o.httpClient != nil {
		bopts = append(bopts, bridge.WithHTTPClient(o.httpClient))
	}
	if cfg.EchoPropertyName {
		bopts = append(bopts, bridge.WithPropertyNameEcho())
	}

	a.router, _, a.resources = a.newRouter(host, bopts)

	a.page = platform.NewPageChannel(codec, func(raw []byte) {
		a.post(func() { a.pageRouter.RouteRaw(raw) })
	})
	a.pageRouter, _, a.pageResources = a.newRouter(a.page, bopts)

	a.translator = bridge.NewEventTranslator(host, a.hidden, bopts...)
	if err := a.translator.Attach(a.events); err != nil {
		a.release()
		return nil, err
	}
	return a, nil
}

// newRouter builds a router whose replies go to out, with the widget
// dispatcher and resource handler behind it.
func (a *App) newRouter(out bridge.ScriptRunner, opts []bridge.Option) (*bridge.Router, *bridge.Dispatcher, *bridge.ResourceHandler) {
	r := bridge.NewRouter(out, opts...)
	d := bridge.NewDispatcher(a.api, out, opts...)
	res := bridge.NewResourceHandler(out, a.files, a.images, opts...)
	r.Handle(bridge.NamespaceNativeUI, d)
	r.Handle(bridge.NamespaceResource, res)
	r.OnClose(a.requestStop)
	return r, d, res
}

// Run loads the entry script and runs the loop until the page sends close,
// ctx is canceled, or Close is called. Run may be called once.
//
// Canceling ctx also interrupts a script that is still running, so a page
// stuck in a loop cannot hold Run.
func (a *App) Run(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) || a.closed.Load() {
		return ErrRunning
	}
	platform.RegisterDispatch(a.post)

	interrupted := make(chan struct{})
	stopInterrupt := context.AfterFunc(ctx, func() {
		a.host.Interrupt(context.Cause(ctx).Error())
		close(interrupted)
	})
	defer func() {
		if !stopInterrupt() {
			<-interrupted
			a.host.ClearInterrupt()
		}
	}()

	if a.cfg.DebugPort > 0 {
		srv, err := debug.Start(a.cfg.DebugPort, debug.NewHandler(debug.Sources{
			Tree:     a.snapshotSource(),
			Trace:    a.trace,
			Gatherer: a.registry,
			Logger:   a.logger,
		}), a.logger)
		if err != nil {
			return err
		}
		a.debugSrv = srv
	}

	if err := a.loadEntry(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	a.logger.Info("running",
		zap.String("app", a.cfg.AppName),
		zap.String("entry", a.cfg.Entry),
		zap.Stringer("webview", a.hidden),
	)

	for {
		if a.pump(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.stop:
			return nil
		case <-a.host.Ready():
		case <-a.wake:
		}
	}
}

func (a *App) loadEntry() error {
	src, err := fs.ReadFile(a.files, a.cfg.Entry)
	if err != nil {
		return fmt.Errorf("app: read entry: %w", err)
	}
	return a.host.Load(a.cfg.Entry, string(src))
}

// pump runs posted tasks and routes queued messages, one at a time, until
// both are drained or ctx is done. It reports whether the page sent close.
func (a *App) pump(ctx context.Context) bool {
	for ctx.Err() == nil {
		ran := a.runTasks()
		if a.stopping() {
			return true
		}
		raw, ok := a.host.Next()
		if ok {
			a.router.RouteRaw(raw)
			if a.stopping() {
				return true
			}
		}
		if !ran && !ok {
			return false
		}
	}
	return false
}

func (a *App) runTasks() bool {
	a.queueMu.Lock()
	tasks := a.tasks
	a.tasks = nil
	a.queueMu.Unlock()
	for _, task := range tasks {
		task()
	}
	return len(tasks) > 0
}

// post queues fn for the loop. It never blocks; tasks posted after Close
// are dropped.
func (a *App) post(fn func()) {
	if a.closed.Load() {
		return
	}
	a.queueMu.Lock()
	a.tasks = append(a.tasks, fn)
	a.queueMu.Unlock()
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *App) requestStop() {
	a.stopOnce.Do(func() {
		a.logger.Info("close requested")
		close(a.stop)
	})
}

func (a *App) stopping() bool {
	select {
	case <-a.stop:
		return true
	default:
		return false
	}
}

// KeyPress forwards a key to the page's keyPressEvent handler. It returns
// false when the app is closed.
func (a *App) KeyPress(keyCode, nativeCode int) bool {
	if a.closed.Load() {
		return false
	}
	a.post(func() { bridge.ForwardKey(a.host, keyCode, nativeCode) })
	return true
}

// Close stops the loop and releases everything the app holds. It is safe
// to call more than once.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.requestStop()
		a.closed.Store(true)
		a.translator.Detach()
		a.resources.Close()
		a.pageResources.Close()
		if a.debugSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			err = a.debugSrv.Shutdown(ctx)
		}
		if a.started.Load() {
			platform.RegisterDispatch(nil)
		}
		a.release()
	})
	return err
}

// release drops the page channel and the native side, if any.
func (a *App) release() {
	if a.page != nil {
		a.page.Close()
	}
	if a.natives != nil {
		a.natives.Close()
		platform.SetNativeBridge(nil)
	}
}

// Tree returns the in-memory widget tree, or nil when native widgets are
// driven over a bridge.
func (a *App) Tree() *widget.Tree { return a.tree }

// Host returns the script host.
func (a *App) Host() *script.Host { return a.host }

// Images returns the decoded image store.
func (a *App) Images() *bridge.ImageStore { return a.images }

// Registry returns the metrics registry.
func (a *App) Registry() *prometheus.Registry { return a.registry }

// Trace returns the recent outbound scripts.
func (a *App) Trace() *debug.Trace { return a.trace }

// HiddenWebView returns the handle of the page's own web view.
func (a *App) HiddenWebView() widget.Handle { return a.hidden }

// DebugPort returns the debug server's port, or 0 when it is not running.
func (a *App) DebugPort() int {
	if a.debugSrv == nil {
		return 0
	}
	return a.debugSrv.Port()
}

func (a *App) snapshotSource() debug.TreeSource {
	if a.tree == nil {
		return nil
	}
	return a.tree
}

// postedSource delivers events from src on the loop instead of on the
// goroutine that emitted them, so an event raised inside a widget call is
// seen by the page after that call's reply.
type postedSource struct {
	src  widget.EventSource
	post func(func())
}

func (s postedSource) Subscribe(fn func(widget.Event)) (cancel func()) {
	return s.src.Subscribe(func(ev widget.Event) {
		s.post(func() { fn(ev) })
	})
}
