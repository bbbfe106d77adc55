// Package debug serves an HTTP inspection surface for a running bridge:
// health, the widget tree, recent outbound scripts and Prometheus metrics.
package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/go-drift/nativeui/pkg/widget"
)

// TreeSource provides the widget tree for /widget-tree.
type TreeSource interface {
	Snapshot() []widget.Node
}

// Sources are the data the debug endpoints expose. Nil fields make their
// endpoint answer 503.
type Sources struct {
	Tree     TreeSource
	Trace    *Trace
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewHandler builds the debug router.
func NewHandler(src Sources) http.Handler {
	logger := src.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", handleHealth)
	r.Get("/widget-tree", func(w http.ResponseWriter, r *http.Request) {
		if src.Tree == nil {
			http.Error(w, "no widget tree", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, src.Tree.Snapshot())
	})
	r.Get("/trace", func(w http.ResponseWriter, r *http.Request) {
		if src.Trace == nil {
			http.Error(w, "script tracing disabled", http.StatusServiceUnavailable)
			return
		}
		entries := src.Trace.Snapshot()
		if value := r.URL.Query().Get("limit"); value != "" {
			if limit, err := strconv.Atoi(value); err == nil && limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
		}
		writeJSON(w, struct {
			Scripts []TraceEntry `json:"scripts"`
		}{Scripts: entries})
	})
	if src.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(src.Gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics disabled", http.StatusServiceUnavailable)
		})
	}
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// writeJSON encodes to a buffer first so encode errors become a 500.
func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, fmt.Sprintf("json encode error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("debug request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
			)
		})
	}
}

// Server is a running debug HTTP server.
type Server struct {
	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	logger   *zap.Logger
}

// Start listens on port (0 picks an ephemeral port) and serves handler in
// the background.
func Start(port int, handler http.Handler, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Bind first to fail fast on port conflicts.
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("debug server listen: %w", err)
	}

	s := &Server{
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
		logger:   logger.Named("debug"),
	}
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("debug server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("debug server listening", zap.Int("port", s.Port()))
	return s, nil
}

// Port returns the bound port.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Shutdown stops the server gracefully. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
