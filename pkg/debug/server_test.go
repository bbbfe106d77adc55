package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/go-drift/nativeui/pkg/widget"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, NewHandler(Sources{}), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var health map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health["status"] != "ok" {
		t.Errorf("health = %v", health)
	}
}

func TestDisabledEndpoints(t *testing.T) {
	h := NewHandler(Sources{})
	for _, path := range []string{"/widget-tree", "/trace", "/metrics"} {
		if rec := get(t, h, path); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, rec.Code)
		}
	}
}

func TestWidgetTree(t *testing.T) {
	tree := widget.NewTree()
	screen := tree.Create("Screen")
	label := tree.Create("Label")
	tree.AddChild(screen, label)
	tree.SetProperty(label, "text", "hi")

	rec := get(t, NewHandler(Sources{Tree: tree}), "/widget-tree")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var nodes []widget.Node
	if err := json.Unmarshal(rec.Body.Bytes(), &nodes); err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 || len(nodes[0].Children) != 1 {
		t.Fatalf("nodes = %+v", nodes)
	}
	if got := nodes[0].Children[0].Properties["text"]; got != "hi" {
		t.Errorf("label text = %q", got)
	}
}

func TestTraceEndpoint(t *testing.T) {
	trace := NewTrace(2)
	trace.Record("a()")
	trace.Record("b()")
	trace.Record("c()")

	h := NewHandler(Sources{Trace: trace})
	tests := []struct {
		path string
		want []string
	}{
		{"/trace", []string{"b()", "c()"}},
		{"/trace?limit=1", []string{"c()"}},
		{"/trace?limit=bogus", []string{"b()", "c()"}},
	}
	for _, tt := range tests {
		rec := get(t, h, tt.path)
		var body struct {
			Scripts []TraceEntry `json:"scripts"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: %v", tt.path, err)
		}
		var got []string
		for _, e := range body.Scripts {
			got = append(got, e.Script)
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("%s = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestTraceRing(t *testing.T) {
	trace := NewTrace(3)
	if got := trace.Snapshot(); len(got) != 0 {
		t.Fatalf("empty snapshot = %v", got)
	}
	for i := 1; i <= 5; i++ {
		trace.Record(fmt.Sprint(i))
	}
	got := trace.Snapshot()
	if len(got) != 3 || got[0].Script != "3" || got[2].Script != "5" || got[2].Seq != 5 {
		t.Errorf("snapshot = %+v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "nativeui_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	rec := get(t, NewHandler(Sources{Gatherer: reg}), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "nativeui_test_total 1") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	NewHandler(Sources{}).ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestServerStartShutdown(t *testing.T) {
	s, err := Start(0, NewHandler(Sources{}), nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", s.Port()))
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Errorf("health = %d %s", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
	if _, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", s.Port())); err == nil {
		t.Error("server still answering after Shutdown")
	}
}
