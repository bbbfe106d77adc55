package debug

import (
	"sync"
	"time"
)

// DefaultTraceSize is the number of scripts a Trace keeps by default.
const DefaultTraceSize = 256

// TraceEntry is one outbound script.
type TraceEntry struct {
	Seq    uint64    `json:"seq"`
	Time   time.Time `json:"time"`
	Script string    `json:"script"`
}

// Trace is a fixed-size ring buffer of the most recent outbound scripts.
type Trace struct {
	mu      sync.RWMutex
	entries []TraceEntry
	next    int
	seq     uint64
	full    bool
}

// NewTrace returns a trace keeping the last size scripts.
func NewTrace(size int) *Trace {
	if size <= 0 {
		size = DefaultTraceSize
	}
	return &Trace{entries: make([]TraceEntry, size)}
}

// Record appends script, overwriting the oldest entry when full.
func (t *Trace) Record(script string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.entries[t.next] = TraceEntry{Seq: t.seq, Time: time.Now(), Script: script}
	t.next++
	if t.next == len(t.entries) {
		t.next = 0
		t.full = true
	}
}

// Snapshot returns the retained entries, oldest first.
func (t *Trace) Snapshot() []TraceEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.full {
		return append([]TraceEntry(nil), t.entries[:t.next]...)
	}
	out := make([]TraceEntry, 0, len(t.entries))
	out = append(out, t.entries[t.next:]...)
	return append(out, t.entries[:t.next]...)
}
