package bridge

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-drift/nativeui/pkg/widget"
)

// recorder is a ScriptRunner that keeps every script it is given.
type recorder struct {
	mu      sync.Mutex
	scripts []string
}

func (r *recorder) CallJS(script string) {
	r.mu.Lock()
	r.scripts = append(r.scripts, script)
	r.mu.Unlock()
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.scripts...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.scripts = nil
	r.mu.Unlock()
}

// count returns how many scripts start with prefix.
func (r *recorder) count(prefix string) int {
	n := 0
	for _, s := range r.all() {
		if strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}

// fakeAPI is a widget.API returning a fixed result and recording calls.
type fakeAPI struct {
	result   int
	property string
	calls    []string
}

func (f *fakeAPI) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeAPI) Create(widgetType string) widget.Handle {
	f.record("Create(%s)", widgetType)
	return widget.Handle(f.result)
}

func (f *fakeAPI) Destroy(h widget.Handle) int {
	f.record("Destroy(%d)", h)
	return f.result
}

func (f *fakeAPI) AddChild(parent, child widget.Handle) int {
	f.record("AddChild(%d, %d)", parent, child)
	return f.result
}

func (f *fakeAPI) InsertChild(parent, child widget.Handle, index int) int {
	f.record("InsertChild(%d, %d, %d)", parent, child, index)
	return f.result
}

func (f *fakeAPI) RemoveChild(child widget.Handle) int {
	f.record("RemoveChild(%d)", child)
	return f.result
}

func (f *fakeAPI) ModalDialogShow(dialog widget.Handle) int {
	f.record("ModalDialogShow(%d)", dialog)
	return f.result
}

func (f *fakeAPI) ModalDialogHide(dialog widget.Handle) int {
	f.record("ModalDialogHide(%d)", dialog)
	return f.result
}

func (f *fakeAPI) ScreenShow(screen widget.Handle) int {
	f.record("ScreenShow(%d)", screen)
	return f.result
}

func (f *fakeAPI) StackScreenPush(stack, screen widget.Handle) int {
	f.record("StackScreenPush(%d, %d)", stack, screen)
	return f.result
}

func (f *fakeAPI) StackScreenPop(stack widget.Handle) int {
	f.record("StackScreenPop(%d)", stack)
	return f.result
}

func (f *fakeAPI) SetProperty(h widget.Handle, name, value string) int {
	f.record("SetProperty(%d, %s, %s)", h, name, value)
	return f.result
}

func (f *fakeAPI) GetProperty(h widget.Handle, name string) (string, int) {
	f.record("GetProperty(%d, %s)", h, name)
	if f.result < 0 {
		return "", f.result
	}
	return f.property, f.result
}

// fakeSource is a widget.EventSource with explicit delivery.
type fakeSource struct {
	subs     map[int]func(widget.Event)
	next     int
	canceled int
}

func (s *fakeSource) Subscribe(fn func(widget.Event)) func() {
	if s.subs == nil {
		s.subs = make(map[int]func(widget.Event))
	}
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			s.canceled++
		}
	}
}

func (s *fakeSource) emit(ev widget.Event) {
	for _, fn := range s.subs {
		fn(ev)
	}
}
