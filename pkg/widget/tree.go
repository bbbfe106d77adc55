package widget

import (
	"slices"
	"strconv"
	"sync"
)

// category groups widget types by how they participate in the tree.
type category int

const (
	categoryLeaf category = iota
	categoryLayout
	categoryScreen
	categoryTabScreen
	categoryStackScreen
	categoryDialog
)

// widgetTypes lists the types a Tree can create.
var widgetTypes = map[string]category{
	"Screen":            categoryScreen,
	"TabScreen":         categoryTabScreen,
	"StackScreen":       categoryStackScreen,
	"ModalDialog":       categoryDialog,
	"HorizontalLayout":  categoryLayout,
	"VerticalLayout":    categoryLayout,
	"RelativeLayout":    categoryLayout,
	"ListView":          categoryLayout,
	"ListViewItem":      categoryLayout,
	"Button":            categoryLeaf,
	"Label":             categoryLeaf,
	"EditBox":           categoryLeaf,
	"WebView":           categoryLeaf,
	"Image":             categoryLeaf,
	"ImageButton":       categoryLeaf,
	"Slider":            categoryLeaf,
	"CheckBox":          categoryLeaf,
	"ToggleButton":      categoryLeaf,
	"DatePicker":        categoryLeaf,
	"TimePicker":        categoryLeaf,
	"NumberPicker":      categoryLeaf,
	"VideoView":         categoryLeaf,
	"ProgressBar":       categoryLeaf,
	"ActivityIndicator": categoryLeaf,
	"SearchBar":         categoryLeaf,
	"NavBar":            categoryLeaf,
	"GLView":            categoryLeaf,
	"GL2View":           categoryLeaf,
	"CameraPreview":     categoryLeaf,
}

// booleanProperties only accept "true" or "false".
var booleanProperties = map[string]bool{
	"visible": true,
	"enabled": true,
	"checked": true,
}

// sizeProperties accept an integer, or -1 (fill parent) and -2 (wrap content).
var sizeProperties = map[string]bool{
	"width":  true,
	"height": true,
	"left":   true,
	"top":    true,
}

var defaultProperties = map[string]string{
	"visible": "true",
	"enabled": "true",
}

// node is one widget held by a Tree.
type node struct {
	handle   Handle
	typ      string
	cat      category
	parent   Handle
	children []Handle
	props    map[string]string
	stack    []Handle // pushed screens, StackScreen only
	shown    bool     // dialogs only
}

// Tree is an in-memory native widget subsystem. It backs headless hosts and
// tests, and lets debug tooling inspect the widget hierarchy.
//
// All methods are safe for concurrent use. Subscribers are called without
// the lock held.
type Tree struct {
	mu      sync.RWMutex
	nodes   map[Handle]*node
	nextID  Handle
	screen  Handle
	subsMu  sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// NewTree creates an empty widget tree.
func NewTree() *Tree {
	return &Tree{
		nodes: make(map[Handle]*node),
		subs:  make(map[int]func(Event)),
	}
}

// Create creates a widget of the given type.
func (t *Tree) Create(widgetType string) Handle {
	cat, ok := widgetTypes[widgetType]
	if !ok {
		return ResInvalidTypeName
	}
	t.mu.Lock()
	t.nextID++
	h := t.nextID
	t.nodes[h] = &node{
		handle: h,
		typ:    widgetType,
		cat:    cat,
		props:  make(map[string]string),
	}
	t.mu.Unlock()
	return h
}

// Destroy destroys a widget and, recursively, its children.
func (t *Tree) Destroy(h Handle) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[h]
	if !ok {
		return ResInvalidHandle
	}
	if n.parent != 0 {
		if p, ok := t.nodes[n.parent]; ok {
			p.children = slices.DeleteFunc(p.children, func(c Handle) bool { return c == h })
			p.stack = slices.DeleteFunc(p.stack, func(c Handle) bool { return c == h })
		}
	}
	t.destroyLocked(n)
	return ResOK
}

func (t *Tree) destroyLocked(n *node) {
	for _, c := range n.children {
		if child, ok := t.nodes[c]; ok {
			t.destroyLocked(child)
		}
	}
	for _, c := range n.stack {
		if child, ok := t.nodes[c]; ok && child.parent == n.handle {
			t.destroyLocked(child)
		}
	}
	if t.screen == n.handle {
		t.screen = 0
	}
	delete(t.nodes, n.handle)
}

// AddChild appends child to parent.
func (t *Tree) AddChild(parent, child Handle) int {
	return t.InsertChild(parent, child, -1)
}

// InsertChild inserts child into parent at index. An index of -1 appends.
func (t *Tree) InsertChild(parent, child Handle, index int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.nodes[parent]
	if !ok {
		return ResInvalidHandle
	}
	c, ok := t.nodes[child]
	if !ok {
		return ResInvalidHandle
	}
	if res := canAdopt(p, c); res != ResOK {
		return res
	}
	if index < -1 || index > len(p.children) {
		return ResInvalidIndex
	}
	if index == -1 {
		index = len(p.children)
	}
	p.children = slices.Insert(p.children, index, child)
	c.parent = parent
	return ResOK
}

func canAdopt(p, c *node) int {
	if c.cat == categoryDialog {
		return ResCannotInsertDialog
	}
	if p.handle == c.handle || c.parent != 0 {
		return ResInvalidLayout
	}
	switch p.cat {
	case categoryLeaf, categoryStackScreen:
		return ResInvalidLayout
	case categoryTabScreen:
		if !isScreen(c) {
			return ResInvalidLayout
		}
	case categoryScreen, categoryDialog:
		if isScreen(c) || len(p.children) > 0 {
			return ResInvalidLayout
		}
	default:
		if isScreen(c) {
			return ResInvalidLayout
		}
	}
	return ResOK
}

func isScreen(n *node) bool {
	return n.cat == categoryScreen || n.cat == categoryTabScreen || n.cat == categoryStackScreen
}

// RemoveChild detaches child from its parent. A widget without a parent
// yields ResRemovedRoot.
func (t *Tree) RemoveChild(child Handle) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.nodes[child]
	if !ok {
		return ResInvalidHandle
	}
	p, ok := t.nodes[c.parent]
	if !ok || !slices.Contains(p.children, child) {
		return ResRemovedRoot
	}
	p.children = slices.DeleteFunc(p.children, func(h Handle) bool { return h == child })
	c.parent = 0
	return ResOK
}

// ModalDialogShow shows a modal dialog.
func (t *Tree) ModalDialogShow(dialog Handle) int {
	return t.setDialogShown(dialog, true)
}

// ModalDialogHide hides a modal dialog.
func (t *Tree) ModalDialogHide(dialog Handle) int {
	return t.setDialogShown(dialog, false)
}

func (t *Tree) setDialogShown(dialog Handle, shown bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[dialog]
	if !ok {
		return ResInvalidHandle
	}
	if n.cat != categoryDialog {
		return ResError
	}
	n.shown = shown
	return ResOK
}

// ScreenShow makes a screen the visible root.
func (t *Tree) ScreenShow(screen Handle) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[screen]
	if !ok {
		return ResInvalidHandle
	}
	if !isScreen(n) {
		return ResInvalidScreen
	}
	t.screen = screen
	return ResOK
}

// StackScreenPush pushes screen onto a stack screen.
func (t *Tree) StackScreenPush(stack, screen Handle) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.nodes[stack]
	if !ok {
		return ResInvalidHandle
	}
	n, ok := t.nodes[screen]
	if !ok {
		return ResInvalidHandle
	}
	if s.cat != categoryStackScreen {
		return ResError
	}
	if !isScreen(n) || n.parent != 0 {
		return ResInvalidScreen
	}
	s.stack = append(s.stack, screen)
	n.parent = stack
	return ResOK
}

// StackScreenPop pops the top screen of a stack screen and emits a
// StackScreenPopped event carrying the popped and the new top handle.
// Popping an empty stack is a no-op.
func (t *Tree) StackScreenPop(stack Handle) int {
	t.mu.Lock()
	s, ok := t.nodes[stack]
	if !ok {
		t.mu.Unlock()
		return ResInvalidHandle
	}
	if s.cat != categoryStackScreen {
		t.mu.Unlock()
		return ResError
	}
	if len(s.stack) == 0 {
		t.mu.Unlock()
		return ResOK
	}
	popped := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	if n, ok := t.nodes[popped]; ok {
		n.parent = 0
	}
	var top Handle
	if len(s.stack) > 0 {
		top = s.stack[len(s.stack)-1]
	}
	t.mu.Unlock()

	t.Emit(Event{
		Handle: stack,
		Kind:   EventStackScreenPopped,
		Param1: int(popped),
		Param2: int(top),
	})
	return ResOK
}

// SetProperty sets a string property.
func (t *Tree) SetProperty(h Handle, name, value string) int {
	if name == "" {
		return ResInvalidPropertyName
	}
	if booleanProperties[name] && value != "true" && value != "false" {
		return ResInvalidPropertyValue
	}
	if sizeProperties[name] {
		if _, err := strconv.Atoi(value); err != nil {
			return ResInvalidPropertyValue
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[h]
	if !ok {
		return ResInvalidHandle
	}
	n.props[name] = value
	return ResOK
}

// GetProperty reads a string property. On success the result is the
// length of the value in bytes.
func (t *Tree) GetProperty(h Handle, name string) (string, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[h]
	if !ok {
		return "", ResInvalidHandle
	}
	v, ok := n.props[name]
	if !ok {
		v, ok = defaultProperties[name]
	}
	if !ok {
		return "", ResInvalidPropertyName
	}
	return v, len(v)
}

// Subscribe registers fn for every event emitted by the tree.
func (t *Tree) Subscribe(fn func(Event)) (cancel func()) {
	t.subsMu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.subsMu.Lock()
			delete(t.subs, id)
			t.subsMu.Unlock()
		})
	}
}

// Emit delivers ev to every subscriber, in subscription order.
func (t *Tree) Emit(ev Event) {
	t.subsMu.Lock()
	ids := make([]int, 0, len(t.subs))
	for id := range t.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, t.subs[id])
	}
	t.subsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Len returns the number of live widgets.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// TypeOf returns the widget type of h, or "" if h is not live.
func (t *Tree) TypeOf(h Handle) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n, ok := t.nodes[h]; ok {
		return n.typ
	}
	return ""
}

// Children returns the children of h in order.
func (t *Tree) Children(h Handle) []Handle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n, ok := t.nodes[h]; ok {
		return slices.Clone(n.children)
	}
	return nil
}

// VisibleScreen returns the screen last shown with ScreenShow, or 0.
func (t *Tree) VisibleScreen() Handle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.screen
}

// Node is a serializable view of one widget and its subtree.
type Node struct {
	Handle     Handle            `json:"handle"`
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties,omitempty"`
	Visible    bool              `json:"visible,omitempty"`
	Stack      []Node            `json:"stack,omitempty"`
	Children   []Node            `json:"children,omitempty"`
}

// Snapshot returns every root widget (widgets without a parent) with its
// subtree, ordered by handle.
func (t *Tree) Snapshot() []Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	roots := make([]Handle, 0)
	for h, n := range t.nodes {
		if n.parent == 0 {
			roots = append(roots, h)
		}
	}
	slices.Sort(roots)
	out := make([]Node, 0, len(roots))
	for _, h := range roots {
		out = append(out, t.snapshotLocked(t.nodes[h]))
	}
	return out
}

func (t *Tree) snapshotLocked(n *node) Node {
	out := Node{
		Handle:  n.handle,
		Type:    n.typ,
		Visible: n.shown || t.screen == n.handle,
	}
	if len(n.props) > 0 {
		out.Properties = make(map[string]string, len(n.props))
		for k, v := range n.props {
			out.Properties[k] = v
		}
	}
	for _, c := range n.stack {
		if child, ok := t.nodes[c]; ok {
			out.Stack = append(out.Stack, t.snapshotLocked(child))
		}
	}
	for _, c := range n.children {
		if child, ok := t.nodes[c]; ok {
			out.Children = append(out.Children, t.snapshotLocked(child))
		}
	}
	return out
}

var (
	_ API         = (*Tree)(nil)
	_ EventSource = (*Tree)(nil)
)
