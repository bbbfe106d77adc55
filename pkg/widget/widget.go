// Package widget defines the native widget API the bridge forwards to.
//
// The API mirrors the flat, handle-based native UI calls: every operation
// takes and returns plain integers so that results can be relayed to the web
// layer verbatim. Negative results are error codes from the Res* set.
package widget

import "strconv"

// Handle is an opaque identifier for a native UI element.
// Valid handles are strictly positive.
type Handle int32

// String returns the handle in decimal form.
func (h Handle) String() string {
	return strconv.FormatInt(int64(h), 10)
}

// Valid reports whether h could name a widget.
func (h Handle) Valid() bool {
	return h > 0
}

// Result codes returned by native widget operations.
const (
	ResOK                      = 0
	ResError                   = -2
	ResInvalidPropertyName     = -3
	ResInvalidPropertyValue    = -4
	ResInvalidHandle           = -5
	ResInvalidTypeName         = -6
	ResInvalidIndex            = -7
	ResInvalidStringBufferSize = -8
	ResInvalidScreen           = -9
	ResInvalidLayout           = -10
	ResRemovedRoot             = -11
	ResFeatureNotAvailable     = -12
	ResCannotInsertDialog      = -13
)

// API is the native widget subsystem. Implementations own the widgets; the
// bridge only passes handles through.
type API interface {
	// Create creates a widget of the given type. A result <= 0 is an error code.
	Create(widgetType string) Handle
	// Destroy destroys a widget and its children.
	Destroy(h Handle) int
	// AddChild appends child to parent.
	AddChild(parent, child Handle) int
	// InsertChild inserts child into parent at index; -1 appends.
	InsertChild(parent, child Handle, index int) int
	// RemoveChild detaches child from its parent.
	RemoveChild(child Handle) int
	// ModalDialogShow shows a modal dialog.
	ModalDialogShow(dialog Handle) int
	// ModalDialogHide hides a modal dialog.
	ModalDialogHide(dialog Handle) int
	// ScreenShow makes a screen the visible root.
	ScreenShow(screen Handle) int
	// StackScreenPush pushes screen onto a stack screen.
	StackScreenPush(stack, screen Handle) int
	// StackScreenPop pops the top screen of a stack screen.
	StackScreenPop(stack Handle) int
	// SetProperty sets a string property.
	SetProperty(h Handle, name, value string) int
	// GetProperty reads a string property. The value is only meaningful
	// when the result is non-negative.
	GetProperty(h Handle, name string) (string, int)
}

// EventSource delivers native widget events.
type EventSource interface {
	// Subscribe registers fn for every event and returns a function that
	// removes the registration.
	Subscribe(fn func(Event)) (cancel func())
}
