package widget

// EventKind identifies the kind of a native widget event.
type EventKind int

// Event kinds reported by native widgets. The numeric values are the ones
// used on the native side.
const (
	EventUnknown                  EventKind = 0
	EventPointerPressed           EventKind = 2
	EventPointerReleased          EventKind = 3
	EventContentLoaded            EventKind = 4
	EventClicked                  EventKind = 5
	EventItemClicked              EventKind = 6
	EventTabChanged               EventKind = 7
	EventGLViewReady              EventKind = 8
	EventWebViewURLChanged        EventKind = 9
	EventStackScreenPopped        EventKind = 10
	EventSliderValueChanged       EventKind = 11
	EventDatePickerValueChanged   EventKind = 12
	EventNumberPickerValueChanged EventKind = 14
	EventVideoStateChanged        EventKind = 15
	EventEditBoxEditingDidBegin   EventKind = 16
	EventEditBoxEditingDidEnd     EventKind = 17
	EventEditBoxTextChanged       EventKind = 18
	EventEditBoxReturn            EventKind = 19
	EventWebViewContentLoading    EventKind = 20
	EventWebViewHookInvoked       EventKind = 21
	EventDialogDismissed          EventKind = 22
)

var eventKindNames = map[EventKind]string{
	EventPointerPressed:           "PointerPressed",
	EventPointerReleased:          "PointerReleased",
	EventContentLoaded:            "ContentLoaded",
	EventClicked:                  "Clicked",
	EventItemClicked:              "ItemClicked",
	EventTabChanged:               "TabChanged",
	EventGLViewReady:              "GLViewReady",
	EventWebViewURLChanged:        "WebViewURLChanged",
	EventStackScreenPopped:        "StackScreenPopped",
	EventSliderValueChanged:       "SliderValueChanged",
	EventDatePickerValueChanged:   "DatePickerValueChanged",
	EventNumberPickerValueChanged: "NumberPickerValueChanged",
	EventVideoStateChanged:        "VideoStateChanged",
	EventEditBoxEditingDidBegin:   "EditBoxEditingDidBegin",
	EventEditBoxEditingDidEnd:     "EditBoxEditingDidEnd",
	EventEditBoxTextChanged:       "EditBoxTextChanged",
	EventEditBoxReturn:            "EditBoxReturn",
	EventWebViewContentLoading:    "WebViewContentLoading",
	EventWebViewHookInvoked:       "WebViewHookInvoked",
	EventDialogDismissed:          "DialogDismissed",
}

// String returns the event name used by the web layer.
// Kinds outside the enumeration are named "Unknown".
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Known reports whether k is one of the enumerated kinds.
func (k EventKind) Known() bool {
	_, ok := eventKindNames[k]
	return ok
}

// EventKinds returns every enumerated kind.
func EventKinds() []EventKind {
	kinds := make([]EventKind, 0, len(eventKindNames))
	for k := range eventKindNames {
		kinds = append(kinds, k)
	}
	return kinds
}

// Event is a native widget event. The meaning of the three parameters
// depends on Kind (pointer coordinates, picker values, flags) and is not
// interpreted by the bridge.
type Event struct {
	Handle Handle
	Kind   EventKind
	Param1 int
	Param2 int
	Param3 int
}
