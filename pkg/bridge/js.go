package bridge

import (
	"strconv"
	"strings"

	"github.com/go-drift/nativeui/pkg/widget"
)

// ScriptRunner evaluates JavaScript in the web layer.
type ScriptRunner interface {
	CallJS(script string)
}

// ScriptFunc adapts a function to ScriptRunner.
type ScriptFunc func(script string)

// CallJS calls f(script).
func (f ScriptFunc) CallJS(script string) { f(script) }

const hexDigits = "0123456789abcdef"

// quoteJS returns s as a JavaScript string literal delimited by q, which
// must be '\'' or '"'. The result is safe to embed in a script and in an
// HTML script element.
func quoteJS(s string, q byte) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte(q)
	for i, r := range s {
		switch {
		case r == '\\':
			sb.WriteString(`\\`)
		case r == rune(q):
			sb.WriteByte('\\')
			sb.WriteByte(q)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			sb.WriteString(`\u00`)
			sb.WriteByte(hexDigits[r>>4])
			sb.WriteByte(hexDigits[r&0xf])
		case r == '\u2028':
			sb.WriteString(`\u2028`)
		case r == '\u2029':
			sb.WriteString(`\u2029`)
		case r == '/' && i > 0 && s[i-1] == '<':
			sb.WriteString(`\/`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte(q)
	return sb.String()
}

func singleQuoted(s string) string { return quoteJS(s, '\'') }
func doubleQuoted(s string) string { return quoteJS(s, '"') }

// Acknowledgment scripts.
const processedMessageScript = "bridge.messagehandler.processedMessage()"

func replyScript(channelID string) string {
	return "bridge.messagehandler.reply(" + singleQuoted(channelID) + ")"
}

func successScript(callbackID, payload string) string {
	return "NativeUI.success(" + singleQuoted(callbackID) + ", " + payload + ")"
}

func errorScript(callbackID string, code int) string {
	return "NativeUI.error(" + singleQuoted(callbackID) + ", " + strconv.Itoa(code) + ")"
}

func createCallbackScript(callbackID, widgetID string, h widget.Handle) string {
	return "NativeUI.createCallback(" + singleQuoted(callbackID) + ", " +
		singleQuoted(widgetID) + ", " + h.String() + ")"
}

func eventScript(ev widget.Event) string {
	return "NativeUI.event(" + ev.Handle.String() + ", " + doubleQuoted(ev.Kind.String()) + ", " +
		strconv.Itoa(ev.Param1) + ", " + strconv.Itoa(ev.Param2) + ", " + strconv.Itoa(ev.Param3) + ")"
}

func imageLoadedScript(imageID string, handle int) string {
	return "bridge.ResourceHandler.imageLoaded(" + doubleQuoted(imageID) + ", " + strconv.Itoa(handle) + ")"
}

func imageDownloadStartedScript(imageID string, handle int) string {
	return "bridge.ResourceHandler.imageDownloadStarted(" + doubleQuoted(imageID) + ", " + strconv.Itoa(handle) + ")"
}

func imageDownloadFinishedScript(handle int) string {
	return "bridge.ResourceHandler.imageDownloadFinished(" + strconv.Itoa(handle) + ")"
}

func keyPressScript(keyCode, nativeCode int) string {
	return "keyPressEvent(" + strconv.Itoa(keyCode) + ", " + strconv.Itoa(nativeCode) + ")"
}
