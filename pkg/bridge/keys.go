package bridge

// ForwardKey passes a key press to the web layer's keyPressEvent function.
func ForwardKey(out ScriptRunner, keyCode, nativeCode int) {
	out.CallJS(keyPressScript(keyCode, nativeCode))
}
