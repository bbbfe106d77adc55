package platform

// zeroBridge answers every method call with a zero result and accepts
// every stream request.
type zeroBridge struct{}

func (zeroBridge) InvokeMethod(channel, method string, args []byte) ([]byte, error) {
	return DefaultCodec.Encode(map[string]any{"result": 0})
}
func (zeroBridge) StartEventStream(string) error { return nil }
func (zeroBridge) StopEventStream(string) error  { return nil }

// SetupTestBridge installs a native bridge whose calls all succeed with
// result 0, and runs dispatched callbacks synchronously. cleanup is
// usually t.Cleanup; the registered teardown calls ResetForTest.
//
//	platform.SetupTestBridge(t.Cleanup)
func SetupTestBridge(cleanup func(func())) {
	SetNativeBridge(zeroBridge{})
	SetupTestDispatch(cleanup)
	cleanup(ResetForTest)
}

// SetupTestDispatch runs dispatched callbacks synchronously until the
// registered teardown clears the dispatch function.
func SetupTestDispatch(cleanup func(func())) {
	RegisterDispatch(func(cb func()) { cb() })
	cleanup(func() { RegisterDispatch(nil) })
}
