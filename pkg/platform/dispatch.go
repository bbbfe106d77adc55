package platform

import "sync"

var (
	dispatchMu   sync.RWMutex
	dispatchFunc func(callback func())
)

// RegisterDispatch sets the function that posts callbacks onto the bridge's
// event loop. The app registers its queue when it starts running and clears
// it with nil on Close. fn must not block.
func RegisterDispatch(fn func(callback func())) {
	dispatchMu.Lock()
	dispatchFunc = fn
	dispatchMu.Unlock()
}

// Dispatch posts callback to the event loop. It returns false when no loop
// is registered or callback is nil.
func Dispatch(callback func()) bool {
	dispatchMu.RLock()
	fn := dispatchFunc
	dispatchMu.RUnlock()
	if fn == nil || callback == nil {
		return false
	}
	fn(callback)
	return true
}

// DispatchOrRun posts callback to the event loop, or runs it on the calling
// goroutine when no loop is registered.
func DispatchOrRun(callback func()) {
	if callback != nil && !Dispatch(callback) {
		callback()
	}
}
