package errors

import (
	"sync"

	"go.uber.org/zap"
)

// LogHandler is an ErrorHandler that writes errors to a zap logger.
type LogHandler struct {
	// Logger receives the entries. When nil a production logger writing
	// to stderr is created on first use.
	Logger *zap.Logger
	// Verbose enables detailed output including stack traces.
	Verbose bool

	once sync.Once
	log  *zap.Logger
}

func (h *LogHandler) logger() *zap.Logger {
	h.once.Do(func() {
		h.log = h.Logger
		if h.log == nil {
			l, err := zap.NewProduction()
			if err != nil {
				l = zap.NewNop()
			}
			h.log = l
		}
		h.log = h.log.Named("nativeui")
	})
	return h.log
}

// HandleError logs a BridgeError.
func (h *LogHandler) HandleError(err *BridgeError) {
	if err == nil {
		return
	}
	fields := []zap.Field{
		zap.String("op", err.Op),
		zap.Stringer("kind", err.Kind),
		zap.Error(err.Err),
	}
	if err.Namespace != "" {
		fields = append(fields, zap.String("namespace", err.Namespace))
	}
	if err.Action != "" {
		fields = append(fields, zap.String("action", err.Action))
	}
	if h.Verbose && err.StackTrace != "" {
		fields = append(fields, zap.String("stack", err.StackTrace))
	}
	h.logger().Error("bridge error", fields...)
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	fields := []zap.Field{
		zap.String("op", err.Op),
		zap.Any("value", err.Value),
	}
	if err.Namespace != "" {
		fields = append(fields, zap.String("namespace", err.Namespace))
	}
	if err.Action != "" {
		fields = append(fields, zap.String("action", err.Action))
	}
	if h.Verbose && err.StackTrace != "" {
		fields = append(fields, zap.String("stack", err.StackTrace))
	}
	h.logger().Error("bridge panic", fields...)
}
