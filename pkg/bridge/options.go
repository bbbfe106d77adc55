package bridge

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Option configures a Router, Dispatcher, EventTranslator or
// ResourceHandler. Options that do not apply to a component are ignored.
type Option func(*settings)

type settings struct {
	logger           *zap.Logger
	metrics          *Metrics
	echoPropertyName bool
	httpClient       *http.Client
	remoteTimeout    time.Duration
}

// DefaultRemoteTimeout bounds a remote image download.
const DefaultRemoteTimeout = 10 * time.Second

func newSettings(opts []Option) settings {
	s := settings{
		logger:        zap.NewNop(),
		httpClient:    http.DefaultClient,
		remoteTimeout: DefaultRemoteTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records activity on m.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithPropertyNameEcho makes maWidgetGetProperty reply with the property
// name instead of its value, matching scripts written against the older
// runtime.
func WithPropertyNameEcho() Option {
	return func(s *settings) { s.echoPropertyName = true }
}

// WithHTTPClient sets the client used for remote images.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithRemoteTimeout bounds each remote image download. Non-positive values
// keep the default.
func WithRemoteTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.remoteTimeout = d
		}
	}
}
