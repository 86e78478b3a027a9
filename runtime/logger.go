package runtime

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/ar-placement/placement"
	"github.com/wippyai/ar-placement/registry"
	"github.com/wippyai/ar-placement/session"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the runtime package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the runtime package's logger and the loggers of the
// controllers it drives, each named after its package.
// This must be called before any runtime operations.
func SetLogger(l *zap.Logger) {
	logger = l
	session.SetLogger(l.Named("session"))
	registry.SetLogger(l.Named("registry"))
	placement.SetLogger(l.Named("placement"))
}
