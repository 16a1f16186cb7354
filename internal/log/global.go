package log

import "sync/atomic"

// process holds the logger that packages fall back to when their
// constructors are handed nil.
var process atomic.Pointer[Logger]

// SetDefaultLogger installs logger for the process. The CLI calls it once the
// config is loaded; nil resets to the lazy fallback.
func SetDefaultLogger(logger *Logger) {
	process.Store(logger)
}

// DefaultLogger returns the installed logger, installing Default() on first
// use if nothing was set. Concurrent first callers all get the same logger.
func DefaultLogger() *Logger {
	if l := process.Load(); l != nil {
		return l
	}
	process.CompareAndSwap(nil, Default())
	return process.Load()
}
