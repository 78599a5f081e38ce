// Package pepperlog provides the compositor's single, process-wide
// structured logger. Logging is an explicitly out-of-scope collaborator
// per the core spec, but every ambient log call in this repo goes
// through here, in the style gazed-vu uses log/slog: a package-level
// singleton, initialized lazily, never touched outside the main loop.
package pepperlog

import (
	"log/slog"
	"os"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// Logger returns the process-wide logger, creating the default
// text-handler-to-stderr logger on first use.
func Logger() *slog.Logger {
	once.Do(func() {
		if logger == nil {
			logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
		}
	})
	return logger
}

// SetLogger replaces the process-wide logger. It must be called before
// any other package calls Logger (typically from main, before the event
// loop starts) - this is the one piece of global mutable state the
// design notes call out explicitly, and it is documented as such rather
// than guarded by a mutex.
func SetLogger(l *slog.Logger) {
	logger = l
	once.Do(func() {})
}
