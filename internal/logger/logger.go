// Package logger provides leveled logging for the didact CLI.
// When verbose mode is enabled via the --verbose flag, debug and info
// messages are printed to stderr to help users follow the answer pipeline.
// Warnings and errors are always printed.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	backend           = newBackend(os.Stderr, false)
)

func newBackend(w io.Writer, v bool) *charmlog.Logger {
	level := charmlog.WarnLevel
	if v {
		level = charmlog.DebugLevel
	}
	l := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: v,
		TimeFormat:      "15:04:05",
		Level:           level,
	})
	l.SetFormatter(charmlog.TextFormatter)
	return l
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	backend = newBackend(output, verbose)
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	backend = newBackend(output, verbose)
}

// With returns a child logger carrying the given key/value pairs.
func With(keyvals ...any) *charmlog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return backend.With(keyvals...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	backend.Debug(fmt.Sprintf(format, args...))
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	backend.Info(fmt.Sprintf(format, args...))
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	backend.Warn(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	backend.Error(fmt.Sprintf(format, args...))
}
