// Package pipelog configures the single charmbracelet/log logger used
// across the pipeline, following the teacher's pattern (internal/daemon
// takes a *log.Logger via its options struct, falling back to
// log.Default() when none is given) rather than a package-level global.
package pipelog

import (
	"os"

	"github.com/charmbracelet/log"
)

// New builds a logger writing to stderr with timestamps and an "aidb"
// prefix. debug toggles DebugLevel; otherwise
// InfoLevel.
func New(debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "aidb",
	})
	return logger
}

// Fallback returns logger if non-nil, otherwise log.Default(), mirroring
// the nil-check in the teacher's NewNotificationManager.
func Fallback(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.Default()
	}
	return logger
}
