package common

import (
	"fmt"
	"log"
	"os"
)

// LoggerWrapper writes diagnostic traces to standard error, gated by the
// wrapper's debug config flag (spec §6: "debug (bool, default false):
// enables diagnostic traces to standard error"). Adapted from the teacher's
// verbosity-leveled logger, collapsed to a single on/off switch since cade
// has no daemon log file or log rotation to manage.
type LoggerWrapper struct {
	impl  *log.Logger
	debug bool
}

// MakeLogger constructs a logger that writes to stderr when debug is true,
// and discards Debug-level traces (but not Error) when debug is false.
func MakeLogger(debug bool) *LoggerWrapper {
	return &LoggerWrapper{
		impl:  log.New(os.Stderr, "", 0),
		debug: debug,
	}
}

func formatStr(prefix string, v ...any) string {
	return fmt.Sprintf("%s%s", prefix, fmt.Sprintln(v...))
}

// Debug emits a trace only when debug mode is enabled.
func (logger *LoggerWrapper) Debug(v ...any) {
	if logger.debug {
		_ = logger.impl.Output(0, formatStr("[cade] ", v...))
	}
}

// Error always emits, regardless of debug mode: propagated errors and
// provider-write failures must be visible to whoever is watching the
// build, not just in debug runs.
func (logger *LoggerWrapper) Error(v ...any) {
	_ = logger.impl.Output(0, formatStr("[cade] ", v...))
}
