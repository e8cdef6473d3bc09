// Package logger provides leveled logging for the docqa CLI.
// Debug, info and section output is only printed when verbose mode is
// enabled via the --verbose flag. Warnings and errors are always printed.
// All output goes to stderr so answers on stdout stay clean.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	verbose bool
	quiet   bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetQuiet suppresses warnings. Errors are still printed.
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Writer returns the current output writer.
func Writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return output
}

func printf(prefix, format string, args ...any) {
	fmt.Fprintf(output, prefix+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		printf("[DEBUG] ", format, args...)
	}
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
	if verbose {
		printf("[INFO] ", format, args...)
	}
}

// Warn prints a warning unless quiet mode is enabled.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !quiet {
		printf("[WARN] ", format, args...)
	}
}

// Error prints an error message.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	printf("[ERROR] ", format, args...)
}

// Timed logs the start of an operation and returns a function that logs
// its duration. Both lines are debug output.
//
//	done := logger.Timed("build index %s", id)
//	defer done()
func Timed(format string, args ...any) func() {
	name := fmt.Sprintf(format, args...)
	Debug("%s: started", name)
	start := time.Now()
	return func() {
		Debug("%s: done in %s", name, time.Since(start).Round(time.Millisecond))
	}
}
