// Package debug writes component-tagged diagnostics for atomscan and the
// interning registry. Nothing is written unless debugging is enabled and an
// output is configured.
//
// Debugging is enabled for every component by the EnableDebug build flag or
// DEBUG=1 (also "true" or "all"). DEBUG may instead name components, as in
// DEBUG=scan,watch, to enable only those.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Build flag for debug mode - can be overridden at build time
// go build -ldflags "-X github.com/standardbeagle/atom/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// Components accepted by Log
const (
	ComponentIntern = "INTERN"
	ComponentScan   = "SCAN"
	ComponentWatch  = "WATCH"
)

var (
	mu     sync.Mutex
	output io.Writer
	file   *os.File
)

// SetDebugOutput sets the writer for debug output. Pass nil to disable output.
func SetDebugOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// InitDebugLogFile directs debug output to a new file under
// $TMPDIR/atomscan-debug-logs and returns its path. Call CloseDebugLog when done.
func InitDebugLogFile() (string, error) {
	mu.Lock()
	defer mu.Unlock()

	logDir := filepath.Join(os.TempDir(), "atomscan-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	name := fmt.Sprintf("atomscan-%d-%s.log", os.Getpid(), time.Now().Format("20060102T150405"))
	logPath := filepath.Join(logDir, name)

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	if file != nil {
		file.Close()
	}
	file = f
	output = f
	return logPath, nil
}

// CloseDebugLog closes the debug log file if one is open.
func CloseDebugLog() error {
	mu.Lock()
	defer mu.Unlock()

	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	output = nil
	return err
}

// IsDebugEnabled reports whether any component has debugging enabled.
func IsDebugEnabled() bool {
	if EnableDebug == "true" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEBUG"))) {
	case "", "0", "false":
		return false
	}
	return true
}

// ComponentEnabled reports whether debugging is enabled for component.
func ComponentEnabled(component string) bool {
	if EnableDebug == "true" {
		return true
	}

	env := strings.TrimSpace(os.Getenv("DEBUG"))
	switch strings.ToLower(env) {
	case "", "0", "false":
		return false
	case "1", "true", "all":
		return true
	}

	for _, name := range strings.Split(env, ",") {
		if strings.EqualFold(strings.TrimSpace(name), component) {
			return true
		}
	}
	return false
}

// Log writes one message tagged with component. The whole message is written
// under the lock so concurrent messages never interleave.
func Log(component, format string, args ...interface{}) {
	if !ComponentEnabled(component) {
		return
	}

	mu.Lock()
	defer mu.Unlock()
	if output == nil {
		return
	}
	fmt.Fprintf(output, "[DEBUG:%s] %s", component, fmt.Sprintf(format, args...))
}

// LogIntern logs registry events such as fingerprint collisions
func LogIntern(format string, args ...interface{}) {
	Log(ComponentIntern, format, args...)
}

// LogScan logs file scanning
func LogScan(format string, args ...interface{}) {
	Log(ComponentScan, format, args...)
}

// LogWatch logs file watcher events
func LogWatch(format string, args ...interface{}) {
	Log(ComponentWatch, format, args...)
}
