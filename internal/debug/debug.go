package debug

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/standardbeagle/csac/pkg/logger"
)

// Build flag for debug mode - can be overridden at build time
// go build -ldflags "-X github.com/standardbeagle/csac/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// MCPMode tracks if we're running in MCP mode (set by main)
var MCPMode = false

var (
	sinkMu sync.Mutex
	sink   *logr.Logger
)

// SetMCPMode enables MCP mode which suppresses all debug output
func SetMCPMode(enabled bool) {
	MCPMode = enabled
}

// SetLogger routes debug output to l. Pass nil to fall back to the global logger.
func SetLogger(l *logr.Logger) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	sink = l
}

func currentSink() *logr.Logger {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if sink != nil {
		return sink
	}
	return logger.GetGlobalLogger()
}

// IsDebugEnabled returns true if debug mode is enabled and we're not in MCP mode
func IsDebugEnabled() bool {
	if MCPMode {
		return false
	}

	if EnableDebug == "true" {
		return true
	}

	if v := os.Getenv("DEBUG"); v == "1" || v == "true" {
		return true
	}

	return false
}

// Log emits a component-scoped debug line at verbosity 1
func Log(component, format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	currentSink().WithName(strings.ToLower(component)).V(1).Info(msg)
}

// LogCatalog logs catalog population and lookup activity
func LogCatalog(format string, args ...interface{}) {
	Log("CATALOG", format, args...)
}

// LogAnalysis logs document re-analysis activity
func LogAnalysis(format string, args ...interface{}) {
	Log("ANALYSIS", format, args...)
}

// LogSession logs editor session events
func LogSession(format string, args ...interface{}) {
	Log("SESSION", format, args...)
}

// LogWatch logs library watcher events
func LogWatch(format string, args ...interface{}) {
	Log("WATCH", format, args...)
}

// LogMCP logs MCP server activity
func LogMCP(format string, args ...interface{}) {
	Log("MCP", format, args...)
}

// Fatal logs a catastrophic error and returns it. Callers decide whether to exit.
// In MCP mode the log line is suppressed.
func Fatal(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	err := fmt.Errorf("fatal error: %s", strings.TrimRight(msg, "\n"))
	if !MCPMode {
		currentSink().Error(err, "fatal")
	}
	return err
}
