// Package debug owns the run log: the slog logger the CLI installs, and the
// component loggers each pipeline stage writes its trace through.
package debug

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
)

// Component tags run-log records with the pipeline stage that wrote them
type Component string

const (
	Parse   Component = "parse"
	Config  Component = "config"
	Collect Component = "collect"
	Sync    Component = "sync"
	Resolve Component = "resolve"
	LSP     Component = "lsp"
	MCP     Component = "mcp"
)

var mcpMode atomic.Bool

// SetMCPMode quiets the trace while serving MCP over stdio. Warnings and errors
// still reach the run log.
func SetMCPMode(enabled bool) {
	mcpMode.Store(enabled)
}

// MCPMode reports whether SetMCPMode is in effect
func MCPMode() bool {
	return mcpMode.Load()
}

// Logger returns the run log tagged with c
func Logger(c Component) *slog.Logger {
	return slog.Default().With("component", string(c))
}

// ForRepo returns the run log of c scoped to one repository and language
func ForRepo(c Component, repoID, lang string) *slog.Logger {
	return Logger(c).With("repo", repoID, "lang", lang)
}

// Log writes a debug-level trace record for c. The message is formatted like
// fmt.Printf; a trailing newline is dropped.
func Log(c Component, format string, args ...any) {
	Trace(Logger(c), format, args...)
}

// Trace writes a debug-level record through logger, unless MCP mode is on
func Trace(logger *slog.Logger, format string, args ...any) {
	if mcpMode.Load() || !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	logger.Debug(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}
