// Package logx provides category-tagged structured logging for the
// graph construction engine.
//
// Every GCE component gets its own named logger so operators can tell
// a Store Reader diagnostic from an Edge Synthesizer drop-count
// without grepping message text. Loggers are cheap to create and safe
// for concurrent use; callers typically hold one per component for
// its lifetime.
//
// Example:
//
//	log := logx.Get("store")
//	log.Warn("optional table absent, returning empty", "table", "neural_patterns")
package logx

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	handler slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
)

// Configure replaces the process-wide output and level for all future
// Get calls. Loggers already handed out keep the handler that was
// current when Get returned them, so reconfiguring does not change
// their output or level.
func Configure(w io.Writer, level slog.Level, json bool) {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: level}
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
}

// Get returns a logger tagged with category, e.g. "store", "edge",
// "topology". The category is attached as a structured field so log
// aggregation can filter by component without string parsing.
func Get(category string) *slog.Logger {
	mu.Lock()
	h := handler
	mu.Unlock()

	return slog.New(h).With("component", category)
}
