package logging

import (
	"log/slog"
	"os"
)

// Init configures the process-wide logger. Production gets JSON at info
// level for log aggregation; everything else gets readable text at debug.
func Init(environment string) {
	var handler slog.Handler
	if environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}

// WithThread returns a logger bound to a conversation thread.
func WithThread(threadID string) *slog.Logger {
	return slog.Default().With("thread", threadID)
}
