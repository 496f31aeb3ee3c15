package logger

import (
	"log/slog"
	"os"
)

// New creates a JSON stdout logger at info level with optional context
// extractors.
func New(extractors ...ContextExtractor) *slog.Logger {
	return NewWithLevel(slog.LevelInfo, extractors...)
}

// NewWithLevel creates a JSON stdout logger at the given level. Debug
// level is useful when chasing cache invalidation ordering locally.
func NewWithLevel(level slog.Level, extractors ...ContextExtractor) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(NewLogHandlerDecorator(h, extractors...))
}
