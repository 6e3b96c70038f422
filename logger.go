package trajstore

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger with trajstore-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithRun adds the run id to every record.
func (l *Logger) WithRun(id uuid.UUID) *Logger {
	return &Logger{
		Logger: l.Logger.With("run", id.String()),
	}
}

// LogSegmentOpened logs the start of a new segment.
func (l *Logger) LogSegmentOpened(ctx context.Context, ordinal uint64, path string) {
	l.DebugContext(ctx, "segment opened",
		"segment", ordinal,
		"path", path,
	)
}

// LogRollover logs the sealing of a full segment.
func (l *Logger) LogRollover(ctx context.Context, ordinal uint64, frames int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "segment rollover failed",
			"segment", ordinal,
			"frames", frames,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "segment sealed",
			"segment", ordinal,
			"frames", frames,
		)
	}
}

// LogSlice logs an episode retrieval.
func (l *Logger) LogSlice(ctx context.Context, env, episode, frames, dropped int, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "episode retrieval failed",
			"env", env,
			"episode", episode,
			"error", err,
		)
	case dropped > 0:
		l.WarnContext(ctx, "episode retrieved with dropped frames",
			"env", env,
			"episode", episode,
			"frames", frames,
			"dropped", dropped,
		)
	default:
		l.DebugContext(ctx, "episode retrieved",
			"env", env,
			"episode", episode,
			"frames", frames,
		)
	}
}

// LogTileDropped logs a frame that could not be decoded.
func (l *Logger) LogTileDropped(ctx context.Context, ordinal uint64, offset int, err error) {
	l.WarnContext(ctx, "frame dropped",
		"segment", ordinal,
		"offset", offset,
		"error", err,
	)
}

// LogClose logs the shutdown of a store.
func (l *Logger) LogClose(ctx context.Context, segments int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "close failed",
			"segments", segments,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "store closed",
			"segments", segments,
		)
	}
}
