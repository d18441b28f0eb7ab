package tilestore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Attribute keys used on every tilestore log line.
const (
	LogKeyBlob     = "blob"
	LogKeyTile     = "tile"
	LogKeyFragment = "fragment"
	LogKeyBytes    = "bytes"
	LogKeyTiles    = "tiles"
	LogKeyDuration = "duration"
)

// Logger is a slog.Logger with helpers for tile operations.
type Logger struct {
	*slog.Logger
}

// NewLogger wraps handler. A nil handler logs text at Info to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		return NewTextLogger(os.Stderr, slog.LevelInfo)
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger logs JSON lines at or above level to w.
func NewJSONLogger(w io.Writer, level slog.Leveler) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger logs logfmt lines at or above level to w.
func NewTextLogger(w io.Writer, level slog.Leveler) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger discards everything.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithTile returns a logger tagging lines with a tile and the blob holding it.
func (l *Logger) WithTile(blob string, id uint32) *Logger {
	return &Logger{Logger: l.With(LogKeyBlob, blob, LogKeyTile, id)}
}

// WithFragment returns a logger tagging lines with a fragment id.
func (l *Logger) WithFragment(id string) *Logger {
	return &Logger{Logger: l.With(LogKeyFragment, id)}
}

// LogTileWrite logs a tile write at Debug, or at Error when err is set.
func (l *Logger) LogTileWrite(ctx context.Context, blob string, n uint64, d time.Duration, err error) {
	l.op(ctx, "tile write", err,
		slog.String(LogKeyBlob, blob), slog.Uint64(LogKeyBytes, n), slog.Duration(LogKeyDuration, d))
}

// LogTileRead logs a tile read at Debug, or at Error when err is set.
func (l *Logger) LogTileRead(ctx context.Context, blob string, n uint64, d time.Duration, err error) {
	l.op(ctx, "tile read", err,
		slog.String(LogKeyBlob, blob), slog.Uint64(LogKeyBytes, n), slog.Duration(LogKeyDuration, d))
}

// LogCommit logs a fragment commit at Info, or at Error when err is set.
func (l *Logger) LogCommit(ctx context.Context, fragmentID string, tiles int, d time.Duration, err error) {
	attrs := []slog.Attr{
		slog.String(LogKeyFragment, fragmentID), slog.Int(LogKeyTiles, tiles), slog.Duration(LogKeyDuration, d),
	}
	if err != nil {
		l.op(ctx, "fragment commit", err, attrs...)
		return
	}
	l.LogAttrs(ctx, slog.LevelInfo, "fragment commit", attrs...)
}

func (l *Logger) op(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if err != nil {
		l.LogAttrs(ctx, slog.LevelError, msg+" failed", append(attrs, slog.Any("error", err))...)
		return
	}
	l.LogAttrs(ctx, slog.LevelDebug, msg, attrs...)
}
