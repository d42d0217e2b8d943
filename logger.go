package fairy

import (
	"context"
	"log/slog"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// fairy is single-threaded; no atomic needed.
var pkgLogger = slog.New(nopHandler{})

// SetLogger configures the logger used by the scene graph. By default nothing
// is logged. Pass nil to restore the silent default.
//
// Levels used:
//   - [slog.LevelDebug]: per-frame stats when the stage is in debug mode
//   - [slog.LevelWarn]: stale resources (host-destroyed nodes, disposed textures)
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	pkgLogger = l
}

// Logger returns the active logger.
func Logger() *slog.Logger {
	return pkgLogger
}
