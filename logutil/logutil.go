// logutil.go - slog-Logger mit TRACE-Level
// Dieses Modul baut den Prozess-Logger (Text-Handler, Quellangabe ab DEBUG)
// und stellt Trace-Hilfen fuer sehr ausfuehrliche Ausgaben bereit.
package logutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
)

// LevelTrace liegt unterhalb von slog.LevelDebug (RISKGPU_DEBUG=2).
const LevelTrace slog.Level = -8

// NewLogger erstellt einen Text-Logger auf w.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				if lvl, ok := attr.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					attr.Value = slog.StringValue("TRACE")
				}
			case slog.SourceKey:
				if source, ok := attr.Value.Any().(*slog.Source); ok {
					source.File = filepath.Base(source.File)
				}
			}
			return attr
		},
	}))
}

// Trace loggt auf LevelTrace ueber den Default-Logger.
func Trace(msg string, args ...any) {
	TraceContext(context.TODO(), msg, args...)
}

func TraceContext(ctx context.Context, msg string, args ...any) {
	slog.Default().Log(ctx, LevelTrace, msg, args...)
}

// Enabled meldet, ob l auf level ausgeben wuerde.
func Enabled(l *slog.Logger, level slog.Level) bool {
	return l.Enabled(context.TODO(), level)
}
