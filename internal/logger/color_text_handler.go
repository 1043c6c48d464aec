package logger

import (
	"context"
	"io"
	"log/slog"
)

// TurnKey is the attribute naming the loop turn a record was logged from.
const TurnKey = "turn"

const ansiReset = "\033[0m"

var levelColors = map[slog.Level]string{
	slog.LevelDebug: "\033[36m",
	slog.LevelInfo:  "\033[32m",
	slog.LevelWarn:  "\033[33m",
	slog.LevelError: "\033[31m",
}

// ColorTextHandler is a slog.TextHandler that prefixes each message with a
// colored level. A string TurnKey attribute is moved into the prefix as
// "[name]" so loop faults read as "ERROR  [after:hesitation] ...".
type ColorTextHandler struct {
	inner slog.Handler
}

// NewColorTextHandler creates a ColorTextHandler. With showTime false the
// time attribute is omitted.
func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions, showTime bool) *ColorTextHandler {
	var o slog.HandlerOptions
	if opts != nil {
		o = *opts
	}
	if !showTime {
		replace := o.ReplaceAttr
		o.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			if replace != nil {
				return replace(groups, a)
			}
			return a
		}
	}
	return &ColorTextHandler{inner: slog.NewTextHandler(w, &o)}
}

func (h *ColorTextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ColorTextHandler) Handle(ctx context.Context, r slog.Record) error {
	color, ok := levelColors[r.Level]
	if !ok {
		color = ansiReset
	}
	prefix := color + r.Level.String() + ansiReset + "  "

	out := slog.NewRecord(r.Time, r.Level, "", r.PC)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == TurnKey && a.Value.Kind() == slog.KindString {
			prefix += "[" + a.Value.String() + "] "
			return true
		}
		out.AddAttrs(a)
		return true
	})
	out.Message = prefix + r.Message
	return h.inner.Handle(ctx, out)
}

func (h *ColorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorTextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ColorTextHandler) WithGroup(name string) slog.Handler {
	return &ColorTextHandler{inner: h.inner.WithGroup(name)}
}
