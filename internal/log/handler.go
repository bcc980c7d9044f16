package log

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxValueLength is the longest string value kept intact.
const DefaultMaxValueLength = 512

// truncationMarker is appended to values cut at the maximum length.
const truncationMarker = "…"

// Log formats accepted by Options.Format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// CleanHandler wraps an slog.Handler and rewrites string attribute values
// before passing records on: control characters become spaces and values
// longer than the limit are truncated.
type CleanHandler struct {
	handler slog.Handler
	limit   int
}

// NewCleanHandler creates a CleanHandler wrapping handler. A non-positive
// limit selects DefaultMaxValueLength. If handler is nil,
// slog.Default().Handler() is used.
func NewCleanHandler(handler slog.Handler, limit int) *CleanHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	if limit <= 0 {
		limit = DefaultMaxValueLength
	}
	return &CleanHandler{handler: handler, limit: limit}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *CleanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle cleans the record's message and attributes and passes it to the
// underlying handler.
func (h *CleanHandler) Handle(ctx context.Context, r slog.Record) error {
	cleaned := slog.NewRecord(r.Time, r.Level, h.clean(r.Message), r.PC)

	r.Attrs(func(a slog.Attr) bool {
		cleaned.AddAttrs(h.cleanAttr(a))
		return true
	})

	return h.handler.Handle(ctx, cleaned)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are cleaned before being added.
func (h *CleanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cleaned := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		cleaned[i] = h.cleanAttr(a)
	}
	return &CleanHandler{handler: h.handler.WithAttrs(cleaned), limit: h.limit}
}

// WithGroup returns a new handler with the given group name.
func (h *CleanHandler) WithGroup(name string) slog.Handler {
	return &CleanHandler{handler: h.handler.WithGroup(name), limit: h.limit}
}

// cleanAttr cleans a single attribute, recursively handling groups.
func (h *CleanHandler) cleanAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		cleaned := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			cleaned[i] = h.cleanAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(cleaned...)}
	case slog.KindString:
		return slog.String(a.Key, h.clean(a.Value.String()))
	default:
		return a
	}
}

func (h *CleanHandler) clean(s string) string {
	if strings.IndexFunc(s, unicode.IsControl) >= 0 {
		s = strings.Map(func(r rune) rune {
			if unicode.IsControl(r) {
				return ' '
			}
			return r
		}, s)
	}
	if utf8.RuneCountInString(s) <= h.limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:h.limit]) + truncationMarker
}

// Options configures New.
type Options struct {
	// Verbose lowers the level from Warn to Debug.
	Verbose bool

	// Format is FormatText or FormatJSON. Anything else selects text.
	Format string

	// MaxValueLength is passed to NewCleanHandler.
	MaxValueLength int
}

// New creates a logger writing to w.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - opts.Verbose: If true, sets log level to Debug; otherwise Warn
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if opts.Format == FormatJSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return slog.New(NewCleanHandler(handler, opts.MaxValueLength))
}
