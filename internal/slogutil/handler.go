// Package slogutil builds the loggers used across devjourney.
//
// Console and file output use LineHandler:
//
//	2026-04-02T18:00:00Z [info] session: Saved journey | repo=api language=python
//
// The "session:" prefix comes from the component attribute set by Component.
package slogutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ComponentKey is the attribute rendered as a message prefix instead of a pair.
const ComponentKey = "component"

var bufPool = sync.Pool{New: func() any { return new([]byte) }}

// LineHandler is a slog.Handler producing one human readable line per record.
// Handlers derived with WithAttrs or WithGroup share the writer lock.
type LineHandler struct {
	out       *lockedWriter
	level     slog.Leveler
	component string
	prefix    string
	preformat []byte
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(p)
	return err
}

// NewLineHandler creates a handler writing to w. A nil opts logs at info.
func NewLineHandler(w io.Writer, opts *slog.HandlerOptions) *LineHandler {
	h := &LineHandler{out: &lockedWriter{w: w}, level: slog.LevelInfo}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	bp := bufPool.Get().(*[]byte)
	buf := (*bp)[:0]
	defer func() {
		*bp = buf
		bufPool.Put(bp)
	}()

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf = ts.UTC().AppendFormat(buf, time.RFC3339)
	buf = append(buf, " ["...)
	buf = append(buf, levelName(r.Level)...)
	buf = append(buf, "] "...)

	component := h.component
	var pairs []byte
	pairs = append(pairs, h.preformat...)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == ComponentKey && h.prefix == "" {
			component = a.Value.String()
			return true
		}
		pairs = appendAttr(pairs, h.prefix, a)
		return true
	})

	if component != "" {
		buf = append(buf, component...)
		buf = append(buf, ": "...)
	}
	buf = append(buf, r.Message...)
	if len(pairs) > 0 {
		buf = append(buf, " |"...)
		buf = append(buf, pairs...)
	}
	buf = append(buf, '\n')
	return h.out.write(buf)
}

func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.preformat = append([]byte(nil), h.preformat...)
	for _, a := range attrs {
		if a.Key == ComponentKey && h.prefix == "" {
			next.component = a.Value.String()
			continue
		}
		next.preformat = appendAttr(next.preformat, h.prefix, a)
	}
	return &next
}

func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// appendAttr writes " key=value", flattening groups into dotted keys.
func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner += a.Key + "."
		}
		for _, ga := range v.Group() {
			buf = appendAttr(buf, inner, ga)
		}
		return buf
	}
	if a.Key == "" {
		return buf
	}
	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	return append(buf, valueText(v)...)
}

func valueText(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		return v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=|") {
		return strconv.Quote(s)
	}
	return s
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	}
	return "debug"
}
