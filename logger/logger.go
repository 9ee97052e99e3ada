// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package logger provides the slog handler used by the simulator commands.
//
// Records are written on a single line:
//
//	2024/01/02 15:04:05 WARN: signal conflict tick=42 winner=u1.out
//
// to an optional log file and mirrored to the console. Debug records are only
// mirrored when debug output is enabled.
//
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogHandler is a slog.Handler writing human readable records to a log file
// and to the console.
//
type LogHandler struct {
	out     io.Writer
	console io.Writer
	level   slog.Leveler
	attrs   []slog.Attr
	group   string
	mu      *sync.Mutex
	debug   *bool
}

// NewHandler returns a new handler writing to file, which may be nil. Records
// are mirrored to os.Stderr. Only opts.Level is used.
//
func NewHandler(file io.Writer, opts *slog.HandlerOptions, debug bool) *LogHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	lvl := opts.Level
	if lvl == nil {
		lvl = slog.LevelInfo
	}
	return &LogHandler{
		out:     file,
		console: os.Stderr,
		level:   lvl,
		mu:      &sync.Mutex{},
		debug:   &debug,
	}
}

// SetConsole changes the console output. A nil w disables console output.
//
func (h *LogHandler) SetConsole(w io.Writer) {
	h.mu.Lock()
	h.console = w
	h.mu.Unlock()
}

// SetDebug enables or disables mirroring of debug records to the console.
// It affects all handlers derived from h.
//
func (h *LogHandler) SetDebug(debug bool) {
	h.mu.Lock()
	*h.debug = debug
	h.mu.Unlock()
}

func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LogHandler) clone() *LogHandler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	return &c
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	for _, a := range attrs {
		c.attrs = append(c.attrs, h.qualify(a))
	}
	return c
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	if c.group != "" {
		c.group += "."
	}
	c.group += name
	return c
}

func (h *LogHandler) qualify(a slog.Attr) slog.Attr {
	if h.group != "" {
		a.Key = h.group + "." + a.Key
	}
	return a
}

func appendAttr(b *strings.Builder, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			if a.Key != "" {
				ga.Key = a.Key + "." + ga.Key
			}
			appendAttr(b, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(a.Key)
	b.WriteByte('=')
	v := a.Value.String()
	if v == "" || strings.ContainsAny(v, " \t\n\"=") {
		v = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	b.WriteString(v)
}

func (h *LogHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	if !r.Time.IsZero() {
		b.WriteString(r.Time.Format("2006/01/02 15:04:05"))
		b.WriteByte(' ')
	}
	b.WriteString(r.Level.String())
	b.WriteString(": ")
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		appendAttr(&b, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.qualify(a))
		return true
	})
	b.WriteByte('\n')
	buf := []byte(b.String())

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.out != nil {
		_, err = h.out.Write(buf)
	}
	if h.console != nil && (*h.debug || r.Level > slog.LevelDebug) {
		if _, cerr := h.console.Write(buf); err == nil {
			err = cerr
		}
	}
	return err
}
