// handler.go - terminal and discard slog handlers
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// TerminalHandler prints one line per record:
//
//	WARN |cpu|stub instruction executed mnemonic=mfence pc=0x401000
type TerminalHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Level
	attrs []slog.Attr
}

func NewTerminalHandler(w io.Writer, level slog.Level) *TerminalHandler {
	return &TerminalHandler{mu: new(sync.Mutex), w: w, level: level}
}

func (h *TerminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *TerminalHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	module := "-"
	var rest []slog.Attr
	collect := func(a slog.Attr) bool {
		if a.Key == moduleKey {
			module = a.Value.String()
		} else {
			rest = append(rest, a)
		}
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	fmt.Fprintf(&buf, "%s|%s|%s", LevelAlignedString(r.Level), module, r.Message)
	for _, a := range rest {
		fmt.Fprintf(&buf, " %s=%v", a.Key, a.Value.Resolve())
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *TerminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	n := *h
	n.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &n
}

// WithGroup is accepted but groups are flattened on output.
func (h *TerminalHandler) WithGroup(string) slog.Handler {
	return h
}

type discardHandler struct{}

// DiscardHandler returns a no-op handler
func DiscardHandler() slog.Handler {
	return &discardHandler{}
}

func (h *discardHandler) Handle(_ context.Context, r slog.Record) error {
	return nil
}

func (h *discardHandler) Enabled(_ context.Context, level slog.Level) bool {
	return false
}

func (h *discardHandler) WithGroup(name string) slog.Handler {
	return h
}

func (h *discardHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}
