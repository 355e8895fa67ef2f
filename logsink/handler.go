package logsink

import (
	"context"
	"log/slog"
)

// Handler records info-and-above records into a Sink and forwards every
// record to an optional downstream handler.
type Handler struct {
	sink   *Sink
	next   slog.Handler
	attrs  []slog.Attr
	prefix string
}

// Handler returns a slog.Handler writing into s. next may be nil.
func (s *Sink) Handler(next slog.Handler) *Handler {
	return &Handler{sink: s, next: next}
}

func (h *Handler) Enabled(ctx context.Context, l slog.Level) bool {
	if l >= slog.LevelInfo {
		return true
	}
	return h.next != nil && h.next.Enabled(ctx, l)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelInfo {
		var details map[string]any
		add := func(a slog.Attr) bool {
			if details == nil {
				details = make(map[string]any)
			}
			details[h.prefix+a.Key] = a.Value.Resolve().Any()
			return true
		}
		for _, a := range h.attrs {
			if details == nil {
				details = make(map[string]any)
			}
			details[a.Key] = a.Value.Resolve().Any()
		}
		r.Attrs(add)
		h.sink.Add(LevelName(r.Level), r.Message, details)
	}
	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		c.attrs = append(c.attrs, a)
	}
	if h.next != nil {
		c.next = h.next.WithAttrs(attrs)
	}
	return &c
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	if h.next != nil {
		c.next = h.next.WithGroup(name)
	}
	return &c
}
