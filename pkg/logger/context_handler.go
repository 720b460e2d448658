package logger

import (
	"context"
	"log/slog"
)

// ContextExtractor extracts a slog attribute from context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

type attrsKey struct{}

// ContextWithAttrs returns a copy of ctx whose log records carry attrs, in
// addition to any attached by an outer call. Client code uses it to tag a
// whole operation, e.g. with GuestID or Remote.
func ContextWithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}
	prev, _ := ctx.Value(attrsKey{}).([]slog.Attr)
	merged := make([]slog.Attr, 0, len(prev)+len(attrs))
	merged = append(merged, prev...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, attrsKey{}, merged)
}

// contextHandler adds attributes taken from the record's context. A key the
// record already carries is not added a second time.
type contextHandler struct {
	next       slog.Handler
	extractors []ContextExtractor
}

// NewContextHandler wraps next so every record also carries the attributes
// attached with ContextWithAttrs and those returned by extractors. Nil
// extractors are dropped.
func NewContextHandler(next slog.Handler, extractors ...ContextExtractor) slog.Handler {
	clean := make([]ContextExtractor, 0, len(extractors))
	for _, ex := range extractors {
		if ex != nil {
			clean = append(clean, ex)
		}
	}
	return &contextHandler{next: next, extractors: clean}
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	attached, _ := ctx.Value(attrsKey{}).([]slog.Attr)
	if len(attached) == 0 && len(h.extractors) == 0 {
		return h.next.Handle(ctx, rec)
	}

	seen := make(map[string]struct{}, rec.NumAttrs())
	rec.Attrs(func(a slog.Attr) bool {
		seen[a.Key] = struct{}{}
		return true
	})
	add := func(a slog.Attr) {
		if a.Key == "" {
			return
		}
		if _, dup := seen[a.Key]; dup {
			return
		}
		seen[a.Key] = struct{}{}
		rec.AddAttrs(a)
	}

	for _, a := range attached {
		add(a)
	}
	for _, ex := range h.extractors {
		if a, ok := ex(ctx); ok {
			add(a)
		}
	}
	return h.next.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs), extractors: h.extractors}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), extractors: h.extractors}
}
