package logging

import (
	"context"
	"log/slog"

	context_ "github.com/mkrupp/userdir/internal/infra/context"
)

// ContextAttr extracts a request-scoped attribute from ctx.
type ContextAttr func(ctx context.Context) (slog.Attr, bool)

// TraceIDAttr renders the request trace id as trace.id.
func TraceIDAttr(ctx context.Context) (slog.Attr, bool) {
	traceID, ok := context_.TraceIDFromContext(ctx)
	if !ok || traceID == "" {
		return slog.Attr{}, false
	}

	return slog.Group("trace", slog.String("id", traceID)), true
}

// TracingHandler adds request-scoped attributes found in the context
// to every record before passing it on.
type TracingHandler struct {
	next  slog.Handler
	attrs []ContextAttr
}

var _ slog.Handler = (*TracingHandler)(nil)

// NewTracingHandler wraps next. Without extractors the trace id is added.
func NewTracingHandler(next slog.Handler, attrs ...ContextAttr) *TracingHandler {
	if len(attrs) == 0 {
		attrs = []ContextAttr{TraceIDAttr}
	}

	return &TracingHandler{next: next, attrs: attrs}
}

// Handle implements slog.Handler.
func (h *TracingHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, extract := range h.attrs {
		if attr, ok := extract(ctx); ok {
			r.AddAttrs(attr)
		}
	}

	//nolint:wrapcheck
	return h.next.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *TracingHandler) WithAttrs(attrs []slog.Attr) Handler {
	return &TracingHandler{next: h.next.WithAttrs(attrs), attrs: h.attrs}
}

// WithGroup implements slog.Handler.
func (h *TracingHandler) WithGroup(name string) Handler {
	return &TracingHandler{next: h.next.WithGroup(name), attrs: h.attrs}
}

// Enabled implements slog.Handler.
func (h *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}
