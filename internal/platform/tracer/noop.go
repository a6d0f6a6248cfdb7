package tracer

import "context"

// NoopTracer discards all spans.
type NoopTracer struct{}

func NewNoop() *NoopTracer {
	return &NoopTracer{}
}

func (t *NoopTracer) Start(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(_ error)                       {}
func (noopSpan) SetAttributes(_ ...Attribute)      {}
func (noopSpan) AddEvent(_ string, _ ...Attribute) {}

// OrNoop returns t, or a NoopTracer when t is nil.
func OrNoop(t Tracer) Tracer {
	if t == nil {
		return NewNoop()
	}
	return t
}

var (
	_ Tracer = (*NoopTracer)(nil)
	_ Span   = noopSpan{}
)
