package blobstore

import (
	"context"

	"dim/internal/platform/tracer"
	"dim/pkg/domain"
)

// Traced wraps a Store with spans around every call.
type Traced struct {
	next   Store
	tracer tracer.Tracer
}

func NewTraced(next Store, t tracer.Tracer) *Traced {
	return &Traced{next: next, tracer: tracer.OrNoop(t)}
}

func (t *Traced) Put(ctx context.Context, data []byte) (loc domain.Locator, err error) {
	ctx, span := t.tracer.Start(ctx, tracer.SpanBlobPut, tracer.Int64(tracer.AttrBytes, int64(len(data))))
	defer func() {
		span.SetAttributes(tracer.String(tracer.AttrLocator, string(loc)))
		span.End(err)
	}()
	return t.next.Put(ctx, data)
}

func (t *Traced) Get(ctx context.Context, locator domain.Locator) (data []byte, err error) {
	ctx, span := t.tracer.Start(ctx, tracer.SpanBlobGet, tracer.String(tracer.AttrLocator, string(locator)))
	defer func() { span.End(err) }()
	return t.next.Get(ctx, locator)
}
