// Package tracer is a small tracing facade over OpenTelemetry.
//
// Ledger, blob-store and signing calls are the suspension points of the agent,
// so they are the ones wrapped in spans. Services depend on the Tracer interface
// only; tests use NoopTracer.
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once, typically via defer.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanLedgerCall      = "ledger.call"
	SpanBlobPut         = "blob.put"
	SpanBlobGet         = "blob.get"
	SpanSign            = "signer.sign"
	SpanDisclosureProve = "disclosure.prove"
	SpanReconcile       = "reconciler.handle"
)

// Attribute keys.
const (
	AttrOperation = "operation"
	AttrCaller    = "caller"
	AttrLocator   = "locator"
	AttrEventKind = "event.kind"
	AttrOutcome   = "outcome"
	AttrBytes     = "bytes"
)
