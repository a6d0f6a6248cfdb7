package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestToOTelAttributes(t *testing.T) {
	attrs := toOTelAttributes([]Attribute{
		String(AttrOperation, "approve_request"),
		Bool("cached", true),
		Int64(AttrBytes, 42),
		{Key: "ignored", Value: struct{}{}},
	})
	require.Len(t, attrs, 3)
	assert.Equal(t, attribute.String(AttrOperation, "approve_request"), attrs[0])
	assert.Equal(t, attribute.Bool("cached", true), attrs[1])
	assert.Equal(t, attribute.Int64(AttrBytes, 42), attrs[2])
	assert.Nil(t, toOTelAttributes(nil))
}

func TestOTelTracer_StartEnd(t *testing.T) {
	tr := NewOTel()
	ctx, span := tr.Start(context.Background(), SpanLedgerCall, String(AttrOperation, "get_identity"))
	require.NotNil(t, ctx)
	span.AddEvent("retry")
	span.End(errors.New("boom"))
}

func TestOrNoop(t *testing.T) {
	assert.IsType(t, &NoopTracer{}, OrNoop(nil))
	otel := NewOTel()
	assert.Same(t, otel, OrNoop(otel))
}
