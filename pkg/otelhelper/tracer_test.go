package otelhelper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewTracer_Disabled(t *testing.T) {
	tracer, shutdown, err := NewTracer(t.Context(), "docflow-test", false)
	require.NoError(t, err)

	_, span := StartSpan(t.Context(), tracer, "noop")
	span.End()

	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, shutdown(t.Context()))
}

func TestStartSpanAndSetError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("docflow-test")

	_, span := StartSpan(t.Context(), tracer, "generator.generate",
		attribute.String(WorkflowIDKey, "wf-1"),
	)
	SetError(span, errors.New("copy failed"), attribute.String(ExecutionIDKey, "ex-1"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "generator.generate", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "copy failed", ended[0].Status().Description)
	assert.Contains(t, ended[0].Attributes(), attribute.String(WorkflowIDKey, "wf-1"))
}
