package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledIsNoop(t *testing.T) {
	p, err := NewProvider(Config{Enabled: false, Exporter: "bogus"}, nil)
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "x")
	span.End()

	assert.False(t, p.Enabled())
	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestStdoutWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(Config{Enabled: true, Exporter: ExporterStdout, ServiceName: "test"}, &buf)
	require.NoError(t, err)

	ctx, run := p.Tracer().Start(context.Background(), "run")
	_, st := p.Tracer().Start(ctx, "TensorNorm")
	st.End()
	run.End()
	require.NoError(t, p.Shutdown(context.Background()))

	out := buf.String()
	assert.True(t, p.Enabled())
	assert.Contains(t, out, `"Name":"TensorNorm"`)
	assert.Contains(t, out, `"Name":"run"`)
	assert.Contains(t, out, `"test"`)
}

func TestNoneExporterStillTraces(t *testing.T) {
	p, err := NewProvider(Config{Enabled: true, Exporter: ExporterNone}, nil)
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	_, span := p.Tracer().Start(context.Background(), "x")
	defer span.End()

	assert.True(t, span.SpanContext().IsValid())
}

func TestValidateRejectsUnknownExporter(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: "otlp"}, nil)

	assert.ErrorContains(t, err, "otlp")
	assert.NoError(t, DefaultConfig().Validate())
}
