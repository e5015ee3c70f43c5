package otel

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdoutExporterWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewProvider(context.Background(), Config{UseStdout: true, Writer: &buf, ServiceVersion: "test"})
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "gate.Invoke")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "gate.Invoke")
	assert.Contains(t, buf.String(), "xmcp")
}

func TestInitWithoutExporter(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
