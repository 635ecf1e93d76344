package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestWithContextAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	Init(false, &buf)

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	Info(ctx).Int("slot_number", 3).Msg("slot allocated")
	span.End()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "slot allocated", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, float64(3), entry["slot_number"])
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["traceId"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["spanId"])
}

func TestWithContextWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	Init(false, &buf)

	Warn(context.Background()).Msg("no span")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "traceId")
	assert.Equal(t, "warn", entry["level"])
}

func TestProductionLevelDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	Init(false, &buf)

	Debug(context.Background()).Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestLoggerWritesToInitWriter(t *testing.T) {
	var buf bytes.Buffer
	Init(false, &buf)

	Logger().Error().Str("mode", "daemon").Msg("parking-lot exited")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "daemon", entry["mode"])
	assert.NotContains(t, entry, "traceId")
}
