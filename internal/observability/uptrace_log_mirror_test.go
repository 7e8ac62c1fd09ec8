package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

func TestShouldSkipUptraceLog(t *testing.T) {
	t.Parallel()

	assert.True(t, shouldSkipUptraceLog("http_request", []any{"http_path", "/healthz"}))
	assert.False(t, shouldSkipUptraceLog("http_request", []any{"http_path", "/v1/internal/events/batch"}))
	assert.False(t, shouldSkipUptraceLog("relay call failed", []any{"http_path", "/healthz"}))
}

func TestBuildOTelLogAttributes(t *testing.T) {
	t.Parallel()

	attrs := buildOTelLogAttributes([]any{
		"operation_key", "live_m1_23_goal_opposition-goal",
		"attempt", 2,
		"error", errors.New("relay returned 503"),
		"backoff", 2 * time.Second,
		"items",
	})
	require.Len(t, attrs, 5)
	assert.Equal(t, "operation_key", attrs[0].Key)
	assert.Equal(t, "live_m1_23_goal_opposition-goal", attrs[0].Value.AsString())
	assert.Equal(t, int64(2), attrs[1].Value.AsInt64())
	assert.Equal(t, "relay returned 503", attrs[2].Value.AsString())
	assert.Equal(t, "2s", attrs[3].Value.AsString())
	assert.Equal(t, otellog.KindEmpty, attrs[4].Value.Kind())
}

func TestToOTelLogValue_Nested(t *testing.T) {
	t.Parallel()

	v := toOTelLogValue(map[string]any{
		"score":   map[string]any{"club": 2, "opposition": 1},
		"players": []string{"P7", "P10"},
		"posted":  true,
	}, 0)
	require.Equal(t, otellog.KindMap, v.Kind())
	items := v.AsMap()
	require.Len(t, items, 3)
	assert.Equal(t, "players", items[0].Key)
	assert.Equal(t, otellog.KindSlice, items[0].Value.Kind())
	assert.Equal(t, otellog.KindBool, items[1].Value.Kind())
	assert.Equal(t, otellog.KindMap, items[2].Value.Kind())
}

func TestToOTelSeverity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, otellog.SeverityDebug, toOTelSeverity(zapcore.DebugLevel))
	assert.Equal(t, otellog.SeverityWarn, toOTelSeverity(zapcore.WarnLevel))
	assert.Equal(t, otellog.SeverityError, toOTelSeverity(zapcore.ErrorLevel))
	assert.Equal(t, otellog.SeverityFatal, toOTelSeverity(zapcore.PanicLevel))
}
