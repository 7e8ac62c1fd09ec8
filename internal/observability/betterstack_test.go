package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/matchday-relay/internal/config"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type betterStackSink struct {
	mu     sync.Mutex
	bodies []string
	auth   string
}

func newBetterStackSink(t *testing.T) (*betterStackSink, *httptest.Server) {
	t.Helper()
	sink := &betterStackSink{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		sink.mu.Lock()
		sink.bodies = append(sink.bodies, string(body))
		sink.auth = r.Header.Get("Authorization")
		sink.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)
	return sink, srv
}

func betterStackConfig(endpoint string) config.Config {
	return config.Config{
		BetterStackEnabled:  true,
		BetterStackEndpoint: endpoint,
		BetterStackToken:    "secret-token",
		BetterStackTimeout:  2 * time.Second,
		BetterStackMinLevel: logging.LevelError,
		LogLevel:            logging.LevelInfo,
		ServiceName:         "matchday-relay",
		AppEnv:              config.EnvDev,
	}
}

func TestInitBetterStackLogger_ShipsErrorRecords(t *testing.T) {
	t.Parallel()

	sink, srv := newBetterStackSink(t)
	logger, shutdown, err := InitBetterStackLogger(betterStackConfig(srv.URL), logging.NewNop())
	require.NoError(t, err)

	logger.ErrorContext(context.Background(), "dispatch failed", "operation_key", "results_riverside_2025-01_part1")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, shutdown(ctx))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.bodies, 1)
	assert.Contains(t, sink.bodies[0], `"msg":"dispatch failed"`)
	assert.Contains(t, sink.bodies[0], `"operation_key":"results_riverside_2025-01_part1"`)
	assert.Equal(t, "Bearer secret-token", sink.auth)
}

func TestInitBetterStackLogger_RespectsMinLevel(t *testing.T) {
	t.Parallel()

	sink, srv := newBetterStackSink(t)
	logger, shutdown, err := InitBetterStackLogger(betterStackConfig(srv.URL), logging.NewNop())
	require.NoError(t, err)

	logger.InfoContext(context.Background(), "dispatched", "operation_key", "k1")
	logger.Warn("relay retry", "attempt", 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, shutdown(ctx))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Empty(t, sink.bodies)
}

func TestInitBetterStackLogger_DisabledReturnsBase(t *testing.T) {
	t.Parallel()

	base := logging.NewNop()
	logger, shutdown, err := InitBetterStackLogger(config.Config{}, base)
	require.NoError(t, err)
	assert.Same(t, base, logger)
	require.NoError(t, shutdown(context.Background()))
}

func TestNormalizeBetterStackEndpoint(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", normalizeBetterStackEndpoint("  "))
	assert.Equal(t, "https://in.logs.betterstack.com", normalizeBetterStackEndpoint("in.logs.betterstack.com"))
	assert.Equal(t, "http://localhost:9000", normalizeBetterStackEndpoint("http://localhost:9000"))
}
