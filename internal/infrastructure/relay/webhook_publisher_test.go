package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
	"github.com/riskibarqy/matchday-relay/internal/platform/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookPublisher_PostsBodyWithHeaders(t *testing.T) {
	t.Parallel()

	var gotKey, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(IdempotencyKeyHeader)
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	pub, err := NewWebhookPublisher(WebhookPublisherConfig{URL: srv.URL, Token: "secret"}, logging.NewNop())
	require.NoError(t, err)

	resp, err := pub.Publish(context.Background(), "live_m1_23_goal_team_P7", map[string]any{"event_type": "goal_team", "minute": 23})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, resp.Diagnostic)
	assert.Equal(t, "live_m1_23_goal_team_P7", gotKey)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "goal_team", gotBody["event_type"])
	assert.EqualValues(t, 23, gotBody["minute"])
}

func TestWebhookPublisher_NonSuccessStatusIsAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("bad payload"))
	}))
	t.Cleanup(srv.Close)

	pub, err := NewWebhookPublisher(WebhookPublisherConfig{URL: srv.URL}, logging.NewNop())
	require.NoError(t, err)

	resp, err := pub.Publish(context.Background(), "k", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "bad payload", resp.Diagnostic)
	assert.False(t, isCircuitFailure(err))
}

func TestWebhookPublisher_CircuitOpensOnServerErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	pub, err := NewWebhookPublisher(WebhookPublisherConfig{
		URL: srv.URL,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	}, logging.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := pub.Publish(ctx, "k", nil)
		require.Error(t, err)
	}
	_, err = pub.Publish(ctx, "k", nil)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.EqualValues(t, 2, hits.Load())
}

func TestNewWebhookPublisher_RejectsBadURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "ftp://relay", "http://"} {
		_, err := NewWebhookPublisher(WebhookPublisherConfig{URL: raw}, nil)
		assert.Error(t, err, raw)
	}
}

func TestBuildCurlPreviewMasksToken(t *testing.T) {
	t.Parallel()

	got := buildCurlPreview("https://relay.example/hook", "k_part1", `{"a":"it's"}`, true)
	assert.Contains(t, got, "'Idempotency-Key: k_part1'")
	assert.Contains(t, got, "Bearer ***")
	assert.Contains(t, got, `'{"a":"it'"'"'s"}'`)
}
