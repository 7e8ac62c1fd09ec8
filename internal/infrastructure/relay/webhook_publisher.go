package relay

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
	"github.com/riskibarqy/matchday-relay/internal/platform/resilience"
	"github.com/riskibarqy/matchday-relay/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	diagnosticLimit      = 2048
)

var errRelayTransient = crerr.New("relay transient failure")

type WebhookPublisherConfig struct {
	URL            string
	Token          string
	Timeout        time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

// WebhookPublisher makes exactly one POST per Publish call. Retries belong to
// the dispatch pipeline.
type WebhookPublisher struct {
	client  *http.Client
	url     string
	token   string
	breaker *resilience.CircuitBreaker
	logger  *logging.Logger
}

func NewWebhookPublisher(cfg WebhookPublisherConfig, logger *logging.Logger) (*WebhookPublisher, error) {
	target, err := validateHTTPURL(cfg.URL)
	if err != nil {
		return nil, crerr.Wrap(err, "invalid RELAY_URL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &WebhookPublisher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		url:     target,
		token:   strings.TrimSpace(cfg.Token),
		breaker: resilience.NewCircuitBreaker(cfg.CircuitBreaker),
		logger:  logger.Named("relay"),
	}, nil
}

func (p *WebhookPublisher) Publish(ctx context.Context, key string, body map[string]any) (usecase.RelayResponse, error) {
	if body == nil {
		body = map[string]any{}
	}
	raw, err := sonic.Marshal(body)
	if err != nil {
		return usecase.RelayResponse{}, crerr.Wrap(err, "marshal relay payload")
	}

	bodyText := truncateForLog(string(raw), 4096)
	curlPreview := buildCurlPreview(p.url, key, bodyText, p.token != "")
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("relay.url", p.url),
			attribute.String("relay.idempotency_key", key),
			attribute.String("relay.request_curl_preview", curlPreview),
		)
	}
	p.logger.DebugContext(ctx, "relay publish request", "operation_key", key, "curl_preview", curlPreview)

	var out usecase.RelayResponse
	err = p.breaker.Do(func() error {
		resp, callErr := p.post(ctx, key, raw)
		out = resp
		return callErr
	}, isCircuitFailure)
	if err != nil {
		if crerr.Is(err, resilience.ErrCircuitOpen) {
			p.logger.WarnContext(ctx, "relay circuit breaker rejected request", "operation_key", key, "state", p.breaker.State())
		}
		return out, err
	}

	if span.IsRecording() {
		span.SetAttributes(attribute.Int("relay.response_status", out.StatusCode))
	}
	return out, nil
}

func (p *WebhookPublisher) post(ctx context.Context, key string, raw []byte) (usecase.RelayResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(raw))
	if err != nil {
		return usecase.RelayResponse{}, crerr.Wrap(err, "create relay request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyKeyHeader, key)
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return usecase.RelayResponse{}, crerr.Mark(crerr.Wrapf(err, "post relay key=%s", key), errRelayTransient)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, diagnosticLimit))
	out := usecase.RelayResponse{
		StatusCode: resp.StatusCode,
		Diagnostic: strings.TrimSpace(string(excerpt)),
	}
	if resp.StatusCode/100 == 2 {
		return out, nil
	}

	callErr := crerr.Newf("relay rejected key=%s status=%d body=%s", key, resp.StatusCode, out.Diagnostic)
	if isRetryableStatus(resp.StatusCode) {
		callErr = crerr.Mark(callErr, errRelayTransient)
	}
	return out, callErr
}

func validateHTTPURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}
	return candidate, nil
}

func buildCurlPreview(target, key, body string, withToken bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	appendPart := func(part string) {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString(part)
	}
	appendFlagHeader := func(value string) {
		appendPart("-H")
		appendPart(shellQuote(value))
	}

	appendPart("curl")
	appendPart("-X")
	appendPart("POST")
	appendPart(shellQuote(target))
	appendFlagHeader("Content-Type: application/json")
	appendFlagHeader(IdempotencyKeyHeader + ": " + key)
	if withToken {
		appendFlagHeader("Authorization: Bearer ***")
	}
	appendPart("-d")
	appendPart(shellQuote(body))

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func truncateForLog(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max] + "...(truncated " + strconv.Itoa(len(value)-max) + " bytes)"
}

// Only transport errors and retryable statuses trip the breaker; a 4xx means
// the relay is up and rejecting this payload.
func isCircuitFailure(err error) bool {
	return crerr.Is(err, errRelayTransient)
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}
