package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday-relay/internal/domain/matchevent"
	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	"github.com/riskibarqy/matchday-relay/internal/domain/summary"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
	"github.com/riskibarqy/matchday-relay/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "job-secret"

type stubMatchEvents struct {
	reports []matchevent.RawReport
	ended   []string
	err     error
}

func (s *stubMatchEvents) HandleReport(_ context.Context, report matchevent.RawReport) (usecase.EventOutcome, error) {
	s.reports = append(s.reports, report)
	if s.err != nil {
		return usecase.EventOutcome{MatchID: report.MatchID, Error: s.err.Error()}, s.err
	}
	return usecase.EventOutcome{MatchID: report.MatchID, EventType: report.Type, StatsApplied: true}, nil
}

func (s *stubMatchEvents) HandleBatch(_ context.Context, reports []matchevent.RawReport) []usecase.EventOutcome {
	out := make([]usecase.EventOutcome, 0, len(reports))
	for _, r := range reports {
		outcome := usecase.EventOutcome{MatchID: r.MatchID, EventType: r.Type}
		if r.MatchID == "" {
			outcome.Error = "match_id is required"
		}
		out = append(out, outcome)
	}
	return out
}

func (s *stubMatchEvents) Minutes(_ context.Context, matchID string) (usecase.MinutesView, error) {
	if matchID != "m1" {
		return usecase.MinutesView{}, crerr.Wrapf(usecase.ErrNotFound, "no session for match %s", matchID)
	}
	return usecase.MinutesView{MatchID: matchID}, nil
}

func (s *stubMatchEvents) EndSession(_ context.Context, matchID string) error {
	s.ended = append(s.ended, matchID)
	return nil
}

type stubPoster struct {
	periods []summary.Period
	err     error
}

func (s *stubPoster) PostFixtures(_ context.Context, p summary.Period) (usecase.PostingResult, error) {
	s.periods = append(s.periods, p)
	return usecase.PostingResult{Kind: record.KindFixtures}, s.err
}

func (s *stubPoster) PostResults(_ context.Context, p summary.Period) (usecase.PostingResult, error) {
	s.periods = append(s.periods, p)
	return usecase.PostingResult{Kind: record.KindResults}, s.err
}

type stubSummarizer struct {
	kinds     []record.Kind
	published int
}

func (s *stubSummarizer) Summarize(_ context.Context, kind record.Kind, p summary.Period) (summary.PeriodSummary, error) {
	s.kinds = append(s.kinds, kind)
	return summary.PeriodSummary{Kind: kind, PeriodStart: p.Start, PeriodEnd: p.End, NothingToReport: true}, nil
}

func (s *stubSummarizer) PublishSummary(ctx context.Context, kind record.Kind, p summary.Period) (usecase.SummaryPublication, error) {
	s.published++
	sum, err := s.Summarize(ctx, kind, p)
	return usecase.SummaryPublication{Summary: sum}, err
}

type routerFixture struct {
	events     *stubMatchEvents
	poster     *stubPoster
	summarizer *stubSummarizer
	router     http.Handler
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{
		events:     &stubMatchEvents{},
		poster:     &stubPoster{},
		summarizer: &stubSummarizer{},
	}
	handler := NewHandler(f.events, f.poster, f.summarizer, logging.NewNop())
	f.router = NewRouter(handler, logging.NewNop(), testToken)
	return f
}

func (f *routerFixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(InternalJobTokenHeader, testToken)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func errorStatus(body map[string]any) string {
	errObj, _ := body["error"].(map[string]any)
	status, _ := errObj["status"].(string)
	return status
}

func TestRouter_HealthzIsPublic(t *testing.T) {
	f := newRouterFixture()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_InternalRoutesRequireToken(t *testing.T) {
	f := newRouterFixture()

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/post-results", strings.NewReader(`{"month":"2025-01"}`))
	req.Header.Set(InternalJobTokenHeader, "wrong")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.poster.periods)
}

func TestRouter_UnconfiguredTokenIsUnavailable(t *testing.T) {
	handler := NewHandler(&stubMatchEvents{}, &stubPoster{}, &stubSummarizer{}, logging.NewNop())
	router := NewRouter(handler, logging.NewNop(), "")

	req := httptest.NewRequest(http.MethodDelete, "/v1/internal/matches/m1/session", nil)
	req.Header.Set(InternalJobTokenHeader, "anything")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIngestMatchEvent_UsesPathMatchID(t *testing.T) {
	f := newRouterFixture()

	rec, body := f.do(t, http.MethodPost, "/v1/internal/matches/m1/events", `{"type":"goal","minute":12,"player":"P9"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.events.reports, 1)
	assert.Equal(t, "m1", f.events.reports[0].MatchID)
	assert.Equal(t, 12, f.events.reports[0].Minute)
	data, _ := body["data"].(map[string]any)
	assert.Equal(t, "goal", data["event_type"])
}

func TestIngestMatchEvent_RejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing type", body: `{"minute":3}`},
		{name: "negative minute", body: `{"type":"goal","minute":-1}`},
		{name: "unknown field", body: `{"type":"goal","minute":3,"foo":1}`},
		{name: "empty body", body: ``},
		{name: "conflicting match id", body: `{"match_id":"m2","type":"goal","minute":3}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newRouterFixture()
			rec, body := f.do(t, http.MethodPost, "/v1/internal/matches/m1/events", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "INVALID_ARGUMENT", errorStatus(body))
			assert.Empty(t, f.events.reports)
		})
	}
}

func TestIngestMatchEvent_ClassifierRejectionIsBadRequest(t *testing.T) {
	f := newRouterFixture()
	f.events.err = crerr.Wrap(usecase.ErrInvalidInput, "minute out of range")

	rec, _ := f.do(t, http.MethodPost, "/v1/internal/matches/m1/events", `{"type":"goal","minute":300}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestEventBatch_CountsRejections(t *testing.T) {
	f := newRouterFixture()

	rec, body := f.do(t, http.MethodPost, "/v1/internal/events/batch",
		`{"reports":[{"match_id":"m1","type":"goal","minute":5},{"match_id":"","type":"goal","minute":6},{"match_id":"m2","type":"card","minute":7}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	data, _ := body["data"].(map[string]any)
	assert.EqualValues(t, 2, data["accepted"])
	assert.EqualValues(t, 1, data["rejected"])
}

func TestMatchMinutesAndEndSession(t *testing.T) {
	f := newRouterFixture()

	rec, _ := f.do(t, http.MethodGet, "/v1/internal/matches/m1/minutes", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := f.do(t, http.MethodGet, "/v1/internal/matches/unknown/minutes", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorStatus(body))

	rec, _ = f.do(t, http.MethodDelete, "/v1/internal/matches/m1/session", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"m1"}, f.events.ended)
}

func TestPostingJobs_ParsePeriod(t *testing.T) {
	f := newRouterFixture()

	rec, _ := f.do(t, http.MethodPost, "/v1/internal/jobs/post-fixtures", `{"month":"2025-02"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(t, http.MethodPost, "/v1/internal/jobs/post-results", `{"from":"2025-01-04","to":"2025-01-18"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.poster.periods, 2)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), f.poster.periods[0].End)
	assert.Equal(t, time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC), f.poster.periods[1].Start)
}

func TestPostingJobs_RejectInvalidPeriods(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"from":"2025-01-04"}`,
		`{"month":"2025-13"}`,
		`{"month":"2025-01","from":"2025-01-01","to":"2025-01-31"}`,
		`{"from":"04/01/2025","to":"2025-01-18"}`,
	}
	for _, b := range bodies {
		f := newRouterFixture()
		rec, _ := f.do(t, http.MethodPost, "/v1/internal/jobs/post-results", b)
		assert.Equal(t, http.StatusBadRequest, rec.Code, b)
		assert.Empty(t, f.poster.periods, b)
	}
}

func TestPostingJobs_SourceFailureIsUnavailable(t *testing.T) {
	f := newRouterFixture()
	f.poster.err = crerr.Wrap(usecase.ErrDependencyUnavailable, "sheet locked")

	rec, body := f.do(t, http.MethodPost, "/v1/internal/jobs/post-fixtures", `{"month":"2025-02"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "UNAVAILABLE", errorStatus(body))
}

func TestSummaryRoutes(t *testing.T) {
	f := newRouterFixture()

	rec, _ := f.do(t, http.MethodPost, "/v1/internal/summaries/preview", `{"kind":"results","month":"2025-01"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, f.summarizer.published)

	rec, body := f.do(t, http.MethodPost, "/v1/internal/jobs/summary", `{"kind":"fixtures","month":"2025-01"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.summarizer.published)
	data, _ := body["data"].(map[string]any)
	sum, _ := data["summary"].(map[string]any)
	assert.Equal(t, true, sum["nothing_to_report"])

	rec, _ = f.do(t, http.MethodPost, "/v1/internal/jobs/summary", `{"kind":"standings","month":"2025-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecoverPanic_WritesInternalError(t *testing.T) {
	handler := recoverPanic(logging.NewNop(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5123"
	assert.Equal(t, "10.0.0.2", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	assert.Empty(t, normalizeIP("not-an-ip"))
}
