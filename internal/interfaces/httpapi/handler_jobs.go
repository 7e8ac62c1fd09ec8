package httpapi

import (
	"net/http"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	"github.com/riskibarqy/matchday-relay/internal/domain/summary"
	"github.com/riskibarqy/matchday-relay/internal/usecase"
)

// periodRequest selects either a calendar month or an explicit inclusive
// date range.
type periodRequest struct {
	Month string `json:"month" validate:"omitempty,datetime=2006-01"`
	From  string `json:"from" validate:"required_without=Month,omitempty,datetime=2006-01-02"`
	To    string `json:"to" validate:"required_with=From,omitempty,datetime=2006-01-02"`
}

type summaryJobRequest struct {
	periodRequest
	Kind string `json:"kind" validate:"required,oneof=fixtures results"`
}

func (req periodRequest) period() (summary.Period, error) {
	if month := strings.TrimSpace(req.Month); month != "" {
		if req.From != "" || req.To != "" {
			return summary.Period{}, crerr.Wrap(usecase.ErrInvalidInput, "month cannot be combined with from/to")
		}
		p, err := summary.ParseMonth(month)
		if err != nil {
			return summary.Period{}, crerr.Wrapf(usecase.ErrInvalidInput, "%v", err)
		}
		return p, nil
	}

	from, err := time.Parse(time.DateOnly, req.From)
	if err != nil {
		return summary.Period{}, crerr.Wrapf(usecase.ErrInvalidInput, "invalid from date: %v", err)
	}
	to, err := time.Parse(time.DateOnly, req.To)
	if err != nil {
		return summary.Period{}, crerr.Wrapf(usecase.ErrInvalidInput, "invalid to date: %v", err)
	}
	return summary.Period{Start: from, End: to}, nil
}

func (h *Handler) RunPostFixturesJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunPostFixturesJob")
	defer span.End()

	period, ok := h.decodePeriod(w, r)
	if !ok {
		return
	}
	result, err := h.poster.PostFixtures(ctx, period)
	if err != nil {
		h.logger.WarnContext(ctx, "post fixtures job failed", "period", period.Label(), "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunPostResultsJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunPostResultsJob")
	defer span.End()

	period, ok := h.decodePeriod(w, r)
	if !ok {
		return
	}
	result, err := h.poster.PostResults(ctx, period)
	if err != nil {
		h.logger.WarnContext(ctx, "post results job failed", "period", period.Label(), "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunSummaryJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSummaryJob")
	defer span.End()

	kind, period, ok := h.decodeSummaryRequest(w, r)
	if !ok {
		return
	}
	result, err := h.summarizer.PublishSummary(ctx, kind, period)
	if err != nil {
		h.logger.WarnContext(ctx, "summary job failed", "kind", kind, "period", period.Label(), "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) PreviewSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PreviewSummary")
	defer span.End()

	kind, period, ok := h.decodeSummaryRequest(w, r)
	if !ok {
		return
	}
	result, err := h.summarizer.Summarize(ctx, kind, period)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) decodePeriod(w http.ResponseWriter, r *http.Request) (summary.Period, bool) {
	ctx := r.Context()

	var req periodRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return summary.Period{}, false
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return summary.Period{}, false
	}
	period, err := req.period()
	if err != nil {
		writeError(ctx, w, err)
		return summary.Period{}, false
	}
	return period, true
}

func (h *Handler) decodeSummaryRequest(w http.ResponseWriter, r *http.Request) (record.Kind, summary.Period, bool) {
	ctx := r.Context()

	var req summaryJobRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return "", summary.Period{}, false
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return "", summary.Period{}, false
	}
	kind, ok := record.ParseKind(req.Kind)
	if !ok {
		writeError(ctx, w, crerr.Wrapf(usecase.ErrInvalidInput, "unknown kind %q", req.Kind))
		return "", summary.Period{}, false
	}
	period, err := req.period()
	if err != nil {
		writeError(ctx, w, err)
		return "", summary.Period{}, false
	}
	return kind, period, true
}
