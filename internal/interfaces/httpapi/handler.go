package httpapi

import (
	"context"
	"io"
	"net/http"

	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/matchday-relay/internal/domain/matchevent"
	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	"github.com/riskibarqy/matchday-relay/internal/domain/summary"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
	"github.com/riskibarqy/matchday-relay/internal/usecase"
)

const maxRequestBody = 1 << 20

type MatchEvents interface {
	HandleReport(ctx context.Context, report matchevent.RawReport) (usecase.EventOutcome, error)
	HandleBatch(ctx context.Context, reports []matchevent.RawReport) []usecase.EventOutcome
	Minutes(ctx context.Context, matchID string) (usecase.MinutesView, error)
	EndSession(ctx context.Context, matchID string) error
}

type Poster interface {
	PostFixtures(ctx context.Context, period summary.Period) (usecase.PostingResult, error)
	PostResults(ctx context.Context, period summary.Period) (usecase.PostingResult, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, kind record.Kind, period summary.Period) (summary.PeriodSummary, error)
	PublishSummary(ctx context.Context, kind record.Kind, period summary.Period) (usecase.SummaryPublication, error)
}

type Handler struct {
	matchEvents MatchEvents
	poster      Poster
	summarizer  Summarizer
	logger      *logging.Logger
	validator   *validator.Validate
}

func NewHandler(matchEvents MatchEvents, poster Poster, summarizer Summarizer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		matchEvents: matchEvents,
		poster:      poster,
		summarizer:  summarizer,
		logger:      logger.Named("httpapi"),
		validator:   validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return crerr.Wrapf(usecase.ErrInvalidInput, "validation failed: %v", err)
	}
	return nil
}

// decodeJSON reads a strict JSON body. An empty body leaves dst untouched
// when allowEmpty is set.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	decoder := jsoniter.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if crerr.Is(err, io.EOF) {
			if allowEmpty {
				return nil
			}
			return crerr.Wrap(usecase.ErrInvalidInput, "request body is required")
		}
		return crerr.Wrapf(usecase.ErrInvalidInput, "invalid JSON payload: %v", err)
	}
	return nil
}
