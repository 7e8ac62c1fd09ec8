package httpapi

import (
	"net/http"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday-relay/internal/domain/matchevent"
	"github.com/riskibarqy/matchday-relay/internal/usecase"
)

type eventReportRequest struct {
	MatchID   string   `json:"match_id"`
	Type      string   `json:"type" validate:"required"`
	Minute    int      `json:"minute" validate:"gte=0"`
	Player    string   `json:"player"`
	Assist    string   `json:"assist"`
	CardType  string   `json:"card_type"`
	PlayerOff string   `json:"player_off"`
	PlayerOn  string   `json:"player_on"`
	Phase     string   `json:"phase"`
	Starters  []string `json:"starters" validate:"omitempty,dive,required"`
	Detail    string   `json:"detail"`
	Reason    string   `json:"reason"`
}

type batchReportRequest struct {
	Reports []eventReportRequest `json:"reports" validate:"required,min=1,max=500,dive"`
}

type batchReportResponse struct {
	Outcomes []usecase.EventOutcome `json:"outcomes"`
	Accepted int                    `json:"accepted"`
	Rejected int                    `json:"rejected"`
}

func (req eventReportRequest) toRawReport(matchID string) matchevent.RawReport {
	return matchevent.RawReport{
		MatchID:   matchID,
		Type:      req.Type,
		Minute:    req.Minute,
		Player:    req.Player,
		Assist:    req.Assist,
		CardType:  req.CardType,
		PlayerOff: req.PlayerOff,
		PlayerOn:  req.PlayerOn,
		Phase:     req.Phase,
		Starters:  req.Starters,
		Detail:    req.Detail,
		Reason:    req.Reason,
	}
}

func (h *Handler) IngestMatchEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.IngestMatchEvent")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	var req eventReportRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.MatchID != "" && strings.TrimSpace(req.MatchID) != matchID {
		writeError(ctx, w, crerr.Wrapf(usecase.ErrInvalidInput, "body match_id %q does not match path %q", req.MatchID, matchID))
		return
	}

	outcome, err := h.matchEvents.HandleReport(ctx, req.toRawReport(matchID))
	if err != nil {
		h.logger.WarnContext(ctx, "ingest match event failed", "match_id", matchID, "type", req.Type, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, outcome)
}

// IngestEventBatch accepts reports for several matches. Per-report failures
// are reported in the outcome list, never as a request error.
func (h *Handler) IngestEventBatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.IngestEventBatch")
	defer span.End()

	var req batchReportRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	reports := make([]matchevent.RawReport, 0, len(req.Reports))
	for _, item := range req.Reports {
		reports = append(reports, item.toRawReport(strings.TrimSpace(item.MatchID)))
	}

	resp := batchReportResponse{Outcomes: h.matchEvents.HandleBatch(ctx, reports)}
	for _, outcome := range resp.Outcomes {
		if outcome.Error != "" {
			resp.Rejected++
			continue
		}
		resp.Accepted++
	}
	writeSuccess(ctx, w, http.StatusOK, resp)
}

func (h *Handler) GetMatchMinutes(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatchMinutes")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	view, err := h.matchEvents.Minutes(ctx, matchID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, view)
}

func (h *Handler) EndMatchSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.EndMatchSession")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	if err := h.matchEvents.EndSession(ctx, matchID); err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, map[string]string{"match_id": matchID, "status": "ended"})
}
