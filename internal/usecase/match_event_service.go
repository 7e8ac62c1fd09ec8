package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/matchday-relay/internal/domain/matchevent"
	"github.com/riskibarqy/matchday-relay/internal/domain/matchsession"
	"github.com/riskibarqy/matchday-relay/internal/domain/playerminutes"
	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

type MatchEventConfig struct {
	Club    string
	LiveTTL time.Duration
	Minutes playerminutes.Config
}

type EventOutcome struct {
	MatchID        string       `json:"match_id"`
	OperationKey   string       `json:"operation_key,omitempty"`
	EventType      string       `json:"event_type,omitempty"`
	StatsApplied   bool         `json:"stats_applied"`
	TrackerWarning string       `json:"tracker_warning,omitempty"`
	Dispatch       *ChunkResult `json:"dispatch,omitempty"`
	Error          string       `json:"error,omitempty"`
}

type MinutesView struct {
	MatchID    string                  `json:"match_id"`
	Minutes    playerminutes.Snapshot  `json:"minutes"`
	Scoreboard matchsession.Scoreboard `json:"scoreboard"`
}

// MatchEventService turns raw live reports into session updates and relay
// payloads. Each match is handled under its own session lock.
type MatchEventService struct {
	classifier *matchevent.Classifier
	dispatcher Dispatcher
	records    record.Repository
	sessions   *SessionRegistry
	pool       *ants.Pool
	cfg        MatchEventConfig
	logger     *logging.Logger
	now        func() time.Time
}

func NewMatchEventService(
	classifier *matchevent.Classifier,
	dispatcher Dispatcher,
	records record.Repository,
	sessions *SessionRegistry,
	pool *ants.Pool,
	cfg MatchEventConfig,
	logger *logging.Logger,
) *MatchEventService {
	if logger == nil {
		logger = logging.Default()
	}
	if classifier == nil {
		classifier = matchevent.NewClassifier(matchevent.DefaultRules())
	}
	if sessions == nil {
		sessions = NewSessionRegistry(cfg.Minutes)
	}
	return &MatchEventService{
		classifier: classifier,
		dispatcher: dispatcher,
		records:    records,
		sessions:   sessions,
		pool:       pool,
		cfg:        cfg,
		logger:     logger.Named("match-events"),
		now:        time.Now,
	}
}

// HandleReport classifies one report, applies it to the match session and
// dispatches the payload. Stat updates stay applied even if dispatch fails.
func (s *MatchEventService) HandleReport(ctx context.Context, report matchevent.RawReport) (EventOutcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchEventService.HandleReport")
	defer span.End()

	matchID := strings.TrimSpace(report.MatchID)
	outcome := EventOutcome{MatchID: matchID}
	if matchID == "" {
		return outcome, crerr.Wrap(ErrInvalidInput, "match_id is required")
	}
	span.SetAttributes(attribute.String("match.id", matchID))

	session, release := s.sessions.Acquire(matchID)
	defer release()

	event, err := s.classifier.Classify(session, report)
	if err != nil {
		s.logger.WarnContext(ctx, "report rejected", "match_id", matchID, "minute", report.Minute, "type", report.Type, "error", err)
		outcome.Error = err.Error()
		return outcome, crerr.Wrapf(ErrInvalidInput, "%v", err)
	}

	key := LiveEventKey(event)
	outcome.OperationKey = key
	outcome.EventType = event.EventType()

	outcome.StatsApplied = session.Apply(key, event)
	if outcome.StatsApplied {
		if warning := s.advanceTracker(ctx, session, event); warning != "" {
			outcome.TrackerWarning = warning
		}
	}

	if s.dispatcher == nil {
		return outcome, nil
	}
	result := s.dispatcher.Dispatch(ctx, []Payload{s.livePayload(key, event, session.Scoreboard())})
	if len(result.Results) > 0 {
		chunk := result.Results[0]
		outcome.Dispatch = &chunk
	}
	return outcome, nil
}

// HandleBatch processes reports grouped by match. Groups run concurrently on
// the worker pool; reports of one match keep their order. A bad report never
// aborts its siblings.
func (s *MatchEventService) HandleBatch(ctx context.Context, reports []matchevent.RawReport) []EventOutcome {
	outcomes := make([]EventOutcome, len(reports))

	groups := make(map[string][]int)
	order := make([]string, 0)
	for i, report := range reports {
		matchID := strings.TrimSpace(report.MatchID)
		if _, ok := groups[matchID]; !ok {
			order = append(order, matchID)
		}
		groups[matchID] = append(groups[matchID], i)
	}

	runGroup := func(indexes []int) {
		for _, i := range indexes {
			outcome, err := s.HandleReport(ctx, reports[i])
			if err != nil && outcome.Error == "" {
				outcome.Error = err.Error()
			}
			outcomes[i] = outcome
		}
	}

	var workers sync.WaitGroup
	for _, matchID := range order {
		indexes := groups[matchID]
		if s.pool == nil {
			runGroup(indexes)
			continue
		}
		workers.Add(1)
		if err := s.pool.Submit(func() {
			defer workers.Done()
			runGroup(indexes)
		}); err != nil {
			workers.Done()
			s.logger.WarnContext(ctx, "worker pool rejected match group, running inline", "match_id", matchID, "error", err)
			runGroup(indexes)
		}
	}
	workers.Wait()

	return outcomes
}

func (s *MatchEventService) Minutes(ctx context.Context, matchID string) (MinutesView, error) {
	var view MinutesView
	found := s.sessions.Inspect(matchID, func(session *matchsession.Session) {
		view = MinutesView{
			MatchID:    matchID,
			Minutes:    session.Tracker().Snapshot(),
			Scoreboard: session.Scoreboard(),
		}
	})
	if !found {
		return MinutesView{}, crerr.Wrapf(ErrNotFound, "no session for match %s", matchID)
	}
	return view, nil
}

func (s *MatchEventService) EndSession(ctx context.Context, matchID string) error {
	if !s.sessions.End(matchID) {
		return crerr.Wrapf(ErrNotFound, "no session for match %s", matchID)
	}
	s.logger.InfoContext(ctx, "match session ended", "match_id", matchID)
	return nil
}

// advanceTracker drives the minutes state machine and the fixture status.
// Inconsistencies are logged and ignored.
func (s *MatchEventService) advanceTracker(ctx context.Context, session *matchsession.Session, event matchevent.MatchEvent) string {
	tracker := session.Tracker()

	var err error
	switch event.Kind {
	case matchevent.KindSubstitution:
		err = tracker.Substitute(event.Minute, event.Detail.PlayerOff, event.Detail.PlayerOn)
	case matchevent.KindPhaseTransition:
		switch event.Detail.Phase {
		case matchevent.PhaseKickoff:
			if err = tracker.Kickoff(event.Detail.Starters); err == nil {
				s.updateFixtureStatus(ctx, event.MatchID, record.StatusLive)
			}
		case matchevent.PhaseHalfTime:
			err = tracker.HalfTime()
		case matchevent.PhaseSecondHalf:
			err = tracker.SecondHalf()
		case matchevent.PhaseFullTime:
			if err = tracker.FullTime(); err == nil {
				s.saveMinutes(ctx, event.MatchID, tracker.Snapshot())
				s.updateFixtureStatus(ctx, event.MatchID, record.StatusFinished)
			}
		case matchevent.PhasePostponed:
			if err = tracker.Postpone(); err == nil {
				s.updateFixtureStatus(ctx, event.MatchID, record.StatusPostponed)
			}
		}
	default:
		return ""
	}

	if err != nil {
		s.logger.WarnContext(ctx, "tracker inconsistency ignored",
			"match_id", event.MatchID,
			"minute", event.Minute,
			"event_type", event.EventType(),
			"state", tracker.State(),
			"error", err,
		)
		return err.Error()
	}
	return ""
}

func (s *MatchEventService) updateFixtureStatus(ctx context.Context, matchID string, status record.Status) {
	if s.records == nil {
		return
	}
	found, err := s.records.UpdateStatus(ctx, record.Ref{Kind: record.KindFixtures, ID: matchID}, status)
	if err != nil {
		s.logger.WarnContext(ctx, "update fixture status failed", "match_id", matchID, "status", status, "error", err)
		return
	}
	if !found {
		s.logger.DebugContext(ctx, "fixture not in record store", "match_id", matchID, "status", status)
	}
}

func (s *MatchEventService) saveMinutes(ctx context.Context, matchID string, snap playerminutes.Snapshot) {
	if s.records == nil {
		return
	}
	report := record.MinutesReport{
		MatchID:    matchID,
		State:      string(snap.State),
		Players:    make([]record.PlayerMinutes, 0, len(snap.Players)),
		RecordedAt: s.now().UTC(),
	}
	for _, p := range snap.Players {
		report.Players = append(report.Players, record.PlayerMinutes{PlayerID: p.PlayerID, Minutes: p.AccumulatedMinutes})
	}
	if err := s.records.SaveMatchMinutes(ctx, report); err != nil {
		s.logger.WarnContext(ctx, "save match minutes failed", "match_id", matchID, "players", len(report.Players), "error", err)
	}
}

func (s *MatchEventService) livePayload(key string, event matchevent.MatchEvent, board matchsession.Scoreboard) Payload {
	body := map[string]any{
		"idempotency_key": key,
		"event_type":      event.EventType(),
		"match_id":        event.MatchID,
		"minute":          event.Minute,
		"club":            s.cfg.Club,
		"score": map[string]any{
			"club":       board.ClubScore,
			"opposition": board.OppositionScore,
		},
	}
	if event.Subject != "" {
		body["player"] = event.Subject
	}

	detail := event.Detail
	switch event.Kind {
	case matchevent.KindTeamGoal:
		if detail.Assist != "" {
			body["assist"] = detail.Assist
		}
	case matchevent.KindTeamCard, matchevent.KindOppositionCard:
		body["card"] = string(detail.Severity)
	case matchevent.KindSecondYellowRed:
		body["card"] = string(matchevent.SeverityRed)
		body["first_yellow_minute"] = detail.FirstYellowMinute
	case matchevent.KindSubstitution:
		body["player_off"] = detail.PlayerOff
		body["player_on"] = detail.PlayerOn
	case matchevent.KindPhaseTransition:
		body["phase"] = string(detail.Phase)
	}
	if event.IsOpposition() {
		body["discipline"] = map[string]any{
			"opposition_yellows": board.OppositionYellows,
			"opposition_reds":    board.OppositionReds,
		}
	}
	if detail.Note != "" {
		body["detail"] = detail.Note
	}
	if detail.Reason != "" {
		body["reason"] = detail.Reason
	}

	return Payload{
		Key:       key,
		Operation: OperationLiveEvent,
		Body:      body,
		ItemCount: 1,
		TTL:       s.cfg.LiveTTL,
	}
}
