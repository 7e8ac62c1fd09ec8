package matchevent

import (
	"strings"

	crerr "github.com/cockroachdb/errors"
)

var ErrClassification = crerr.New("classification error")

// Rules is the data-driven part of classification.
type Rules struct {
	GoalOppositionSentinels []string
	CardOppositionSentinels []string
}

func DefaultRules() Rules {
	return Rules{
		GoalOppositionSentinels: []string{"Goal", "Opposition"},
		CardOppositionSentinels: []string{"Opposition"},
	}
}

// CardHistory answers whether a player already has a yellow in the current session.
type CardHistory interface {
	FirstYellowMinute(playerID string) (int, bool)
}

type Classifier struct {
	goalSentinels map[string]struct{}
	cardSentinels map[string]struct{}
}

func NewClassifier(rules Rules) *Classifier {
	return &Classifier{
		goalSentinels: sentinelSet(rules.GoalOppositionSentinels),
		cardSentinels: sentinelSet(rules.CardOppositionSentinels),
	}
}

func (c *Classifier) IsGoalSentinel(player string) bool {
	_, ok := c.goalSentinels[normalizeSentinel(player)]
	return ok
}

func (c *Classifier) IsCardSentinel(player string) bool {
	_, ok := c.cardSentinels[normalizeSentinel(player)]
	return ok
}

// Classify maps a raw report to a typed event. history may be nil when the
// session has no cards yet.
func (c *Classifier) Classify(history CardHistory, report RawReport) (MatchEvent, error) {
	matchID := strings.TrimSpace(report.MatchID)
	if matchID == "" {
		return MatchEvent{}, crerr.Wrap(ErrClassification, "match id is required")
	}
	if report.Minute < MinMinute || report.Minute > MaxMinute {
		return MatchEvent{}, crerr.Wrapf(ErrClassification, "minute %d outside [%d,%d]", report.Minute, MinMinute, MaxMinute)
	}

	event := MatchEvent{
		MatchID: matchID,
		Minute:  report.Minute,
		Detail: Detail{
			Note:   strings.TrimSpace(report.Detail),
			Reason: strings.TrimSpace(report.Reason),
		},
	}
	player := strings.TrimSpace(report.Player)

	switch strings.ToLower(strings.TrimSpace(report.Type)) {
	case "goal":
		if c.IsGoalSentinel(player) {
			event.Kind = KindOppositionGoal
			event.Detail.Sentinel = normalizeSentinel(player)
			return event, nil
		}
		if player == "" {
			return MatchEvent{}, crerr.Wrap(ErrClassification, "goal requires a player")
		}
		event.Kind = KindTeamGoal
		event.Subject = player
		event.Detail.Assist = strings.TrimSpace(report.Assist)
		if strings.EqualFold(event.Detail.Assist, player) {
			event.Detail.Assist = ""
		}
		return event, nil

	case "card":
		severity, ok := ParseSeverity(report.CardType)
		if !ok {
			return MatchEvent{}, crerr.Wrapf(ErrClassification, "unknown card type %q", report.CardType)
		}
		event.Detail.Severity = severity
		if c.IsCardSentinel(player) {
			event.Kind = KindOppositionCard
			event.Detail.Sentinel = normalizeSentinel(player)
			return event, nil
		}
		if player == "" {
			return MatchEvent{}, crerr.Wrap(ErrClassification, "card requires a player")
		}
		event.Subject = player
		// Second yellow is checked before generic red handling.
		if severity == SeverityRed && history != nil {
			if minute, found := history.FirstYellowMinute(player); found {
				event.Kind = KindSecondYellowRed
				event.Detail.FirstYellowMinute = minute
				return event, nil
			}
		}
		event.Kind = KindTeamCard
		return event, nil

	case "substitution", "sub":
		off := strings.TrimSpace(report.PlayerOff)
		on := strings.TrimSpace(report.PlayerOn)
		if off == "" || on == "" {
			return MatchEvent{}, crerr.Wrap(ErrClassification, "substitution requires player_off and player_on")
		}
		if off == on {
			return MatchEvent{}, crerr.Wrapf(ErrClassification, "substitution swaps %q with itself", off)
		}
		event.Kind = KindSubstitution
		event.Subject = on
		event.Detail.PlayerOff = off
		event.Detail.PlayerOn = on
		return event, nil

	case "phase", "status":
		phase, ok := ParsePhase(report.Phase)
		if !ok {
			return MatchEvent{}, crerr.Wrapf(ErrClassification, "unknown phase %q", report.Phase)
		}
		event.Kind = KindPhaseTransition
		event.Detail.Phase = phase
		if phase == PhaseKickoff {
			event.Detail.Starters = cleanPlayers(report.Starters)
		}
		return event, nil

	default:
		return MatchEvent{}, crerr.Wrapf(ErrClassification, "unknown event type %q", report.Type)
	}
}

func sentinelSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		key := normalizeSentinel(v)
		if key == "" {
			continue
		}
		out[key] = struct{}{}
	}
	return out
}

func normalizeSentinel(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func cleanPlayers(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
