package matchevent

import "strings"

type Kind string

// Kind values double as the outbound event_type.
const (
	KindTeamGoal        Kind = "goal_team"
	KindOppositionGoal  Kind = "goal_opposition"
	KindTeamCard        Kind = "card_team"
	KindOppositionCard  Kind = "card_opposition"
	KindSecondYellowRed Kind = "second_yellow_red"
	KindSubstitution    Kind = "substitution"
	KindPhaseTransition Kind = "phase"
)

type Phase string

const (
	PhaseKickoff    Phase = "kickoff"
	PhaseHalfTime   Phase = "half_time"
	PhaseSecondHalf Phase = "second_half"
	PhaseFullTime   Phase = "full_time"
	PhasePostponed  Phase = "postponed"
)

type Severity string

const (
	SeverityYellow Severity = "yellow"
	SeverityRed    Severity = "red"
)

const (
	MinMinute = 0
	MaxMinute = 120
)

// RawReport is the flat inbound report produced by the trigger layer.
type RawReport struct {
	MatchID   string   `json:"match_id"`
	Type      string   `json:"type"`
	Minute    int      `json:"minute"`
	Player    string   `json:"player"`
	Assist    string   `json:"assist,omitempty"`
	CardType  string   `json:"card_type,omitempty"`
	PlayerOff string   `json:"player_off,omitempty"`
	PlayerOn  string   `json:"player_on,omitempty"`
	Phase     string   `json:"phase,omitempty"`
	Starters  []string `json:"starters,omitempty"`
	Detail    string   `json:"detail,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

// Detail carries kind-specific context. Only the fields relevant to the kind are set.
type Detail struct {
	Severity          Severity
	Sentinel          string
	Assist            string
	PlayerOff         string
	PlayerOn          string
	FirstYellowMinute int
	Phase             Phase
	Starters          []string
	Note              string
	Reason            string
}

// MatchEvent is a classified report. It is never mutated after classification.
type MatchEvent struct {
	MatchID string
	Minute  int
	Kind    Kind
	Subject string
	Detail  Detail
}

func (e MatchEvent) IsOpposition() bool {
	return e.Kind == KindOppositionGoal || e.Kind == KindOppositionCard
}

// EventType is the payload event_type; phase transitions report the phase itself.
func (e MatchEvent) EventType() string {
	if e.Kind == KindPhaseTransition {
		return string(e.Detail.Phase)
	}
	return string(e.Kind)
}

// IdentityKey names the logical occurrence within a minute. Substitutions are
// identified by their off/on pair so simultaneous subs stay distinct.
// Opposition events have no subject, so the reported sentinel, card severity
// and note tell them apart; identical reports in one minute still collapse.
func (e MatchEvent) IdentityKey() string {
	switch e.Kind {
	case KindSubstitution:
		return e.Detail.PlayerOff + "-" + e.Detail.PlayerOn
	case KindPhaseTransition:
		return string(e.Detail.Phase)
	case KindOppositionGoal, KindOppositionCard:
		parts := []string{"opposition"}
		if e.Detail.Sentinel != "" {
			parts = append(parts, e.Detail.Sentinel)
		}
		if e.Kind == KindOppositionCard && e.Detail.Severity != "" {
			parts = append(parts, string(e.Detail.Severity))
		}
		if note := strings.ToLower(strings.TrimSpace(e.Detail.Note)); note != "" {
			parts = append(parts, note)
		}
		return strings.Join(parts, "-")
	default:
		return e.Subject
	}
}

func ParsePhase(v string) (Phase, bool) {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(v, "-", "_"))) {
	case "kickoff", "kick_off", "ko":
		return PhaseKickoff, true
	case "half_time", "halftime", "ht":
		return PhaseHalfTime, true
	case "second_half", "secondhalf", "2h":
		return PhaseSecondHalf, true
	case "full_time", "fulltime", "ft":
		return PhaseFullTime, true
	case "postponed", "postpone":
		return PhasePostponed, true
	default:
		return "", false
	}
}

func ParseSeverity(v string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yellow", "y":
		return SeverityYellow, true
	case "red", "r":
		return SeverityRed, true
	default:
		return "", false
	}
}
